package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"oficios_app_go/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// PDFContentType is the only content type the app stores
const PDFContentType = "application/pdf"

// ErrStoredFileNotFound is returned by Open when the key has no object
var ErrStoredFileNotFound = errors.New("stored file not found")

// StorageProvider keeps the PDF attachments of oficios, movimientos and
// respuestas. Keys are slash separated and always live under OficioPrefix.
type StorageProvider interface {
	Save(ctx context.Context, key string, body io.Reader, size int64) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Storage is the provider used by handlers
var Storage StorageProvider

// InitializeStorage selects R2 when its credentials are set and the bucket
// answers, and the local upload directory otherwise
func InitializeStorage(cfg *config.Config) {
	if cfg.R2AccountID == "" || cfg.R2AccessKeyID == "" || cfg.R2SecretAccessKey == "" || cfg.R2BucketName == "" {
		Storage = NewLocalStorage(cfg.UploadDir)
		log.Printf("[STORAGE] Local filesystem at %s", cfg.UploadDir)
		return
	}

	r2, err := NewR2Storage(cfg)
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, err = r2.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(r2.bucket)})
	}
	if err != nil {
		log.Printf("[WARNING] R2 unavailable (%v), falling back to %s", err, cfg.UploadDir)
		Storage = NewLocalStorage(cfg.UploadDir)
		return
	}

	Storage = r2
	log.Printf("[STORAGE] Cloudflare R2 bucket %s", cfg.R2BucketName)
}

// R2Storage stores attachments in a Cloudflare R2 bucket through the S3 API
type R2Storage struct {
	client *s3.Client
	bucket string
}

// NewR2Storage builds an S3 client against the account's R2 endpoint
func NewR2Storage(cfg *config.Config) (*R2Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})
	return &R2Storage{client: client, bucket: cfg.R2BucketName}, nil
}

func (r *R2Storage) Save(ctx context.Context, key string, body io.Reader, size int64) error {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(PDFContentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to R2: %w", key, err)
	}
	return nil
}

func (r *R2Storage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrStoredFileNotFound, key, err)
	}
	return out.Body, nil
}

// Delete removes the object. R2 has no directories, so nothing is left behind.
func (r *R2Storage) Delete(ctx context.Context, key string) error {
	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s from R2: %w", key, err)
	}
	return nil
}

// LocalStorage stores attachments under a base directory, one folder per oficio
type LocalStorage struct {
	baseDir string
}

func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{baseDir: filepath.Clean(baseDir)}
}

// resolve maps a key to a path inside baseDir, rejecting traversal
func (l *LocalStorage) resolve(key string) (string, error) {
	fullPath := filepath.Join(l.baseDir, filepath.FromSlash(key))
	if !strings.HasPrefix(fullPath, l.baseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return fullPath, nil
}

func (l *LocalStorage) Save(_ context.Context, key string, body io.Reader, _ int64) error {
	fullPath, err := l.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	dst, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(dst, body); err != nil {
		dst.Close()
		os.Remove(fullPath)
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return dst.Close()
}

func (l *LocalStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := l.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fullPath)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrStoredFileNotFound, key)
	}
	return f, err
}

// Delete removes the file and then every parent folder left empty, so deleting
// the last attachment of an oficio also removes its folder
func (l *LocalStorage) Delete(_ context.Context, key string) error {
	fullPath, err := l.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}

	for dir := filepath.Dir(fullPath); dir != l.baseDir && strings.HasPrefix(dir, l.baseDir); dir = filepath.Dir(dir) {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			break
		}
		if err := os.Remove(dir); err != nil {
			log.Printf("[STORAGE] Failed to remove empty directory %s: %v", dir, err)
			break
		}
	}
	return nil
}

// OficioPrefix is the folder holding every attachment of an oficio
func OficioPrefix(oficioID string) string {
	return path.Join("oficios", oficioID)
}

// attachmentKey names a new object under dir; the original name is kept in the
// database, the key only carries a unique id and the .pdf extension
func attachmentKey(dir string) string {
	return path.Join(dir, uuid.New().String()+".pdf")
}

// GenerateOficioKey creates a storage key for the oficio's own PDF
func GenerateOficioKey(oficioID string) string {
	return attachmentKey(OficioPrefix(oficioID))
}

// GenerateMovimientoKey creates a storage key for a movimiento attachment
func GenerateMovimientoKey(oficioID, movimientoID string) string {
	return attachmentKey(path.Join(OficioPrefix(oficioID), "movimientos", movimientoID))
}

// GenerateRespuestaKey creates a storage key for a respuesta attachment
func GenerateRespuestaKey(oficioID, respuestaID string) string {
	return attachmentKey(path.Join(OficioPrefix(oficioID), "respuestas", respuestaID))
}

// deleteStoredFile removes key from storage, logging failures.
// Used after a commit, when the database no longer references the file.
func deleteStoredFile(ctx context.Context, storage StorageProvider, key string) {
	if key == "" || storage == nil {
		return
	}
	if err := storage.Delete(ctx, key); err != nil {
		log.Printf("[STORAGE] Failed to delete %s: %v", key, err)
	}
}
