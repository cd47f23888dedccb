package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"oficios_app_go/models"
)

// MaxUploadSize is the attachment limit, 10MB
const MaxUploadSize = 10 * 1024 * 1024

// ValidatePDFUpload checks if the uploaded file is a valid PDF within size limits
func ValidatePDFUpload(fileHeader *multipart.FileHeader) error {
	if fileHeader.Size > MaxUploadSize {
		return fieldError("archivo", "El archivo supera el tamaño máximo de 10MB.")
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if ext != ".pdf" {
		return fieldError("archivo", "Solo se permiten archivos PDF.")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	// PDF files start with %PDF
	buffer := make([]byte, 4)
	n, err := io.ReadFull(file, buffer)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return fmt.Errorf("failed to read file content: %w", err)
	}
	if n < 4 || string(buffer) != "%PDF" {
		return fieldError("archivo", "El archivo no es un PDF válido.")
	}

	return nil
}

// storePDF validates and uploads an optional attachment under key.
// A nil header yields an empty Adjunto.
func storePDF(ctx context.Context, storage StorageProvider, fileHeader *multipart.FileHeader, key string) (models.Adjunto, error) {
	if fileHeader == nil {
		return models.Adjunto{}, nil
	}
	if err := ValidatePDFUpload(fileHeader); err != nil {
		return models.Adjunto{}, err
	}
	if storage == nil {
		return models.Adjunto{}, fmt.Errorf("storage not initialized")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return models.Adjunto{}, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	if err := storage.Save(ctx, key, src, fileHeader.Size); err != nil {
		return models.Adjunto{}, fmt.Errorf("failed to store attachment: %w", err)
	}

	return models.Adjunto{
		Key:            key,
		NombreOriginal: filepath.Base(fileHeader.Filename),
		Size:           fileHeader.Size,
	}, nil
}
