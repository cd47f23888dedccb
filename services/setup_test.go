package services

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"testing"
	"time"

	"oficios_app_go/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens an isolated shared-cache in-memory database with every model migrated
func setupTestDB(t *testing.T) *gorm.DB {
	dbName := "mem_" + uuid.New().String()
	testDB, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared&_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, testDB.AutoMigrate(models.All()...))

	t.Cleanup(func() {
		if sqlDB, err := testDB.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return testDB
}

func testActor(role string) Actor {
	return Actor{UserID: uuid.New().String(), UserName: "TEST, USER", Role: role, Permissions: PermissionsForRole(role)}
}

// createTestUser inserts a staff user with a profile so actor IDs satisfy foreign keys
func createTestUser(t *testing.T, db *gorm.DB, username, role string) (*models.User, Actor) {
	hash, err := HashPassword("secret123")
	require.NoError(t, err)
	user := &models.User{Username: username, FirstName: "Test", LastName: username, Email: username + "@example.org", Password: hash, IsActive: true,
		Perfil: &models.UsuarioPerfil{Role: role, EsProfesional: role == models.RoleProfesional}}
	require.NoError(t, db.Create(user).Error)
	return user, ActorForUser(user)
}

func createTestInstitucion(t *testing.T, db *gorm.DB, nombre string) *models.Institucion {
	inst := &models.Institucion{Nombre: nombre, Email: "mesa@" + uuid.New().String()[:8] + ".org"}
	require.NoError(t, db.Create(inst).Error)
	return inst
}

func createTestOficio(t *testing.T, db *gorm.DB, estado string, casoID *string) *models.Oficio {
	o := &models.Oficio{
		NroOficio:    uuid.New().String()[:6],
		Tipo:         models.OficioTipoMPA,
		Estado:       estado,
		FechaEmision: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		CasoID:       casoID,
	}
	require.NoError(t, db.Create(o).Error)
	return o
}

// pdfFileHeader builds a multipart file header holding content under filename
func pdfFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("archivo", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))
	return req.MultipartForm.File["archivo"][0]
}

func validPDF() []byte {
	return []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")
}
