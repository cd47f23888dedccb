package services

import (
	"context"
	"os"
	"testing"
	"time"

	"oficios_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPDFOptions(t *testing.T) {
	opts := DefaultPDFOptions()
	assert.Equal(t, "portrait", opts.PageOrientation)
	assert.Equal(t, "A4", opts.PageSize)
	assert.Equal(t, 54, opts.MarginTop)

	w, h := opts.paperSize()
	assert.Equal(t, 8.27, w)
	assert.Equal(t, 11.69, h)

	opts.PageOrientation = "landscape"
	opts.PageSize = "legal"
	w, h = opts.paperSize()
	assert.Equal(t, 14.0, w)
	assert.Equal(t, 8.5, h)
}

func TestBuildConstanciaHTML(t *testing.T) {
	db := setupTestDB(t)
	storage := NewLocalStorage(t.TempDir())
	inst := createTestInstitucion(t, db, "HOSPITAL <CENTRAL>")
	o := assignedOficio(t, db, storage, inst)
	_, err := CreateRespuesta(context.Background(), db, storage, testActor(models.RoleOperador), o.ID,
		RespuestaInput{Texto: "Informe social"}, nil)
	require.NoError(t, err)

	full, err := GetOficio(db, o.ID)
	require.NoError(t, err)

	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	html, err := BuildConstanciaHTML(full, full.Movimientos, full.Respuestas, now)
	require.NoError(t, err)

	assert.Contains(t, html, "Constancia de oficio N° "+o.NroOficio)
	assert.Contains(t, html, "Estado actual: Respondido")
	assert.Contains(t, html, "HOSPITAL &lt;CENTRAL&gt;")
	assert.Contains(t, html, "Oficio cargado")
	assert.Contains(t, html, "Informe social")
	assert.Contains(t, html, "Generada el 01/06/2024 08:00")

	empty, err := BuildConstanciaHTML(&models.Oficio{NroOficio: "9"}, nil, nil, now)
	require.NoError(t, err)
	assert.Contains(t, empty, "Sin movimientos.")
	assert.Contains(t, empty, "Sin respuestas.")
}

func TestGeneratePDFSmoke(t *testing.T) {
	chromePath := os.Getenv("CHROME_PATH")
	if chromePath == "" {
		t.Skip("Skipping PDF generation test: CHROME_PATH not set")
	}

	pdf, err := GeneratePDF(context.Background(), chromePath, "<h1>Hola</h1>", DefaultPDFOptions())
	if err != nil {
		if os.IsNotExist(err) {
			t.Skipf("Skipping: Chrome not found at %s", chromePath)
		}
		t.Errorf("GeneratePDF failed: %v", err)
		return
	}

	assert.True(t, len(pdf) > 0)
	assert.Contains(t, string(pdf[:5]), "%PDF-")
}
