package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"oficios_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// assignedOficio creates an oficio already assigned to inst
func assignedOficio(t *testing.T, db *gorm.DB, storage StorageProvider, inst *models.Institucion) *models.Oficio {
	t.Helper()
	o := createTestOficio(t, db, models.OficioEstadoCargado, nil)
	_, err := TransitionOficio(context.Background(), db, storage, testActor(models.RoleAdmin), o.ID,
		TransitionInput{Estado: models.OficioEstadoAsignado, InstitucionID: inst.ID}, nil)
	require.NoError(t, err)
	return o
}

func oficioEstado(t *testing.T, db *gorm.DB, id string) string {
	t.Helper()
	var o models.Oficio
	require.NoError(t, db.First(&o, "id = ?", id).Error)
	return o.Estado
}

func TestCreateRespuestaTransitions(t *testing.T) {
	db := setupTestDB(t)
	dir := t.TempDir()
	storage := NewLocalStorage(dir)
	_, actor := createTestUser(t, db, "operador1", models.RoleOperador)
	inst := createTestInstitucion(t, db, "HOSPITAL")
	o := assignedOficio(t, db, storage, inst)

	resp, err := CreateRespuesta(context.Background(), db, storage, actor, o.ID, RespuestaInput{Texto: "Se adjunta informe"},
		pdfFileHeader(t, "informe.pdf", validPDF()))
	require.NoError(t, err)
	assert.Equal(t, models.OficioEstadoRespondido, oficioEstado(t, db, o.ID))
	require.NotNil(t, resp.InstitucionID)
	assert.Equal(t, inst.ID, *resp.InstitucionID, "defaults to the current holder")
	require.NotNil(t, resp.UsuarioID)
	assert.Nil(t, resp.ProfesionalID)
	assert.False(t, resp.FechaHora.IsZero())

	// A second reply on a respondido oficio is stored without a movement
	_, err = CreateRespuesta(context.Background(), db, storage, actor, o.ID, RespuestaInput{Texto: "Ampliación"}, nil)
	require.NoError(t, err)

	movs, err := ListMovimientos(db, o.ID)
	require.NoError(t, err)
	assert.Len(t, movs, 2)
	assert.Equal(t, models.OficioEstadoRespondido, movs[0].EstadoNuevo)

	respuestas, err := ListRespuestas(db, o.ID)
	require.NoError(t, err)
	assert.Len(t, respuestas, 2)

	deleted, err := DeleteRespuesta(context.Background(), db, storage, resp.ID)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, deleted.Archivo.Key))
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, models.OficioEstadoRespondido, oficioEstado(t, db, o.ID))

	_, err = DeleteRespuesta(context.Background(), db, storage, resp.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateRespuestaDevuelto(t *testing.T) {
	db := setupTestDB(t)
	storage := NewLocalStorage(t.TempDir())
	actor := testActor(models.RoleOperador)
	inst := createTestInstitucion(t, db, "ESCUELA")
	o := assignedOficio(t, db, storage, inst)

	_, err := CreateRespuesta(context.Background(), db, storage, actor, o.ID, RespuestaInput{Texto: "No corresponde", Devuelto: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.OficioEstadoDevuelto, oficioEstado(t, db, o.ID))
}

func TestCreateRespuestaFlipsBetweenRespondidoAndDevuelto(t *testing.T) {
	db := setupTestDB(t)
	storage := NewLocalStorage(t.TempDir())
	actor := testActor(models.RoleOperador)
	inst := createTestInstitucion(t, db, "JUZGADO DE FAMILIA")
	o := assignedOficio(t, db, storage, inst)
	ctx := context.Background()

	_, err := CreateRespuesta(ctx, db, storage, actor, o.ID, RespuestaInput{Texto: "Informe"}, nil)
	require.NoError(t, err)
	require.Equal(t, models.OficioEstadoRespondido, oficioEstado(t, db, o.ID))

	_, err = CreateRespuesta(ctx, db, storage, actor, o.ID, RespuestaInput{Texto: "Se devuelve", Devuelto: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.OficioEstadoDevuelto, oficioEstado(t, db, o.ID))

	_, err = CreateRespuesta(ctx, db, storage, actor, o.ID, RespuestaInput{Texto: "Informe corregido"}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.OficioEstadoRespondido, oficioEstado(t, db, o.ID))

	movs, err := ListMovimientos(db, o.ID)
	require.NoError(t, err)
	require.Len(t, movs, 4, "asignado plus three reply movements")
	require.NotNil(t, movs[0].EstadoAnterior)
	assert.Equal(t, models.OficioEstadoDevuelto, *movs[0].EstadoAnterior)
	assert.Equal(t, models.OficioEstadoRespondido, movs[0].EstadoNuevo)

	respuestas, err := ListRespuestas(db, o.ID)
	require.NoError(t, err)
	assert.Len(t, respuestas, 3)
}

func TestCreateRespuestaRejected(t *testing.T) {
	db := setupTestDB(t)
	storage := NewLocalStorage(t.TempDir())
	actor := testActor(models.RoleOperador)

	cargado := createTestOficio(t, db, models.OficioEstadoCargado, nil)
	_, err := CreateRespuesta(context.Background(), db, storage, actor, cargado.ID, RespuestaInput{Texto: "x"}, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = CreateRespuesta(context.Background(), db, storage, actor, cargado.ID, RespuestaInput{Texto: "  "}, nil)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "respuesta")

	_, err = CreateRespuesta(context.Background(), db, storage, actor, "missing", RespuestaInput{Texto: "x"}, nil)
	assert.ErrorIs(t, err, ErrNotFound)

	var count int64
	db.Model(&models.Respuesta{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestResponseLinkRoundTrip(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	token, err := IssueResponseLink("secret", "oficio-1", "inst-1", time.Hour, now)
	require.NoError(t, err)

	claims, err := ParseResponseLink("secret", token, now.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "oficio-1", claims.OficioID)
	assert.Equal(t, "inst-1", claims.InstitucionID)

	_, err = ParseResponseLink("secret", token, now.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrInvalidLink)

	_, err = ParseResponseLink("other", token, now)
	assert.ErrorIs(t, err, ErrInvalidLink)

	_, err = ParseResponseLink("secret", "garbage", now)
	assert.ErrorIs(t, err, ErrInvalidLink)

	_, err = IssueResponseLink("", "oficio-1", "inst-1", time.Hour, now)
	assert.Error(t, err)
}

func TestCreateRespuestaProfesional(t *testing.T) {
	db := setupTestDB(t)
	storage := NewLocalStorage(t.TempDir())
	inst := createTestInstitucion(t, db, "HOSPITAL")
	other := createTestInstitucion(t, db, "ESCUELA")
	o := assignedOficio(t, db, storage, inst)

	prof, err := CreateProfesional(db, testActor(models.RoleAdmin), ProfesionalInput{
		Username: "dra.lopez", FirstName: "Ana", LastName: "López",
		Password: "secret123", PasswordConfirm: "secret123", InstitucionID: inst.ID,
	})
	require.NoError(t, err)

	now := time.Now()
	token, err := IssueResponseLink("secret", o.ID, inst.ID, time.Hour, now)
	require.NoError(t, err)
	claims, err := ParseResponseLink("secret", token, now)
	require.NoError(t, err)

	_, err = CreateRespuestaProfesional(context.Background(), db, storage, claims, "dra.lopez", "wrong", RespuestaInput{Texto: "x"}, nil)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	resp, err := CreateRespuestaProfesional(context.Background(), db, storage, claims, "dra.lopez", "secret123", RespuestaInput{Texto: "Informe psicológico"}, nil)
	require.NoError(t, err)
	require.NotNil(t, resp.ProfesionalID)
	assert.Equal(t, prof.ID, *resp.ProfesionalID)
	assert.Nil(t, resp.UsuarioID)
	assert.Equal(t, models.OficioEstadoRespondido, oficioEstado(t, db, o.ID))

	// A link for another institution is refused to this professional
	wrong := &ResponseClaims{OficioID: o.ID, InstitucionID: other.ID}
	_, err = CreateRespuestaProfesional(context.Background(), db, storage, wrong, "dra.lopez", "secret123", RespuestaInput{Texto: "x"}, nil)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// Staff credentials are not accepted on the link
	createTestUser(t, db, "operador1", models.RoleOperador)
	_, err = CreateRespuestaProfesional(context.Background(), db, storage, claims, "operador1", "secret123", RespuestaInput{Texto: "x"}, nil)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}
