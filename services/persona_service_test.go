package services

import (
	"testing"
	"time"

	"oficios_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateNinoNormalizes(t *testing.T) {
	db := setupTestDB(t)
	actor := testActor(models.RoleOperador)

	nino, err := CreateNino(db, actor, NinoInput{Nombre: "  maría  josé ", Apellido: "núñez", DNI: "40.123 456"})
	require.NoError(t, err)
	assert.Equal(t, "MARÍA JOSÉ", nino.Nombre)
	assert.Equal(t, "NÚÑEZ", nino.Apellido)
	require.NotNil(t, nino.DNI)
	assert.Equal(t, "40123456", *nino.DNI)
	assert.Equal(t, "NUNEZ MARIA JOSE 40123456", nino.Busqueda)

	history, err := GetResourceHistory(db, models.HistoryResourceNino, nino.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.HistoryActionCreate, history[0].Action)
}

func TestCreateNinoValidation(t *testing.T) {
	db := setupTestDB(t)
	actor := testActor(models.RoleOperador)

	_, err := CreateNino(db, actor, NinoInput{Nombre: "Ana", Apellido: "Gómez", DNI: "12"})
	require.NoError(t, err)

	_, err = CreateNino(db, actor, NinoInput{Nombre: "ANA", Apellido: "gómez"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields["nombre"], "mismo nombre y apellido")

	_, err = CreateNino(db, actor, NinoInput{Nombre: "Otra", Apellido: "Persona", DNI: "1.2"})
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "dni")

	_, err = CreateNino(db, actor, NinoInput{Nombre: "Otra", Apellido: "Persona", DNI: "12a"})
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "dni")

	_, err = CreateNino(db, actor, NinoInput{Nombre: " ", Apellido: ""})
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "nombre")
	assert.Contains(t, ve.Fields, "apellido")
}

func TestUpdateNinoAllowsOwnName(t *testing.T) {
	db := setupTestDB(t)
	actor := testActor(models.RoleOperador)

	nino, err := CreateNino(db, actor, NinoInput{Nombre: "Ana", Apellido: "Gómez"})
	require.NoError(t, err)

	edad := 9
	updated, err := UpdateNino(db, actor, nino.ID, NinoInput{Nombre: "ana", Apellido: "GÓMEZ", Edad: &edad})
	require.NoError(t, err)
	require.NotNil(t, updated.Edad)
	assert.Equal(t, 9, *updated.Edad)

	history, err := GetResourceHistory(db, models.HistoryResourceNino, nino.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	_, err = UpdateNino(db, actor, "missing", NinoInput{Nombre: "X", Apellido: "Y"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteNinoRemovesLinks(t *testing.T) {
	db := setupTestDB(t)
	actor := testActor(models.RoleAdmin)

	nino, err := CreateNino(db, actor, NinoInput{Nombre: "Ana", Apellido: "Gómez"})
	require.NoError(t, err)
	caso, err := CreateCaso(db, actor, CasoInput{Ninos: []CasoNinoInput{{NinoID: nino.ID}}})
	require.NoError(t, err)

	got, err := GetNino(db, nino.ID)
	require.NoError(t, err)
	require.Len(t, got.Casos, 1)
	assert.Equal(t, caso.ID, got.Casos[0].Caso.ID)

	require.NoError(t, DeleteNino(db, actor, nino.ID))

	var links int64
	db.Model(&models.CasoNino{}).Where("nino_id = ?", nino.ID).Count(&links)
	assert.Equal(t, int64(0), links)
	assert.ErrorIs(t, DeleteNino(db, actor, nino.ID), ErrNotFound)
}

func TestSearchNinos(t *testing.T) {
	db := setupTestDB(t)
	actor := testActor(models.RoleOperador)

	born := time.Date(2015, 3, 9, 0, 0, 0, 0, time.UTC)
	_, err := CreateNino(db, actor, NinoInput{Nombre: "José", Apellido: "Núñez", DNI: "45111222", FechaNac: &born})
	require.NoError(t, err)
	_, err = CreateNino(db, actor, NinoInput{Nombre: "Lucía", Apellido: "Ramos"})
	require.NoError(t, err)

	results, err := SearchNinos(db, "n")
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.NotNil(t, results)

	results, err = SearchNinos(db, "nunez")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "JOSÉ", results[0].Nombres)
	assert.Equal(t, "NÚÑEZ", results[0].Apellidos)
	assert.Equal(t, "45111222", results[0].DocumentoIdentidad)
	assert.Equal(t, "09/03/2015", results[0].FechaNacimiento)

	results, err = SearchNinos(db, "4511")
	require.NoError(t, err)
	assert.Len(t, results, 1)

	results, err = SearchNinos(db, "lucia")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "", results[0].DocumentoIdentidad)
	assert.Equal(t, "", results[0].FechaNacimiento)

	for i := 0; i < 12; i++ {
		_, err := CreateNino(db, actor, NinoInput{Nombre: "Hermano", Apellido: "Pérez " + string(rune('A'+i))})
		require.NoError(t, err)
	}
	results, err = SearchNinos(db, "perez")
	require.NoError(t, err)
	assert.Len(t, results, 10)
}

func TestListNinosFilters(t *testing.T) {
	db := setupTestDB(t)
	actor := testActor(models.RoleOperador)

	older := time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
	younger := time.Date(2018, 6, 1, 0, 0, 0, 0, time.UTC)
	_, err := CreateNino(db, actor, NinoInput{Nombre: "Ana", Apellido: "Zapata", FechaNac: &older})
	require.NoError(t, err)
	_, err = CreateNino(db, actor, NinoInput{Nombre: "Beto", Apellido: "Acosta", FechaNac: &younger})
	require.NoError(t, err)

	ninos, total, err := ListNinos(db, PersonaFilter{}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, "ACOSTA", ninos[0].Apellido)

	ninos, _, err = ListNinos(db, PersonaFilter{FechaNacDesde: time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)}, 1, 20)
	require.NoError(t, err)
	require.Len(t, ninos, 1)
	assert.Equal(t, "ACOSTA", ninos[0].Apellido)

	ninos, _, err = ListNinos(db, PersonaFilter{Busqueda: "zap"}, 1, 20)
	require.NoError(t, err)
	require.Len(t, ninos, 1)
	assert.Equal(t, "ZAPATA", ninos[0].Apellido)
}

func TestParteCRUD(t *testing.T) {
	db := setupTestDB(t)
	actor := testActor(models.RoleOperador)

	parte, err := CreateParte(db, actor, ParteInput{Nombre: "luis", Apellido: "gómez", Telefono: " 299  555 "})
	require.NoError(t, err)
	assert.Equal(t, "LUIS", parte.Nombre)
	assert.Equal(t, "299 555", parte.Telefono)

	_, err = CreateParte(db, actor, ParteInput{Nombre: "Luis", Apellido: "Gómez"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	updated, err := UpdateParte(db, actor, parte.ID, ParteInput{Nombre: "Luis", Apellido: "Gómez", DNI: "30.000.000"})
	require.NoError(t, err)
	assert.Equal(t, "30000000", *updated.DNI)

	partes, total, err := ListPartes(db, PersonaFilter{Busqueda: "30000"}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, partes, 1)

	require.NoError(t, DeleteParte(db, actor, parte.ID))
	_, err = GetParte(db, parte.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	history, err := GetResourceHistory(db, models.HistoryResourceParte, parte.ID)
	require.NoError(t, err)
	assert.Len(t, history, 3)
}
