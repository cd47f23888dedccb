package services

import (
	"testing"

	"oficios_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteInstitucionInUse(t *testing.T) {
	db := setupTestDB(t)

	inst, err := CreateInstitucion(db, InstitucionInput{Nombre: " hospital   zonal ", Email: "mesa@hospital.org"})
	require.NoError(t, err)
	assert.Equal(t, "HOSPITAL ZONAL", inst.Nombre)

	for i := 0; i < 3; i++ {
		o := createTestOficio(t, db, models.OficioEstadoAsignado, nil)
		require.NoError(t, db.Model(o).Update("institucion_id", inst.ID).Error)
	}

	err = DeleteInstitucion(db, inst.ID)
	var inUse *InUseError
	require.ErrorAs(t, err, &inUse)
	assert.Equal(t, int64(3), inUse.Count)
	assert.Equal(t, "No se puede eliminar porque tiene 3 oficio(s) asociado(s).", err.Error())

	_, err = GetInstitucion(db, inst.ID)
	assert.NoError(t, err)
}

func TestDeleteInstitucionCountsDestinatarias(t *testing.T) {
	db := setupTestDB(t)
	inst := createTestInstitucion(t, db, "ESCUELA 4")
	o := createTestOficio(t, db, models.OficioEstadoCargado, nil)
	require.NoError(t, db.Model(o).Association("Instituciones").Append(inst))

	var inUse *InUseError
	require.ErrorAs(t, DeleteInstitucion(db, inst.ID), &inUse)
	assert.Equal(t, int64(1), inUse.Count)
}

func TestInstitucionCRUD(t *testing.T) {
	db := setupTestDB(t)

	inst, err := CreateInstitucion(db, InstitucionInput{Nombre: "Comisaría 1"})
	require.NoError(t, err)

	_, err = CreateInstitucion(db, InstitucionInput{Nombre: "comisaría 1"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "nombre")

	_, err = CreateInstitucion(db, InstitucionInput{Nombre: "Otra", Email: "no-es-email"})
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "email")

	updated, err := UpdateInstitucion(db, inst.ID, InstitucionInput{Nombre: "Comisaría 2", Telefono: "101"})
	require.NoError(t, err)
	assert.Equal(t, "COMISARÍA 2", updated.Nombre)

	list, total, err := ListInstituciones(db, "2", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, list, 1)

	require.NoError(t, DeleteInstitucion(db, inst.ID))
	assert.ErrorIs(t, DeleteInstitucion(db, inst.ID), ErrNotFound)
}

func TestJuzgadoAndCategoria(t *testing.T) {
	db := setupTestDB(t)

	cat, err := CreateCategoria(db, "familia")
	require.NoError(t, err)
	assert.Equal(t, "FAMILIA", cat.Nombre)

	j, err := CreateJuzgado(db, JuzgadoInput{Nombre: "Juzgado de Familia 1", CategoriaID: cat.ID})
	require.NoError(t, err)

	_, err = CreateJuzgado(db, JuzgadoInput{Nombre: "Juzgado 2", CategoriaID: "missing"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "categoria")

	var inUse *InUseError
	err = DeleteCategoria(db, cat.ID)
	require.ErrorAs(t, err, &inUse)
	assert.Equal(t, "No se puede eliminar porque tiene 1 juzgado(s) asociado(s).", err.Error())

	o := createTestOficio(t, db, models.OficioEstadoCargado, nil)
	require.NoError(t, db.Model(o).Update("juzgado_id", j.ID).Error)
	require.ErrorAs(t, DeleteJuzgado(db, j.ID), &inUse)

	juzgados, _, err := ListJuzgados(db, "", 1, 20)
	require.NoError(t, err)
	require.Len(t, juzgados, 1)
	require.NotNil(t, juzgados[0].Categoria)
	assert.Equal(t, "FAMILIA", juzgados[0].Categoria.Nombre)

	require.NoError(t, db.Model(o).Update("juzgado_id", nil).Error)
	require.NoError(t, DeleteJuzgado(db, j.ID))
	require.NoError(t, DeleteCategoria(db, cat.ID))
}

func TestCaratulaDeleteProtection(t *testing.T) {
	db := setupTestDB(t)

	c, err := CreateCaratula(db, CaratulaInput{Nombre: "medida de protección", Nota: "<i>ver</i> ley"})
	require.NoError(t, err)
	assert.Equal(t, "MEDIDA DE PROTECCIÓN", c.Nombre)
	assert.Equal(t, "ver ley", c.Nota)

	o := createTestOficio(t, db, models.OficioEstadoCargado, nil)
	require.NoError(t, db.Model(o).Update("caratula_id", c.ID).Error)

	var inUse *InUseError
	require.ErrorAs(t, DeleteCaratula(db, c.ID), &inUse)
	assert.Equal(t, int64(1), inUse.Count)
}

func TestSectorCRUD(t *testing.T) {
	db := setupTestDB(t)

	s, err := CreateSector(db, SectorInput{Nombre: "Despacho Niñez"})
	require.NoError(t, err)

	user, _ := createTestUser(t, db, "operador1", models.RoleOperador)
	require.NoError(t, db.Model(user.Perfil).Update("sector_id", s.ID).Error)

	var inUse *InUseError
	require.ErrorAs(t, DeleteSector(db, s.ID), &inUse)
	assert.Equal(t, "No se puede eliminar porque tiene 1 usuario(s) asociado(s).", inUse.Error())

	sectores, err := ListSectores(db)
	require.NoError(t, err)
	assert.Len(t, sectores, 1)
}
