package services

import (
	"testing"

	"oficios_app_go/models"

	"github.com/stretchr/testify/assert"
)

func TestRoleForSector(t *testing.T) {
	tests := map[string]string{
		"Coordinación OPD":        models.RoleCoordinacion,
		"COORDINACION OPD NORTE":  models.RoleCoordinacion,
		"Despacho Niñez":          models.RoleDespacho,
		"Dirección de Niñez":      models.RoleOperador,
		"Director de Niñez":       models.RoleDirector,
		"Informática":             models.RoleAdmin,
		"Mesa de entradas":        models.RoleOperador,
		"  despacho   de  ninez ": models.RoleDespacho,
	}

	for sector, want := range tests {
		t.Run(sector, func(t *testing.T) {
			assert.Equal(t, want, RoleForSector(sector))
		})
	}
}

func TestPermissionsForRole(t *testing.T) {
	t.Run("coordinacion cannot manage referencias", func(t *testing.T) {
		p := PermissionsForRole(models.RoleCoordinacion)
		assert.False(t, p.Has(PermReferenciasManage))
		assert.True(t, p.Has(PermValidarCoord))
		assert.True(t, p.Has(PermOficioCreate|PermOficioTransition))
	})

	t.Run("operador manages referencias but cannot delete oficios", func(t *testing.T) {
		p := PermissionsForRole(models.RoleOperador)
		assert.True(t, p.Has(PermReferenciasManage))
		assert.False(t, p.Has(PermOficioDelete))
		assert.False(t, p.Has(PermCasosAll))
	})

	t.Run("profesional has nothing", func(t *testing.T) {
		assert.Equal(t, Permission(0), PermissionsForRole(models.RoleProfesional))
	})

	t.Run("unknown role has nothing", func(t *testing.T) {
		assert.Equal(t, Permission(0), PermissionsForRole("superuser"))
	})

	t.Run("admin has everything", func(t *testing.T) {
		p := PermissionsForRole(models.RoleAdmin)
		assert.True(t, p.Has(PermUsersManage|PermHistoryView|PermValidarDirector|PermOficioDelete))
	})
}

func TestActorForUser(t *testing.T) {
	u := &models.User{ID: "u1", Username: "jdoe", FirstName: "Juan", LastName: "Doe",
		Perfil: &models.UsuarioPerfil{Role: models.RoleDirector}}

	actor := ActorForUser(u)
	assert.Equal(t, "u1", actor.UserID)
	assert.Equal(t, "Doe, Juan", actor.UserName)
	assert.Equal(t, models.RoleDirector, actor.Role)
	assert.True(t, actor.Can(PermValidarDirector))
	assert.False(t, actor.Can(PermUsersManage))

	noProfile := ActorForUser(&models.User{ID: "u2", Username: "x"})
	assert.Equal(t, models.RoleOperador, noProfile.Role)
}
