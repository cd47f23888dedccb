package services

import (
	"strings"

	"oficios_app_go/models"
)

// Permission is a bit set of actions a user may perform
type Permission int64

const (
	PermOficioCreate Permission = 1 << iota
	PermOficioEdit
	PermOficioDelete
	PermOficioTransition
	PermOficioRespond
	PermReferenciasManage
	PermValidarCoord
	PermValidarDirector
	PermCasosAll
	PermUsersManage
	PermHistoryView
)

const permStaff = PermOficioCreate | PermOficioEdit | PermOficioTransition | PermOficioRespond

var rolePermissions = map[string]Permission{
	models.RoleAdmin: permStaff | PermOficioDelete | PermReferenciasManage | PermValidarCoord |
		PermValidarDirector | PermCasosAll | PermUsersManage | PermHistoryView,
	models.RoleDirector:     permStaff | PermOficioDelete | PermReferenciasManage | PermValidarDirector | PermCasosAll | PermHistoryView,
	models.RoleDespacho:     permStaff | PermOficioDelete | PermReferenciasManage | PermCasosAll,
	models.RoleCoordinacion: permStaff | PermValidarCoord | PermCasosAll,
	models.RoleOperador:     permStaff | PermReferenciasManage,
	models.RoleProfesional:  0,
}

// PermissionsForRole returns the permission set granted to role
func PermissionsForRole(role string) Permission {
	return rolePermissions[role]
}

// Has reports whether every flag in want is set
func (p Permission) Has(want Permission) bool {
	return p&want == want
}

// RoleForSector maps a legacy sector name to a role.
// Used once when a user is created from a sector, never at request time.
func RoleForSector(sector string) string {
	s := strings.ToLower(FoldAccents(CollapseSpaces(sector)))
	switch {
	case strings.Contains(s, "coordinacion opd"):
		return models.RoleCoordinacion
	case strings.Contains(s, "despacho") && strings.Contains(s, "ninez"):
		return models.RoleDespacho
	case strings.Contains(s, "director") && strings.Contains(s, "ninez"):
		return models.RoleDirector
	case strings.Contains(s, "informatica"):
		return models.RoleAdmin
	}
	return models.RoleOperador
}

// Actor identifies who performs an operation
type Actor struct {
	UserID      string
	UserName    string
	Role        string
	Permissions Permission
	IPAddress   string
}

// Can reports whether the actor holds perm
func (a Actor) Can(perm Permission) bool {
	return a.Permissions.Has(perm)
}

func (a Actor) userIDPtr() *string {
	return strPtrOrNil(a.UserID)
}

// ActorForUser builds an Actor from a loaded user with its profile
func ActorForUser(u *models.User) Actor {
	role := u.Role()
	return Actor{
		UserID:      u.ID,
		UserName:    u.FullName(),
		Role:        role,
		Permissions: PermissionsForRole(role),
	}
}
