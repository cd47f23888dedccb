package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Roles resolved from the user profile at login
const (
	RoleAdmin        = "admin"
	RoleDirector     = "director"
	RoleDespacho     = "despacho"
	RoleCoordinacion = "coordinacion"
	RoleOperador     = "operador"
	RoleProfesional  = "profesional"
)

// Roles lists every role in decreasing order of privilege
var Roles = []string{RoleAdmin, RoleDirector, RoleDespacho, RoleCoordinacion, RoleOperador, RoleProfesional}

// IsValidRole reports whether role is one of the known roles
func IsValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

type User struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Username  string     `gorm:"uniqueIndex;not null" json:"username"`
	FirstName string     `gorm:"not null;default:''" json:"first_name"`
	LastName  string     `gorm:"not null;default:''" json:"last_name"`
	Email     string     `gorm:"index" json:"email"`
	Password  string     `gorm:"not null" json:"-"`
	IsActive  bool       `gorm:"not null;default:true" json:"is_active"`
	LastLogin *time.Time `json:"last_login"`

	// Login lockout
	FailedLoginAttempts int        `gorm:"not null;default:0" json:"-"`
	LockoutUntil        *time.Time `json:"-"`

	Perfil *UsuarioPerfil `gorm:"foreignKey:UserID" json:"perfil,omitempty"`
}

// BeforeCreate hook to generate UUID
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// FullName returns "Apellido, Nombre" falling back to the username
func (u *User) FullName() string {
	name := strings.TrimSpace(strings.TrimSpace(u.LastName) + ", " + strings.TrimSpace(u.FirstName))
	name = strings.Trim(name, ", ")
	if name == "" {
		return u.Username
	}
	return name
}

// Role returns the profile role, operador when no profile is loaded
func (u *User) Role() string {
	if u.Perfil == nil || u.Perfil.Role == "" {
		return RoleOperador
	}
	return u.Perfil.Role
}

// IsProfesional reports whether the user is flagged as a professional
func (u *User) IsProfesional() bool {
	return u.Perfil != nil && (u.Perfil.EsProfesional || u.Perfil.Role == RoleProfesional)
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}
