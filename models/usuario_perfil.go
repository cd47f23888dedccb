package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UsuarioPerfil extends a User with its organizational data (one-to-one)
type UsuarioPerfil struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID        string  `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	SectorID      *string `gorm:"type:uuid;index" json:"sector_id"`
	InstitucionID *string `gorm:"type:uuid;index" json:"institucion_id"`
	EsProfesional bool    `gorm:"not null;default:false" json:"es_profesional"`
	Role          string  `gorm:"not null;default:operador" json:"role"`

	Sector      *Sector      `gorm:"foreignKey:SectorID" json:"sector,omitempty"`
	Institucion *Institucion `gorm:"foreignKey:InstitucionID" json:"institucion,omitempty"`
}

func (p *UsuarioPerfil) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

func (UsuarioPerfil) TableName() string {
	return "usuario_perfiles"
}

// Sector is an organizational unit users belong to
type Sector struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Nombre    string `gorm:"not null;uniqueIndex" json:"nombre"`
	Direccion string `json:"direccion"`
	Telefono  string `json:"telefono"`
}

func (s *Sector) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

func (Sector) TableName() string {
	return "sectores"
}
