package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Nino is a child involved in one or more casos
type Nino struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Nombre              string     `gorm:"not null;index:idx_nino_nombre_apellido" json:"nombre"`
	Apellido            string     `gorm:"not null;index:idx_nino_nombre_apellido" json:"apellido"`
	DNI                 *string    `gorm:"uniqueIndex" json:"dni"`
	FechaNac            *time.Time `json:"fecha_nac"`
	Edad                *int       `json:"edad"`
	DomicilioPrincipal  string     `json:"domicilio_principal"`
	DomicilioSecundario string     `json:"domicilio_secundario"`

	// Accent-folded "APELLIDO NOMBRE DNI" used by searches
	Busqueda string `gorm:"index" json:"-"`

	Casos []CasoNino `gorm:"foreignKey:NinoID" json:"casos,omitempty"`
}

func (n *Nino) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return nil
}

func (Nino) TableName() string {
	return "ninos"
}

// NombreCompleto returns "APELLIDO, NOMBRE"
func (n *Nino) NombreCompleto() string {
	return n.Apellido + ", " + n.Nombre
}

// Parte is an adult related party (parent, guardian, ...)
type Parte struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Nombre    string  `gorm:"not null;index:idx_parte_nombre_apellido" json:"nombre"`
	Apellido  string  `gorm:"not null;index:idx_parte_nombre_apellido" json:"apellido"`
	DNI       *string `gorm:"uniqueIndex" json:"dni"`
	Telefono  string  `json:"telefono"`
	Direccion string  `json:"direccion"`

	Busqueda string `gorm:"index" json:"-"`

	Casos []CasoParte `gorm:"foreignKey:ParteID" json:"casos,omitempty"`
}

func (p *Parte) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

func (Parte) TableName() string {
	return "partes"
}

func (p *Parte) NombreCompleto() string {
	return p.Apellido + ", " + p.Nombre
}
