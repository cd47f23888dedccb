package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Institucion is an external recipient of oficios (school, hospital, police unit...)
type Institucion struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Nombre    string `gorm:"not null;index" json:"nombre"`
	Direccion string `json:"direccion"`
	Email     string `json:"email"`
	Telefono  string `json:"telefono"`
}

func (i *Institucion) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	return nil
}

func (Institucion) TableName() string {
	return "instituciones"
}

// CategoriaJuzgado groups courts (familia, penal, ...)
type CategoriaJuzgado struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Nombre string `gorm:"not null;uniqueIndex" json:"nombre"`
}

func (c *CategoriaJuzgado) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

func (CategoriaJuzgado) TableName() string {
	return "categorias_juzgado"
}

// Juzgado is the court that issued an oficio
type Juzgado struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Nombre      string  `gorm:"not null;index" json:"nombre"`
	Direccion   string  `json:"direccion"`
	Telefono    string  `json:"telefono"`
	CategoriaID *string `gorm:"type:uuid;index" json:"categoria_id"`

	Categoria *CategoriaJuzgado `gorm:"foreignKey:CategoriaID" json:"categoria,omitempty"`
}

func (j *Juzgado) BeforeCreate(tx *gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.New().String()
	}
	return nil
}

func (Juzgado) TableName() string {
	return "juzgados"
}

// Caratula is a catalogued case title
type Caratula struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Nombre string `gorm:"not null;index" json:"nombre"`
	Nota   string `gorm:"type:text" json:"nota"`
}

func (c *Caratula) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

func (Caratula) TableName() string {
	return "caratulas"
}
