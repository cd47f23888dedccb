package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrMovimientoInmutable is returned when an existing movimiento is updated
var ErrMovimientoInmutable = errors.New("movimientos are append-only")

// MovimientoOficio records one estado change of an oficio
type MovimientoOficio struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	OficioID       string  `gorm:"type:uuid;not null;index" json:"oficio_id"`
	EstadoAnterior *string `json:"estado_anterior"`
	EstadoNuevo    string  `gorm:"not null" json:"estado_nuevo"`
	Detalle        string  `gorm:"type:text" json:"detalle"`

	UsuarioID     *string `gorm:"type:uuid;index" json:"usuario_id"`
	InstitucionID *string `gorm:"type:uuid;index" json:"institucion_id"`

	Archivo Adjunto `gorm:"embedded;embeddedPrefix:archivo_" json:"archivo"`

	Oficio      *Oficio      `gorm:"foreignKey:OficioID" json:"oficio,omitempty"`
	Usuario     *User        `gorm:"foreignKey:UsuarioID" json:"usuario,omitempty"`
	Institucion *Institucion `gorm:"foreignKey:InstitucionID" json:"institucion,omitempty"`
}

func (m *MovimientoOficio) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// BeforeUpdate keeps the movement log append-only
func (m *MovimientoOficio) BeforeUpdate(tx *gorm.DB) error {
	return ErrMovimientoInmutable
}

func (MovimientoOficio) TableName() string {
	return "movimientos_oficio"
}

// Respuesta is an answer to an oficio, from staff or from a professional
type Respuesta struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OficioID      string    `gorm:"type:uuid;not null;index" json:"oficio_id"`
	UsuarioID     *string   `gorm:"type:uuid;index" json:"usuario_id"`
	ProfesionalID *string   `gorm:"type:uuid;index" json:"profesional_id"`
	InstitucionID *string   `gorm:"type:uuid;index" json:"institucion_id"`
	Texto         string    `gorm:"type:text" json:"respuesta"`
	Devuelto      bool      `gorm:"not null;default:false" json:"devuelto"`
	FechaHora     time.Time `gorm:"not null;index" json:"fecha_hora"`

	Archivo Adjunto `gorm:"embedded;embeddedPrefix:archivo_" json:"archivo"`

	Oficio      *Oficio      `gorm:"foreignKey:OficioID" json:"oficio,omitempty"`
	Usuario     *User        `gorm:"foreignKey:UsuarioID" json:"usuario,omitempty"`
	Profesional *User        `gorm:"foreignKey:ProfesionalID" json:"profesional,omitempty"`
	Institucion *Institucion `gorm:"foreignKey:InstitucionID" json:"institucion,omitempty"`
}

func (r *Respuesta) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

func (Respuesta) TableName() string {
	return "respuestas"
}
