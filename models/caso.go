package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Caso status constants
const (
	CasoEstadoAbierto   = "ABIERTO"
	CasoEstadoEnProceso = "EN_PROCESO"
	CasoEstadoCerrado   = "CERRADO"
)

// Caso type constants
const (
	CasoTipoMPA      = "MPA"
	CasoTipoJudicial = "JUDICIAL"
)

// Caso groups the oficios concerning the same children and parties
type Caso struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Tipo   string  `gorm:"not null;default:MPA" json:"tipo"`
	Expte  *string `gorm:"uniqueIndex" json:"expte"`
	Estado string  `gorm:"not null;default:ABIERTO;index" json:"estado"`

	UsuarioID *string `gorm:"type:uuid;index" json:"usuario_id"`
	Usuario   *User   `gorm:"foreignKey:UsuarioID" json:"usuario,omitempty"`

	Ninos   []CasoNino  `gorm:"foreignKey:CasoID" json:"ninos,omitempty"`
	Partes  []CasoParte `gorm:"foreignKey:CasoID" json:"partes,omitempty"`
	Oficios []Oficio    `gorm:"foreignKey:CasoID" json:"oficios,omitempty"`
}

func (c *Caso) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Estado == "" {
		c.Estado = CasoEstadoAbierto
	}
	return nil
}

func (Caso) TableName() string {
	return "casos"
}

// IsCerrado reports whether every oficio of the caso was sent
func (c *Caso) IsCerrado() bool {
	return c.Estado == CasoEstadoCerrado
}

// IsValidCasoEstado checks if the estado is valid
func IsValidCasoEstado(estado string) bool {
	switch estado {
	case CasoEstadoAbierto, CasoEstadoEnProceso, CasoEstadoCerrado:
		return true
	}
	return false
}

// IsValidCasoTipo checks if the tipo is valid
func IsValidCasoTipo(tipo string) bool {
	return tipo == CasoTipoMPA || tipo == CasoTipoJudicial
}

// CasoNino links a Nino to a Caso
type CasoNino struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	CasoID        string `gorm:"type:uuid;not null;uniqueIndex:idx_caso_nino" json:"caso_id"`
	NinoID        string `gorm:"type:uuid;not null;uniqueIndex:idx_caso_nino" json:"nino_id"`
	Observaciones string `gorm:"type:text" json:"observaciones"`

	Caso *Caso `gorm:"foreignKey:CasoID" json:"caso,omitempty"`
	Nino *Nino `gorm:"foreignKey:NinoID" json:"nino,omitempty"`
}

func (cn *CasoNino) BeforeCreate(tx *gorm.DB) error {
	if cn.ID == "" {
		cn.ID = uuid.New().String()
	}
	return nil
}

func (CasoNino) TableName() string {
	return "caso_ninos"
}

// CasoParte links a Parte to a Caso with its relationship to the children
type CasoParte struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	CasoID        string `gorm:"type:uuid;not null;uniqueIndex:idx_caso_parte" json:"caso_id"`
	ParteID       string `gorm:"type:uuid;not null;uniqueIndex:idx_caso_parte" json:"parte_id"`
	TipoRelacion  string `json:"tipo_relacion"`
	Observaciones string `gorm:"type:text" json:"observaciones"`

	Caso  *Caso  `gorm:"foreignKey:CasoID" json:"caso,omitempty"`
	Parte *Parte `gorm:"foreignKey:ParteID" json:"parte,omitempty"`
}

func (cp *CasoParte) BeforeCreate(tx *gorm.DB) error {
	if cp.ID == "" {
		cp.ID = uuid.New().String()
	}
	return nil
}

func (CasoParte) TableName() string {
	return "caso_partes"
}
