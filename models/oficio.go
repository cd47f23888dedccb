package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Oficio status constants
const (
	OficioEstadoCargado    = "cargado"
	OficioEstadoAsignado   = "asignado"
	OficioEstadoRespondido = "respondido"
	OficioEstadoDevuelto   = "devuelto"
	OficioEstadoEnviado    = "enviado"
)

// Oficio type constants
const (
	OficioTipoMPA      = "MPA"
	OficioTipoJudicial = "Judicial"
)

// OficioEstados lists every estado in lifecycle order
var OficioEstados = []string{
	OficioEstadoCargado,
	OficioEstadoAsignado,
	OficioEstadoRespondido,
	OficioEstadoDevuelto,
	OficioEstadoEnviado,
}

// oficioTransitions is the set of allowed estado changes
var oficioTransitions = map[string][]string{
	OficioEstadoCargado:    {OficioEstadoAsignado},
	OficioEstadoAsignado:   {OficioEstadoCargado, OficioEstadoRespondido, OficioEstadoDevuelto},
	OficioEstadoRespondido: {OficioEstadoAsignado, OficioEstadoDevuelto, OficioEstadoEnviado},
	OficioEstadoDevuelto:   {OficioEstadoAsignado, OficioEstadoRespondido, OficioEstadoEnviado},
	OficioEstadoEnviado:    {OficioEstadoAsignado},
}

// IsValidOficioEstado checks if the estado is valid
func IsValidOficioEstado(estado string) bool {
	_, ok := oficioTransitions[estado]
	return ok
}

// CanTransitionOficio reports whether an oficio may move from one estado to another
func CanTransitionOficio(from, to string) bool {
	for _, next := range oficioTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextOficioEstados returns the estados reachable from estado
func NextOficioEstados(estado string) []string {
	next := oficioTransitions[estado]
	out := make([]string, len(next))
	copy(out, next)
	return out
}

// OficioEstadoLabel returns the display label of an estado
func OficioEstadoLabel(estado string) string {
	switch estado {
	case OficioEstadoCargado:
		return "Cargado"
	case OficioEstadoAsignado:
		return "Asignado"
	case OficioEstadoRespondido:
		return "Respondido"
	case OficioEstadoDevuelto:
		return "Devuelto"
	case OficioEstadoEnviado:
		return "Enviado"
	}
	return estado
}

// Adjunto holds the metadata of a stored PDF attachment
type Adjunto struct {
	Key            string `json:"key,omitempty"`
	NombreOriginal string `json:"nombre_original,omitempty"`
	Size           int64  `json:"size,omitempty"`
}

// HasFile reports whether an attachment is stored
func (a Adjunto) HasFile() bool {
	return a.Key != ""
}

// Oficio is an official document received from a court or prosecutor
type Oficio struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	NroOficio      string `gorm:"index" json:"nro_oficio"`
	Tipo           string `gorm:"not null;default:MPA" json:"tipo"`
	Denuncia       string `gorm:"index" json:"denuncia"`
	Legajo         string `gorm:"index" json:"legajo"`
	Expte          string `json:"expte"`
	CaratulaOficio string `gorm:"type:text" json:"caratula_oficio"`

	Estado string `gorm:"not null;default:cargado;index" json:"estado"`

	// Deadline
	PlazoHoras       *int       `json:"plazo_horas"`
	FechaEmision     time.Time  `gorm:"not null;index" json:"fecha_emision"`
	FechaVencimiento *time.Time `gorm:"index" json:"fecha_vencimiento"`
	FechaEnvio       *time.Time `json:"fecha_envio"`

	// Internal sign-off
	ValidadoCoord    bool `gorm:"not null;default:false" json:"validado_coord"`
	ValidadoDirector bool `gorm:"not null;default:false" json:"validado_director"`

	AvisoVencimientoAt *time.Time `json:"-"`

	Archivo Adjunto `gorm:"embedded;embeddedPrefix:archivo_" json:"archivo"`

	InstitucionID *string `gorm:"type:uuid;index" json:"institucion_id"`
	JuzgadoID     *string `gorm:"type:uuid;index" json:"juzgado_id"`
	CaratulaID    *string `gorm:"type:uuid;index" json:"caratula_id"`
	CasoID        *string `gorm:"type:uuid;index" json:"caso_id"`
	UsuarioID     *string `gorm:"type:uuid;index" json:"usuario_id"`

	Institucion   *Institucion  `gorm:"foreignKey:InstitucionID" json:"institucion,omitempty"`
	Juzgado       *Juzgado      `gorm:"foreignKey:JuzgadoID" json:"juzgado,omitempty"`
	Caratula      *Caratula     `gorm:"foreignKey:CaratulaID" json:"caratula,omitempty"`
	Caso          *Caso         `gorm:"foreignKey:CasoID" json:"caso,omitempty"`
	Usuario       *User         `gorm:"foreignKey:UsuarioID" json:"usuario,omitempty"`
	Instituciones []Institucion `gorm:"many2many:oficio_instituciones" json:"instituciones,omitempty"`
	Ninos         []OficioNino  `gorm:"foreignKey:OficioID" json:"ninos,omitempty"`
	Partes        []OficioParte `gorm:"foreignKey:OficioID" json:"partes,omitempty"`

	Movimientos []MovimientoOficio `gorm:"foreignKey:OficioID" json:"movimientos,omitempty"`
	Respuestas  []Respuesta        `gorm:"foreignKey:OficioID" json:"respuestas,omitempty"`
}

func (o *Oficio) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	return nil
}

func (Oficio) TableName() string {
	return "oficios"
}

// IsVencido reports whether the oficio is past due and still pending delivery
func (o *Oficio) IsVencido(now time.Time) bool {
	return o.FechaVencimiento != nil && o.Estado != OficioEstadoEnviado && now.After(*o.FechaVencimiento)
}

// OficioNino links a Nino to an Oficio
type OficioNino struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	OficioID      string `gorm:"type:uuid;not null;uniqueIndex:idx_oficio_nino" json:"oficio_id"`
	NinoID        string `gorm:"type:uuid;not null;uniqueIndex:idx_oficio_nino" json:"nino_id"`
	Observaciones string `gorm:"type:text" json:"observaciones"`

	Nino *Nino `gorm:"foreignKey:NinoID" json:"nino,omitempty"`
}

func (on *OficioNino) BeforeCreate(tx *gorm.DB) error {
	if on.ID == "" {
		on.ID = uuid.New().String()
	}
	return nil
}

func (OficioNino) TableName() string {
	return "oficio_ninos"
}

// OficioParte links a Parte to an Oficio
type OficioParte struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	OficioID      string `gorm:"type:uuid;not null;uniqueIndex:idx_oficio_parte" json:"oficio_id"`
	ParteID       string `gorm:"type:uuid;not null;uniqueIndex:idx_oficio_parte" json:"parte_id"`
	TipoRelacion  string `json:"tipo_relacion"`
	Observaciones string `gorm:"type:text" json:"observaciones"`

	Parte *Parte `gorm:"foreignKey:ParteID" json:"parte,omitempty"`
}

func (op *OficioParte) BeforeCreate(tx *gorm.DB) error {
	if op.ID == "" {
		op.ID = uuid.New().String()
	}
	return nil
}

func (OficioParte) TableName() string {
	return "oficio_partes"
}
