package services

import (
	"time"
)

// Plazo units accepted by the oficio form
const (
	PlazoUnidadHoras = "horas"
	PlazoUnidadDias  = "dias"

	DefaultPlazoValor  = 5
	DefaultPlazoUnidad = PlazoUnidadDias
)

// ComputeVencimiento returns fecha_emision + plazo hours, or nil when no plazo is set
func ComputeVencimiento(emision time.Time, plazoHoras *int) *time.Time {
	if plazoHoras == nil || emision.IsZero() {
		return nil
	}
	v := emision.Add(time.Duration(*plazoHoras) * time.Hour)
	return &v
}

// PlazoToHoras converts a form plazo (value + unit) into hours.
// A nil valor means the oficio carries no deadline.
func PlazoToHoras(valor *int, unidad string) (*int, error) {
	if valor == nil {
		return nil, nil
	}
	if *valor < 1 {
		return nil, fieldError("plazo", "El plazo debe ser de al menos 1.")
	}

	horas := *valor
	switch unidad {
	case PlazoUnidadDias:
		horas *= 24
	case PlazoUnidadHoras, "":
	default:
		return nil, fieldError("plazo_unidad", "Unidad de plazo inválida.")
	}
	return &horas, nil
}

// vencimientoChanged reports whether the inputs of the due date differ from the stored ones
func vencimientoChanged(prevEmision time.Time, prevPlazo *int, emision time.Time, plazo *int) bool {
	if !prevEmision.Equal(emision) {
		return true
	}
	if (prevPlazo == nil) != (plazo == nil) {
		return true
	}
	return prevPlazo != nil && *prevPlazo != *plazo
}
