package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrSameEstado        = errors.New("el estado de destino debe ser distinto al actual")
	ErrInvalidTransition = errors.New("transición de estado no permitida")
	ErrPermissionDenied  = errors.New("permiso denegado")
	ErrProfesionalLogin  = errors.New("Los profesionales no pueden iniciar sesión por ahora.")
	ErrInvalidLink       = errors.New("el enlace de respuesta no es válido o expiró")
)

// ValidationError collects per-field messages for a rejected form
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return strings.Join(parts, "; ")
}

// Add records a message for field, keeping the first one
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// OrNil returns the error only when at least one field failed
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func fieldError(field, msg string) error {
	ve := &ValidationError{}
	ve.Add(field, msg)
	return ve
}

// InUseError blocks a delete while other records reference the target
type InUseError struct {
	Count int64
	What  string // plural label, "oficio(s)" when empty
}

func (e *InUseError) Error() string {
	what := e.What
	if what == "" {
		what = "oficio(s)"
	}
	return fmt.Sprintf("No se puede eliminar porque tiene %d %s asociado(s).", e.Count, what)
}
