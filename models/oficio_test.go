package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func TestCanTransitionOficio(t *testing.T) {
	assert.True(t, CanTransitionOficio(OficioEstadoCargado, OficioEstadoAsignado))
	assert.True(t, CanTransitionOficio(OficioEstadoAsignado, OficioEstadoRespondido))
	assert.True(t, CanTransitionOficio(OficioEstadoDevuelto, OficioEstadoEnviado))
	assert.True(t, CanTransitionOficio(OficioEstadoEnviado, OficioEstadoAsignado))
	assert.True(t, CanTransitionOficio(OficioEstadoRespondido, OficioEstadoDevuelto))
	assert.True(t, CanTransitionOficio(OficioEstadoDevuelto, OficioEstadoRespondido))

	assert.False(t, CanTransitionOficio(OficioEstadoCargado, OficioEstadoEnviado))
	assert.False(t, CanTransitionOficio(OficioEstadoCargado, OficioEstadoCargado))
	assert.False(t, CanTransitionOficio("archivado", OficioEstadoCargado))
}

func TestNextOficioEstadosReturnsCopy(t *testing.T) {
	next := NextOficioEstados(OficioEstadoCargado)
	next[0] = "x"
	assert.Equal(t, []string{OficioEstadoAsignado}, NextOficioEstados(OficioEstadoCargado))
}

func TestOficioIsVencido(t *testing.T) {
	now := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)

	o := Oficio{Estado: OficioEstadoAsignado, FechaVencimiento: &past}
	assert.True(t, o.IsVencido(now))

	o.Estado = OficioEstadoEnviado
	assert.False(t, o.IsVencido(now))

	o = Oficio{Estado: OficioEstadoCargado}
	assert.False(t, o.IsVencido(now))
}

func TestHistoryRecordChanges(t *testing.T) {
	h := HistoryRecord{
		OldValues: datatypes.JSON(`{"estado":"ABIERTO","tipo":"MPA"}`),
		NewValues: datatypes.JSON(`{"estado":"CERRADO","tipo":"MPA","expte":"12"}`),
	}

	changes := h.Changes()
	assert.Len(t, changes, 2)
	assert.Equal(t, "estado", changes[0].Field)
	assert.Equal(t, "ABIERTO", changes[0].Old)
	assert.Equal(t, "CERRADO", changes[0].New)
	assert.Equal(t, "expte", changes[1].Field)
	assert.Nil(t, changes[1].Old)
}
