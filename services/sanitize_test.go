package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "Se remite informe", SanitizeText(" <b>Se remite</b> informe<script>alert(1)</script> "))
	assert.Equal(t, "Pérez & Cía", SanitizeText("Pérez & Cía"))
	assert.Equal(t, "línea 1\nlínea 2", SanitizeText("línea 1\nlínea 2"))
	assert.Equal(t, "", SanitizeText(""))
}
