package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		username string
		wantErr  bool
		errMsg   string
	}{
		{
			name:     "Valid password",
			password: "oficio2024",
			username: "jperez",
			wantErr:  false,
		},
		{
			name:     "Accented characters count once",
			password: "ñandúñandú",
			wantErr:  false,
		},
		{
			name:     "Too short",
			password: "abc123",
			wantErr:  true,
			errMsg:   "La contraseña debe tener al menos 8 caracteres.",
		},
		{
			name:     "Only digits",
			password: "20240101",
			wantErr:  true,
			errMsg:   "La contraseña no puede ser completamente numérica.",
		},
		{
			name:     "Common password",
			password: "Password1",
			wantErr:  true,
			errMsg:   "La contraseña es demasiado común.",
		},
		{
			name:     "Same as username",
			password: "JPerez2024",
			username: "jperez2024",
			wantErr:  true,
			errMsg:   "La contraseña no puede ser igual al usuario.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password, tt.username)
			if tt.wantErr {
				assert.EqualError(t, err, tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePasswordPair(t *testing.T) {
	ve := &ValidationError{}
	validatePassword("", "", "x", false, ve)
	assert.NoError(t, ve.OrNil())

	validatePassword("", "", "x", true, ve)
	assert.Contains(t, ve.Fields, "password")

	ve = &ValidationError{}
	validatePassword("oficio2024", "oficio2025", "x", false, ve)
	assert.Contains(t, ve.Fields, "password_confirm")
	assert.NotContains(t, ve.Fields, "password")
}
