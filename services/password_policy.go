package services

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// MinPasswordLength is the shortest accepted password
const MinPasswordLength = 8

// commonPasswords are rejected regardless of length
var commonPasswords = map[string]bool{
	"12345678":   true,
	"123456789":  true,
	"password":   true,
	"password1":  true,
	"contraseña": true,
	"qwertyui":   true,
	"11111111":   true,
	"abcd1234":   true,
}

// ValidatePassword checks a new password:
// - At least 8 characters
// - Not entirely numeric
// - Not a well-known password
// - Not equal to the username
func ValidatePassword(password, username string) error {
	if len([]rune(password)) < MinPasswordLength {
		return fmt.Errorf("La contraseña debe tener al menos %d caracteres.", MinPasswordLength)
	}
	if strings.IndexFunc(password, func(r rune) bool { return !unicode.IsDigit(r) }) == -1 {
		return errors.New("La contraseña no puede ser completamente numérica.")
	}
	if commonPasswords[strings.ToLower(password)] {
		return errors.New("La contraseña es demasiado común.")
	}
	if username != "" && strings.EqualFold(password, username) {
		return errors.New("La contraseña no puede ser igual al usuario.")
	}
	return nil
}

// validatePassword checks the optional password pair; required forces a value
func validatePassword(password, confirm, username string, required bool, ve *ValidationError) {
	if password == "" && confirm == "" {
		if required {
			ve.Add("password", "La contraseña es obligatoria.")
		}
		return
	}
	if err := ValidatePassword(password, username); err != nil {
		ve.Add("password", err.Error())
	}
	if password != confirm {
		ve.Add("password_confirm", "Las contraseñas no coinciden.")
	}
}
