package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"oficios_app_go/services"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"NotFound", fmt.Errorf("wrap: %w", services.ErrNotFound), http.StatusNotFound},
		{"Permission", services.ErrPermissionDenied, http.StatusForbidden},
		{"SameEstado", services.ErrSameEstado, http.StatusConflict},
		{"Transition", services.ErrInvalidTransition, http.StatusConflict},
		{"InvalidLink", services.ErrInvalidLink, http.StatusNotFound},
		{"Credentials", services.ErrInvalidCredentials, http.StatusUnauthorized},
		{"InUse", &services.InUseError{Count: 2}, http.StatusConflict},
		{"Validation", &services.ValidationError{Fields: map[string]string{"nombre": "Obligatorio."}}, http.StatusUnprocessableEntity},
		{"HTTPError", echo.NewHTTPError(http.StatusTeapot, "x"), http.StatusTeapot},
		{"Unknown", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var he *echo.HTTPError
			require.ErrorAs(t, serviceError(tt.err), &he)
			assert.Equal(t, tt.code, he.Code)
		})
	}

	t.Run("InternalMessageHidden", func(t *testing.T) {
		he := serviceError(errors.New("pq: connection refused")).(*echo.HTTPError)
		assert.Equal(t, "Ocurrió un error inesperado.", he.Message)
	})

	t.Run("TransitionCapitalized", func(t *testing.T) {
		he := serviceError(services.ErrInvalidTransition).(*echo.HTTPError)
		assert.Equal(t, "Transición de estado no permitida.", he.Message)
	})
}

func TestPagination(t *testing.T) {
	e := echo.New()
	tests := []struct {
		query      string
		page, size int
	}{
		{"", 1, defaultPageSize},
		{"?page=3&page_size=50", 3, 50},
		{"?page=0&page_size=-1", 1, defaultPageSize},
		{"?page=x&page_size=1000", 1, maxPageSize},
	}
	for _, tt := range tests {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/"+tt.query, nil), httptest.NewRecorder())
		page, size := pagination(c)
		assert.Equal(t, tt.page, page, tt.query)
		assert.Equal(t, tt.size, size, tt.query)
	}
}

func TestValidationSummary(t *testing.T) {
	msg := validationSummary(map[string]interface{}{
		"message": "Revise los datos ingresados.",
		"errors":  map[string]string{"nombre": "El nombre es obligatorio."},
	})
	assert.Contains(t, msg, "Revise los datos ingresados.")
	assert.Contains(t, msg, "El nombre es obligatorio.")
}
