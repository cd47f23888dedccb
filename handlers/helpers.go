package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"oficios_app_go/config"
	"oficios_app_go/services"
	"oficios_app_go/templates/components"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// now is the clock used by handlers; tests replace it
var now = time.Now

func isHTMX(c echo.Context) bool {
	return c.Request().Header.Get("HX-Request") == "true"
}

func isJSONRequest(c echo.Context) bool {
	return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
}

func wantsJSON(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}

// render writes a templ component as the response
func render(c echo.Context, status int, component templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(status)
	return component.Render(c.Request().Context(), c.Response().Writer)
}

// respond sends a success message with its data: an alert partial for HTMX,
// {"message", "data"} JSON otherwise
func respond(c echo.Context, status int, message string, data interface{}) error {
	if isHTMX(c) {
		c.Response().Header().Set("HX-Trigger", "oficios:changed")
		return render(c, status, components.Alert("success", message))
	}
	return c.JSON(status, map[string]interface{}{
		"message": message,
		"data":    data,
	})
}

func getConfig(c echo.Context) *config.Config {
	if cfg, ok := c.Get("config").(*config.Config); ok {
		return cfg
	}
	return &config.Config{}
}

// pagination reads ?page and ?page_size
func pagination(c echo.Context) (int, int) {
	page, err := strconv.Atoi(c.QueryParam("page"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(c.QueryParam("page_size"))
	if err != nil || size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}

func paged(items interface{}, total int64, page, size int) map[string]interface{} {
	return map[string]interface{}{
		"items":     items,
		"total":     total,
		"page":      page,
		"page_size": size,
	}
}

// queryDate parses an optional YYYY-MM-DD or DD/MM/YYYY query parameter
func queryDate(c echo.Context, name string) (time.Time, error) {
	v := strings.TrimSpace(c.QueryParam(name))
	if v == "" {
		return time.Time{}, nil
	}
	t, err := services.ParseDate(v)
	if err != nil {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "Fecha inválida en "+name+".")
	}
	return t, nil
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func formBool(c echo.Context, name string) bool {
	switch strings.ToLower(c.FormValue(name)) {
	case "1", "true", "on", "si", "sí":
		return true
	}
	return false
}

// formIntPtr reads an optional integer form field
func formIntPtr(c echo.Context, name string) (*int, error) {
	v := strings.TrimSpace(c.FormValue(name))
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, &services.ValidationError{Fields: map[string]string{name: "Debe ser un número entero."}}
	}
	return &n, nil
}

// bindJSON decodes a JSON body into dst
func bindJSON(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Solicitud inválida.")
	}
	return nil
}

// serviceError maps service errors to HTTP errors with user-facing messages
func serviceError(err error) error {
	var ve *services.ValidationError
	var inUse *services.InUseError
	var he *echo.HTTPError

	switch {
	case errors.As(err, &he):
		return he
	case errors.Is(err, services.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "El registro solicitado no existe.")
	case errors.Is(err, services.ErrPermissionDenied):
		return echo.NewHTTPError(http.StatusForbidden, "No tiene permisos para realizar esta acción.")
	case errors.Is(err, services.ErrSameEstado), errors.Is(err, services.ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, capitalize(err.Error()))
	case errors.Is(err, services.ErrInvalidLink):
		return echo.NewHTTPError(http.StatusNotFound, capitalize(err.Error()))
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrAccountLocked),
		errors.Is(err, services.ErrAccountInactive), errors.Is(err, services.ErrProfesionalLogin):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.As(err, &inUse):
		return echo.NewHTTPError(http.StatusConflict, inUse.Error())
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, map[string]interface{}{
			"message": "Revise los datos ingresados.",
			"errors":  ve.Fields,
		})
	}
	log.Printf("[ERROR] %v", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "Ocurrió un error inesperado.")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:]) + "."
}

// ErrorHandler renders HTTP errors as alert partials for HTMX and falls back
// to echo's JSON errors for everything else
func ErrorHandler(e *echo.Echo) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		he, ok := err.(*echo.HTTPError)
		if !ok || !isHTMX(c) {
			e.DefaultHTTPErrorHandler(err, c)
			return
		}

		msg := http.StatusText(he.Code)
		switch m := he.Message.(type) {
		case string:
			msg = m
		case map[string]interface{}:
			msg = validationSummary(m)
		}
		// HTMX ignores error responses unless told to swap them
		c.Response().Header().Set("HX-Reswap", "innerHTML")
		if rerr := render(c, he.Code, components.Alert("error", msg)); rerr != nil {
			log.Printf("[ERROR] Failed to render error: %v", rerr)
		}
	}
}

func validationSummary(m map[string]interface{}) string {
	msg, _ := m["message"].(string)
	fields, ok := m["errors"].(map[string]string)
	if !ok || len(fields) == 0 {
		return msg
	}
	ve := &services.ValidationError{Fields: fields}
	return msg + " " + ve.Error()
}
