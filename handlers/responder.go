package handlers

import (
	"errors"
	"log"
	"net/http"

	"oficios_app_go/db"
	"oficios_app_go/middleware"
	"oficios_app_go/models"
	"oficios_app_go/services"
	"oficios_app_go/templates/components"
	"oficios_app_go/templates/pages"

	"github.com/labstack/echo/v4"
)

// responderOficio resolves the response link token to its oficio
func responderOficio(c echo.Context) (*services.ResponseClaims, *models.Oficio, error) {
	claims, err := services.ParseResponseLink(getConfig(c).SessionSecret, c.Param("token"), now())
	if err != nil {
		return nil, nil, err
	}
	var oficio models.Oficio
	if err := db.DB.First(&oficio, "id = ?", claims.OficioID).Error; err != nil {
		return nil, nil, services.ErrInvalidLink
	}
	return claims, &oficio, nil
}

func linkInvalido(c echo.Context) error {
	return render(c, http.StatusNotFound, components.Layout("Enlace inválido | Mesa de Oficios",
		components.Alert("error", "El enlace de respuesta no es válido o expiró.")))
}

func responderView(c echo.Context, oficio *models.Oficio) pages.ResponderView {
	return pages.ResponderView{
		Token:            c.Param("token"),
		CSRFToken:        middleware.GetCSRFToken(c),
		Oficio:           oficio,
		TurnstileSiteKey: getConfig(c).TurnstileSiteKey,
	}
}

// ResponderHandler shows the public response form of a response link
func ResponderHandler(c echo.Context) error {
	_, oficio, err := responderOficio(c)
	if err != nil {
		return linkInvalido(c)
	}
	return render(c, http.StatusOK, pages.Responder(responderView(c, oficio)))
}

// ResponderPostHandler records a professional's reply submitted through a response link
func ResponderPostHandler(c echo.Context) error {
	claims, oficio, err := responderOficio(c)
	if err != nil {
		return linkInvalido(c)
	}
	view := responderView(c, oficio)
	fail := func(status int, msg string) error {
		view.Error = msg
		return render(c, status, pages.Responder(view))
	}

	cfg := getConfig(c)
	if cfg.TurnstileSecretKey != "" {
		ok, err := services.VerifyTurnstileToken(c.Request().Context(), c.FormValue("cf-turnstile-response"), cfg.TurnstileSecretKey, c.RealIP(), services.TurnstileActionResponder)
		if err != nil {
			log.Printf("[SECURITY] Turnstile verification error: %v", err)
		}
		if !ok {
			return fail(http.StatusBadRequest, "No se pudo verificar que sea una persona. Intente nuevamente.")
		}
	}

	file, err := optionalFile(c, "archivo")
	if err != nil {
		return fail(http.StatusBadRequest, "No se pudo leer el archivo adjunto.")
	}
	in := services.RespuestaInput{
		Texto:    c.FormValue("respuesta"),
		Devuelto: formBool(c, "devuelto"),
	}

	username := c.FormValue("username")
	_, err = services.CreateRespuestaProfesional(c.Request().Context(), db.DB, services.Storage, claims,
		username, c.FormValue("password"), in, file)
	if err != nil {
		var ve *services.ValidationError
		switch {
		case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrAccountLocked),
			errors.Is(err, services.ErrAccountInactive):
			services.Monitor.TrackFailedLogin(c.RealIP(), username)
			return fail(http.StatusUnauthorized, err.Error())
		case errors.Is(err, services.ErrPermissionDenied):
			return fail(http.StatusForbidden, "El usuario no pertenece a la institución destinataria del oficio.")
		case errors.Is(err, services.ErrInvalidLink):
			return linkInvalido(c)
		case errors.Is(err, services.ErrInvalidTransition):
			return fail(http.StatusConflict, "El oficio ya no admite respuestas.")
		case errors.As(err, &ve):
			return fail(http.StatusUnprocessableEntity, ve.Error())
		}
		log.Printf("[ERROR] Professional reply to oficio %s: %v", claims.OficioID, err)
		return fail(http.StatusInternalServerError, "Ocurrió un error inesperado.")
	}

	log.Printf("[RESPONDER] Reply to oficio %s recorded by %s", claims.OficioID, username)
	view.Enviado = true
	return render(c, http.StatusCreated, pages.Responder(view))
}
