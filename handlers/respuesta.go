package handlers

import (
	"errors"
	"net/http"
	"strings"

	"oficios_app_go/db"
	"oficios_app_go/middleware"
	"oficios_app_go/models"
	"oficios_app_go/services"

	"github.com/labstack/echo/v4"
)

type respuestaRequest struct {
	Texto         string `json:"respuesta"`
	InstitucionID string `json:"institucion"`
	Devuelto      bool   `json:"devuelto"`
	FechaHora     string `json:"fecha_hora"`
}

func respuestaInput(c echo.Context) (services.RespuestaInput, error) {
	req := respuestaRequest{
		Texto:         c.FormValue("respuesta"),
		InstitucionID: c.FormValue("institucion"),
		FechaHora:     c.FormValue("fecha_hora"),
	}
	if isJSONRequest(c) {
		if err := bindJSON(c, &req); err != nil {
			return services.RespuestaInput{}, err
		}
	} else {
		req.Devuelto = formBool(c, "devuelto")
	}

	in := services.RespuestaInput{
		Texto:         req.Texto,
		InstitucionID: req.InstitucionID,
		Devuelto:      req.Devuelto,
	}
	if v := strings.TrimSpace(req.FechaHora); v != "" {
		t, err := services.ParseDateTime(v)
		if err != nil {
			return in, &services.ValidationError{Fields: map[string]string{"fecha_hora": "Fecha inválida."}}
		}
		in.FechaHora = t
	}
	return in, nil
}

// ListRespuestasHandler returns the replies of an oficio
func ListRespuestasHandler(c echo.Context) error {
	respuestas, err := services.ListRespuestas(db.DB, c.Param("id"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, respuestas)
}

// CreateRespuestaHandler records a staff reply to an oficio
func CreateRespuestaHandler(c echo.Context) error {
	in, err := respuestaInput(c)
	if err != nil {
		return serviceError(err)
	}
	file, err := optionalFile(c, "archivo")
	if err != nil {
		return err
	}

	resp, err := services.CreateRespuesta(c.Request().Context(), db.DB, services.Storage, middleware.GetActor(c), c.Param("id"), in, file)
	if err != nil {
		if errors.Is(err, services.ErrInvalidTransition) {
			return echo.NewHTTPError(http.StatusConflict, "El oficio no admite respuestas en su estado actual.")
		}
		return serviceError(err)
	}
	return respond(c, http.StatusCreated, "Respuesta registrada.", resp)
}

// DeleteRespuestaHandler removes a reply and its attachment
func DeleteRespuestaHandler(c echo.Context) error {
	if _, err := services.DeleteRespuesta(c.Request().Context(), db.DB, services.Storage, c.Param("id")); err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusOK, "Respuesta eliminada.", nil)
}

// DownloadRespuestaArchivoHandler serves the PDF attached to a reply
func DownloadRespuestaArchivoHandler(c echo.Context) error {
	var resp models.Respuesta
	if err := db.DB.Select("id", "archivo_key", "archivo_nombre_original").
		First(&resp, "id = ? AND oficio_id = ?", c.Param("rid"), c.Param("id")).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "El registro solicitado no existe.")
	}
	return streamAdjunto(c, resp.Archivo)
}
