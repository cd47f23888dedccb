package handlers

import (
	"net/http"
	"strings"

	"oficios_app_go/db"
	"oficios_app_go/middleware"
	"oficios_app_go/services"

	"github.com/labstack/echo/v4"
)

// ListCasosHandler lists the casos visible to the current user
func ListCasosHandler(c echo.Context) error {
	desde, err := queryDate(c, "fecha_desde")
	if err != nil {
		return err
	}
	hasta, err := queryDate(c, "fecha_hasta")
	if err != nil {
		return err
	}
	page, size := pagination(c)

	casos, total, err := services.ListCasos(db.DB, middleware.GetActor(c), services.CasoFilter{
		Busqueda:   strings.TrimSpace(c.QueryParam("busqueda")),
		Tipo:       c.QueryParam("tipo"),
		Estado:     c.QueryParam("estado"),
		NinoID:     c.QueryParam("nino"),
		FechaDesde: desde,
		FechaHasta: hasta,
	}, page, size)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, paged(casos, total, page, size))
}

// CreateCasoHandler creates a caso owned by the current user
func CreateCasoHandler(c echo.Context) error {
	var in services.CasoInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	caso, err := services.CreateCaso(db.DB, middleware.GetActor(c), in)
	if err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusCreated, "Caso creado con éxito.", caso)
}

// GetCasoHandler returns a caso with its people and oficios
func GetCasoHandler(c echo.Context) error {
	caso, err := services.GetCaso(db.DB, middleware.GetActor(c), c.Param("id"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, caso)
}

// visibleCaso fails with 404 when the current user cannot see caso id
func visibleCaso(c echo.Context, id string) error {
	_, err := services.GetCaso(db.DB, middleware.GetActor(c), id)
	return err
}

// UpdateCasoHandler edits a caso
func UpdateCasoHandler(c echo.Context) error {
	id := c.Param("id")
	if err := visibleCaso(c, id); err != nil {
		return serviceError(err)
	}
	var in services.CasoInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	caso, err := services.UpdateCaso(db.DB, middleware.GetActor(c), id, in)
	if err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusOK, "Caso actualizado con éxito.", caso)
}

// DeleteCasoHandler deletes a caso and detaches its oficios
func DeleteCasoHandler(c echo.Context) error {
	id := c.Param("id")
	if err := visibleCaso(c, id); err != nil {
		return serviceError(err)
	}
	if err := services.DeleteCaso(db.DB, middleware.GetActor(c), id); err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusOK, "Caso eliminado.", nil)
}

// CasoMovimientosHandler returns the movimientos of every oficio in the caso
func CasoMovimientosHandler(c echo.Context) error {
	id := c.Param("id")
	if err := visibleCaso(c, id); err != nil {
		return serviceError(err)
	}
	movs, err := services.CasoMovimientos(db.DB, id)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, movs)
}

// LinkOficioHandler attaches an oficio to the caso
func LinkOficioHandler(c echo.Context) error {
	id := c.Param("id")
	if err := services.LinkOficioToCaso(db.DB, middleware.GetActor(c), c.Param("oficio_id"), id); err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusOK, "Oficio vinculado al caso.", nil)
}

// UnlinkOficioHandler detaches an oficio from the caso
func UnlinkOficioHandler(c echo.Context) error {
	id := c.Param("id")
	if err := visibleCaso(c, id); err != nil {
		return serviceError(err)
	}
	if err := services.UnlinkOficioFromCaso(db.DB, id, c.Param("oficio_id")); err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusOK, "Oficio desvinculado del caso.", nil)
}
