package handlers

import (
	"net/http"
	"strings"

	"oficios_app_go/db"
	"oficios_app_go/middleware"
	"oficios_app_go/services"

	"github.com/labstack/echo/v4"
)

// ListProfesionalesHandler lists the professionals of the external institutions
func ListProfesionalesHandler(c echo.Context) error {
	page, size := pagination(c)
	users, total, err := services.ListProfesionales(db.DB, strings.TrimSpace(c.QueryParam("busqueda")), c.QueryParam("institucion"), page, size)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, paged(users, total, page, size))
}

// CreateProfesionalHandler creates a professional account
func CreateProfesionalHandler(c echo.Context) error {
	var in services.ProfesionalInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	user, err := services.CreateProfesional(db.DB, middleware.GetActor(c), in)
	if err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusCreated, "Profesional creado con éxito.", user)
}

// GetProfesionalHandler returns a professional with its institution
func GetProfesionalHandler(c echo.Context) error {
	user, err := services.GetProfesional(db.DB, c.Param("id"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateProfesionalHandler edits a professional; an empty password keeps the current one
func UpdateProfesionalHandler(c echo.Context) error {
	var in services.ProfesionalInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	user, err := services.UpdateProfesional(db.DB, middleware.GetActor(c), c.Param("id"), in)
	if err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusOK, "Profesional actualizado con éxito.", user)
}

// DeleteProfesionalHandler removes a professional account
func DeleteProfesionalHandler(c echo.Context) error {
	if err := services.DeleteProfesional(db.DB, middleware.GetActor(c), c.Param("id")); err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusOK, "Profesional eliminado.", nil)
}
