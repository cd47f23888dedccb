package handlers

import (
	"net/http"
	"strings"

	"oficios_app_go/db"
	"oficios_app_go/middleware"
	"oficios_app_go/services"

	"github.com/labstack/echo/v4"
)

// ninoRequest accepts fecha_nac as a plain date
type ninoRequest struct {
	Nombre              string `json:"nombre"`
	Apellido            string `json:"apellido"`
	DNI                 string `json:"dni"`
	FechaNac            string `json:"fecha_nac"`
	Edad                *int   `json:"edad"`
	DomicilioPrincipal  string `json:"domicilio_principal"`
	DomicilioSecundario string `json:"domicilio_secundario"`
}

func ninoInput(c echo.Context) (services.NinoInput, error) {
	var req ninoRequest
	if err := bindJSON(c, &req); err != nil {
		return services.NinoInput{}, err
	}
	fecha, err := services.ParseOptionalDate(req.FechaNac)
	if err != nil {
		return services.NinoInput{}, &services.ValidationError{Fields: map[string]string{"fecha_nac": "Fecha de nacimiento inválida."}}
	}
	return services.NinoInput{
		Nombre:              req.Nombre,
		Apellido:            req.Apellido,
		DNI:                 req.DNI,
		FechaNac:            fecha,
		Edad:                req.Edad,
		DomicilioPrincipal:  req.DomicilioPrincipal,
		DomicilioSecundario: req.DomicilioSecundario,
	}, nil
}

func personaFilter(c echo.Context) (services.PersonaFilter, error) {
	desde, err := queryDate(c, "fecha_nac_desde")
	if err != nil {
		return services.PersonaFilter{}, err
	}
	hasta, err := queryDate(c, "fecha_nac_hasta")
	if err != nil {
		return services.PersonaFilter{}, err
	}
	return services.PersonaFilter{
		Busqueda:      strings.TrimSpace(c.QueryParam("busqueda")),
		FechaNacDesde: desde,
		FechaNacHasta: hasta,
	}, nil
}

// ListNinosHandler lists child records
func ListNinosHandler(c echo.Context) error {
	filter, err := personaFilter(c)
	if err != nil {
		return err
	}
	page, size := pagination(c)
	ninos, total, err := services.ListNinos(db.DB, filter, page, size)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, paged(ninos, total, page, size))
}

// SearchNinosHandler powers the child autocomplete
func SearchNinosHandler(c echo.Context) error {
	results, err := services.SearchNinos(db.DB, c.QueryParam("q"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, results)
}

// CreateNinoHandler creates a child record
func CreateNinoHandler(c echo.Context) error {
	in, err := ninoInput(c)
	if err != nil {
		return serviceError(err)
	}
	nino, err := services.CreateNino(db.DB, middleware.GetActor(c), in)
	if err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusCreated, "Niño registrado con éxito.", nino)
}

// GetNinoHandler returns a child record with its casos
func GetNinoHandler(c echo.Context) error {
	nino, err := services.GetNino(db.DB, c.Param("id"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, nino)
}

// UpdateNinoHandler edits a child record
func UpdateNinoHandler(c echo.Context) error {
	in, err := ninoInput(c)
	if err != nil {
		return serviceError(err)
	}
	nino, err := services.UpdateNino(db.DB, middleware.GetActor(c), c.Param("id"), in)
	if err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusOK, "Niño actualizado con éxito.", nino)
}

// DeleteNinoHandler deletes a child record not linked to any caso
func DeleteNinoHandler(c echo.Context) error {
	if err := services.DeleteNino(db.DB, middleware.GetActor(c), c.Param("id")); err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusOK, "Niño eliminado.", nil)
}

// ListPartesHandler lists related parties
func ListPartesHandler(c echo.Context) error {
	filter, err := personaFilter(c)
	if err != nil {
		return err
	}
	page, size := pagination(c)
	partes, total, err := services.ListPartes(db.DB, filter, page, size)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, paged(partes, total, page, size))
}

// CreateParteHandler creates a related party
func CreateParteHandler(c echo.Context) error {
	var in services.ParteInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	parte, err := services.CreateParte(db.DB, middleware.GetActor(c), in)
	if err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusCreated, "Parte registrada con éxito.", parte)
}

// GetParteHandler returns a related party with its casos
func GetParteHandler(c echo.Context) error {
	parte, err := services.GetParte(db.DB, c.Param("id"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, parte)
}

// UpdateParteHandler edits a related party
func UpdateParteHandler(c echo.Context) error {
	var in services.ParteInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	parte, err := services.UpdateParte(db.DB, middleware.GetActor(c), c.Param("id"), in)
	if err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusOK, "Parte actualizada con éxito.", parte)
}

// DeleteParteHandler deletes a related party not linked to any caso
func DeleteParteHandler(c echo.Context) error {
	if err := services.DeleteParte(db.DB, middleware.GetActor(c), c.Param("id")); err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusOK, "Parte eliminada.", nil)
}
