package handlers

import (
	"net/http"
	"strings"

	"oficios_app_go/db"
	"oficios_app_go/services"

	"github.com/labstack/echo/v4"
)

type nombreRequest struct {
	Nombre string `json:"nombre"`
}

func busqueda(c echo.Context) string {
	return strings.TrimSpace(c.QueryParam("busqueda"))
}

// Instituciones

func ListInstitucionesHandler(c echo.Context) error {
	page, size := pagination(c)
	items, total, err := services.ListInstituciones(db.DB, busqueda(c), page, size)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, paged(items, total, page, size))
}

func GetInstitucionHandler(c echo.Context) error {
	inst, err := services.GetInstitucion(db.DB, c.Param("id"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, inst)
}

func CreateInstitucionHandler(c echo.Context) error {
	var in services.InstitucionInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	inst, err := services.CreateInstitucion(db.DB, in)
	if err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusCreated, "Institución creada.", inst)
}

func UpdateInstitucionHandler(c echo.Context) error {
	var in services.InstitucionInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	inst, err := services.UpdateInstitucion(db.DB, c.Param("id"), in)
	if err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusOK, "Institución actualizada.", inst)
}

func DeleteInstitucionHandler(c echo.Context) error {
	if err := services.DeleteInstitucion(db.DB, c.Param("id")); err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusOK, "Institución eliminada.", nil)
}

// Juzgados

func ListJuzgadosHandler(c echo.Context) error {
	page, size := pagination(c)
	items, total, err := services.ListJuzgados(db.DB, busqueda(c), page, size)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, paged(items, total, page, size))
}

func CreateJuzgadoHandler(c echo.Context) error {
	var in services.JuzgadoInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	juzgado, err := services.CreateJuzgado(db.DB, in)
	if err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusCreated, "Juzgado creado.", juzgado)
}

func UpdateJuzgadoHandler(c echo.Context) error {
	var in services.JuzgadoInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	juzgado, err := services.UpdateJuzgado(db.DB, c.Param("id"), in)
	if err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusOK, "Juzgado actualizado.", juzgado)
}

func DeleteJuzgadoHandler(c echo.Context) error {
	if err := services.DeleteJuzgado(db.DB, c.Param("id")); err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusOK, "Juzgado eliminado.", nil)
}

// Categorías de juzgado

func ListCategoriasHandler(c echo.Context) error {
	items, err := services.ListCategorias(db.DB)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func CreateCategoriaHandler(c echo.Context) error {
	var req nombreRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	cat, err := services.CreateCategoria(db.DB, req.Nombre)
	if err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusCreated, "Categoría creada.", cat)
}

func UpdateCategoriaHandler(c echo.Context) error {
	var req nombreRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	cat, err := services.UpdateCategoria(db.DB, c.Param("id"), req.Nombre)
	if err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusOK, "Categoría actualizada.", cat)
}

func DeleteCategoriaHandler(c echo.Context) error {
	if err := services.DeleteCategoria(db.DB, c.Param("id")); err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusOK, "Categoría eliminada.", nil)
}

// Carátulas

func ListCaratulasHandler(c echo.Context) error {
	page, size := pagination(c)
	items, total, err := services.ListCaratulas(db.DB, busqueda(c), page, size)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, paged(items, total, page, size))
}

func CreateCaratulaHandler(c echo.Context) error {
	var in services.CaratulaInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	caratula, err := services.CreateCaratula(db.DB, in)
	if err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusCreated, "Carátula creada.", caratula)
}

func UpdateCaratulaHandler(c echo.Context) error {
	var in services.CaratulaInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	caratula, err := services.UpdateCaratula(db.DB, c.Param("id"), in)
	if err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusOK, "Carátula actualizada.", caratula)
}

func DeleteCaratulaHandler(c echo.Context) error {
	if err := services.DeleteCaratula(db.DB, c.Param("id")); err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusOK, "Carátula eliminada.", nil)
}

// Sectores

func ListSectoresHandler(c echo.Context) error {
	items, err := services.ListSectores(db.DB)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func CreateSectorHandler(c echo.Context) error {
	var in services.SectorInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	sector, err := services.CreateSector(db.DB, in)
	if err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusCreated, "Sector creado.", sector)
}

func UpdateSectorHandler(c echo.Context) error {
	var in services.SectorInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	sector, err := services.UpdateSector(db.DB, c.Param("id"), in)
	if err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusOK, "Sector actualizado.", sector)
}

func DeleteSectorHandler(c echo.Context) error {
	if err := services.DeleteSector(db.DB, c.Param("id")); err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusOK, "Sector eliminado.", nil)
}
