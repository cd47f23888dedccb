package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"oficios_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOficioHandler(t *testing.T) {
	app := setupTestApp(t)
	cookie := app.login(t, "operador1", models.RoleOperador)
	inst := createInstitucion(t, app.db, "HOSPITAL")

	t.Run("Multipart", func(t *testing.T) {
		rec := app.postMultipart(t, http.MethodPost, "/oficios", cookie, url.Values{
			"nro_oficio":    {"123/24"},
			"legajo":        {"leg-1"},
			"fecha_emision": {"2024-01-01"},
			"plazo_valor":   {"2"},
			"plazo_unidad":  {"dias"},
			"instituciones": {inst.ID},
		}, validPDF())
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		id := dataID(t, rec)

		var oficio models.Oficio
		require.NoError(t, app.db.First(&oficio, "id = ?", id).Error)
		assert.Equal(t, "LEG-1", oficio.Legajo)
		assert.Equal(t, models.OficioEstadoCargado, oficio.Estado)
		assert.True(t, oficio.Archivo.HasFile())

		rec = app.get(t, "/oficios/"+id+"/archivo", cookie)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))
	})

	t.Run("JSON", func(t *testing.T) {
		rec := app.sendJSON(t, http.MethodPost, "/oficios", cookie, map[string]interface{}{
			"nro_oficio":    "124/24",
			"tipo":          "Judicial",
			"fecha_emision": "02/01/2024",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})

	t.Run("Validation", func(t *testing.T) {
		rec := app.sendJSON(t, http.MethodPost, "/oficios", cookie, map[string]interface{}{"tipo": "Otro"})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		body := decode(t, rec)
		errs, _ := body["errors"].(map[string]interface{})
		assert.Contains(t, errs, "tipo")
		assert.Contains(t, errs, "fecha_emision")
	})

	t.Run("InvalidFecha", func(t *testing.T) {
		rec := app.postForm(t, "/oficios", cookie, url.Values{"fecha_emision": {"ayer"}}, false)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func createOficioVia(t *testing.T, app *testApp, cookie *http.Cookie, nro string) string {
	t.Helper()
	rec := app.sendJSON(t, http.MethodPost, "/oficios", cookie, map[string]interface{}{
		"nro_oficio":    nro,
		"fecha_emision": "2024-01-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return dataID(t, rec)
}

func TestListOficiosHandler(t *testing.T) {
	app := setupTestApp(t)
	cookie := app.login(t, "operador1", models.RoleOperador)
	createOficioVia(t, app, cookie, "100/24")
	createOficioVia(t, app, cookie, "200/24")

	t.Run("JSON", func(t *testing.T) {
		rec := app.get(t, "/oficios?busqueda=100", cookie)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.EqualValues(t, 1, body["total"])
	})

	t.Run("HTMXPartial", func(t *testing.T) {
		rec := app.do(t, request{method: http.MethodGet, path: "/oficios?page_size=1", cookie: cookie, htmx: true})
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, `id="oficios-table"`)
		assert.Contains(t, body, "Página 1 de 2")
	})

	t.Run("ByEstado", func(t *testing.T) {
		rec := app.get(t, "/oficios/estado/asignado", cookie)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 0, decode(t, rec)["total"])

		rec = app.get(t, "/oficios/estado/archivado", cookie)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("BadDate", func(t *testing.T) {
		rec := app.get(t, "/oficios?fecha_desde=mañana", cookie)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Export", func(t *testing.T) {
		rec := app.get(t, "/oficios/export.xlsx", cookie)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
		assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")
		assert.True(t, strings.HasPrefix(rec.Body.String(), "PK"), "xlsx is a zip archive")
	})
}

func TestEnviarOficioHandler(t *testing.T) {
	app := setupTestApp(t)
	cookie := app.login(t, "operador1", models.RoleOperador)
	inst := createInstitucion(t, app.db, "HOSPITAL")
	id := createOficioVia(t, app, cookie, "300/24")

	t.Run("MissingInstitucion", func(t *testing.T) {
		rec := app.postForm(t, "/oficios/"+id+"/enviar", cookie, url.Values{"estado": {"asignado"}}, false)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("InvalidTransition", func(t *testing.T) {
		rec := app.sendJSON(t, http.MethodPost, "/oficios/"+id+"/enviar", cookie, map[string]string{"estado": "enviado"})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("SameEstadoHTMX", func(t *testing.T) {
		rec := app.do(t, request{
			method:      http.MethodPost,
			path:        "/oficios/" + id + "/enviar",
			body:        strings.NewReader(url.Values{"estado": {"cargado"}}.Encode()),
			contentType: "application/x-www-form-urlencoded",
			cookie:      cookie,
			htmx:        true,
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), "alert-error")
		assert.Equal(t, "innerHTML", rec.Header().Get("HX-Reswap"))
	})

	t.Run("Asignar", func(t *testing.T) {
		rec := app.postForm(t, "/oficios/"+id+"/enviar", cookie, url.Values{
			"estado":      {"asignado"},
			"institucion": {inst.ID},
			"detalle":     {"Para informe"},
		}, true)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "oficios:changed", rec.Header().Get("HX-Trigger"))

		var oficio models.Oficio
		require.NoError(t, app.db.First(&oficio, "id = ?", id).Error)
		assert.Equal(t, models.OficioEstadoAsignado, oficio.Estado)
		require.NotNil(t, oficio.InstitucionID)
		assert.Equal(t, inst.ID, *oficio.InstitucionID)

		rec = app.get(t, "/oficios/"+id+"/movimientos", cookie)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Para informe")
	})

	t.Run("Get", func(t *testing.T) {
		rec := app.get(t, "/oficios/"+id, cookie)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.ElementsMatch(t, []interface{}{"cargado", "respondido", "devuelto"}, body["estados_posibles"])
	})
}

func TestOficioPermissions(t *testing.T) {
	app := setupTestApp(t)
	operador := app.login(t, "operador1", models.RoleOperador)
	admin := app.login(t, "admin1", models.RoleAdmin)
	coord := app.login(t, "coord1", models.RoleCoordinacion)
	id := createOficioVia(t, app, operador, "400/24")

	t.Run("DeleteForbidden", func(t *testing.T) {
		rec := app.do(t, request{method: http.MethodDelete, path: "/oficios/" + id, cookie: operador})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("ValidarCoord", func(t *testing.T) {
		rec := app.sendJSON(t, http.MethodPost, "/oficios/"+id+"/validar", operador, map[string]bool{"validado_coord": true})
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = app.postForm(t, "/oficios/"+id+"/validar", coord, url.Values{"validado_coord": {"true"}}, false)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var oficio models.Oficio
		require.NoError(t, app.db.First(&oficio, "id = ?", id).Error)
		assert.True(t, oficio.ValidadoCoord)
		assert.False(t, oficio.ValidadoDirector)
	})

	t.Run("DeleteAsAdmin", func(t *testing.T) {
		rec := app.do(t, request{method: http.MethodDelete, path: "/oficios/" + id, cookie: admin})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = app.get(t, "/oficios/"+id, admin)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestUpdateOficioHandler(t *testing.T) {
	app := setupTestApp(t)
	cookie := app.login(t, "operador1", models.RoleOperador)
	id := createOficioVia(t, app, cookie, "500/24")

	rec := app.postMultipart(t, http.MethodPut, "/oficios/"+id, cookie, url.Values{
		"nro_oficio":      {"500/24"},
		"caratula_oficio": {"gómez s/ medida"},
		"fecha_emision":   {"2024-01-01"},
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var oficio models.Oficio
	require.NoError(t, app.db.First(&oficio, "id = ?", id).Error)
	assert.Equal(t, "GÓMEZ S/ MEDIDA", oficio.CaratulaOficio)

	rec = app.get(t, "/oficios/"+id+"/archivo", cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code, "no attachment was uploaded")
}
