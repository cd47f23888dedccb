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

// assignedOficio creates an oficio assigned to inst and returns its id and response link path
func assignedOficio(t *testing.T, app *testApp, cookie *http.Cookie, inst *models.Institucion) (string, string) {
	t.Helper()
	id := createOficioVia(t, app, cookie, "777/24")
	rec := app.postForm(t, "/oficios/"+id+"/enviar", cookie, url.Values{"estado": {"asignado"}, "institucion": {inst.ID}}, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(t, request{method: http.MethodPost, path: "/oficios/" + id + "/response-link", cookie: cookie})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data, _ := decode(t, rec)["data"].(map[string]interface{})
	link, _ := data["url"].(string)
	require.True(t, strings.HasPrefix(link, app.cfg.AppURL+"/responder/"), link)
	return id, strings.TrimPrefix(link, app.cfg.AppURL)
}

func TestResponseLinkRequiresAsignado(t *testing.T) {
	app := setupTestApp(t)
	cookie := app.login(t, "operador1", models.RoleOperador)
	id := createOficioVia(t, app, cookie, "778/24")

	rec := app.do(t, request{method: http.MethodPost, path: "/oficios/" + id + "/response-link", cookie: cookie})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestResponder(t *testing.T) {
	app := setupTestApp(t)
	cookie := app.login(t, "operador1", models.RoleOperador)
	inst := createInstitucion(t, app.db, "HOSPITAL")
	otra := createInstitucion(t, app.db, "ESCUELA")
	app.createUser(t, "prof1", models.RoleProfesional, &inst.ID)
	app.createUser(t, "prof2", models.RoleProfesional, &otra.ID)
	id, path := assignedOficio(t, app, cookie, inst)

	t.Run("InvalidToken", func(t *testing.T) {
		rec := app.get(t, "/responder/not-a-token", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "no es válido")
	})

	t.Run("Page", func(t *testing.T) {
		rec := app.get(t, path, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "777/24")
		assert.Contains(t, rec.Body.String(), `name="password"`)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		rec := app.postMultipart(t, http.MethodPost, path, nil, url.Values{
			"username": {"prof1"}, "password": {"wrong"}, "respuesta": {"Informe"},
		}, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "alert-error")
	})

	t.Run("OtherInstitucion", func(t *testing.T) {
		rec := app.postMultipart(t, http.MethodPost, path, nil, url.Values{
			"username": {"prof2"}, "password": {testPassword}, "respuesta": {"Informe"},
		}, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("EmptyResponse", func(t *testing.T) {
		rec := app.postMultipart(t, http.MethodPost, path, nil, url.Values{
			"username": {"prof1"}, "password": {testPassword},
		}, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("Success", func(t *testing.T) {
		rec := app.postMultipart(t, http.MethodPost, path, nil, url.Values{
			"username": {"prof1"}, "password": {testPassword}, "respuesta": {"Se adjunta informe"},
		}, validPDF())
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), "La respuesta fue registrada")

		var oficio models.Oficio
		require.NoError(t, app.db.First(&oficio, "id = ?", id).Error)
		assert.Equal(t, models.OficioEstadoRespondido, oficio.Estado)

		rec = app.get(t, "/oficios/"+id+"/respuestas", cookie)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Se adjunta informe")
	})
}

func TestRespuestaHandlers(t *testing.T) {
	app := setupTestApp(t)
	operador := app.login(t, "operador1", models.RoleOperador)
	admin := app.login(t, "admin1", models.RoleAdmin)
	inst := createInstitucion(t, app.db, "HOSPITAL")

	t.Run("NotAssigned", func(t *testing.T) {
		id := createOficioVia(t, app, operador, "800/24")
		rec := app.sendJSON(t, http.MethodPost, "/oficios/"+id+"/respuestas", operador, map[string]interface{}{"respuesta": "x"})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("DevueltoAndDelete", func(t *testing.T) {
		id, _ := assignedOficio(t, app, operador, inst)
		rec := app.sendJSON(t, http.MethodPost, "/oficios/"+id+"/respuestas", operador, map[string]interface{}{
			"respuesta": "No corresponde",
			"devuelto":  true,
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		respID := dataID(t, rec)

		var oficio models.Oficio
		require.NoError(t, app.db.First(&oficio, "id = ?", id).Error)
		assert.Equal(t, models.OficioEstadoDevuelto, oficio.Estado)

		rec = app.do(t, request{method: http.MethodDelete, path: "/respuestas/" + respID, cookie: operador})
		assert.Equal(t, http.StatusForbidden, rec.Code)
		rec = app.do(t, request{method: http.MethodDelete, path: "/respuestas/" + respID, cookie: admin})
		assert.Equal(t, http.StatusOK, rec.Code)

		var count int64
		app.db.Model(&models.Respuesta{}).Where("id = ?", respID).Count(&count)
		assert.Zero(t, count)
	})
}
