package handlers

import (
	"net/http"
	"net/url"
	"testing"

	"oficios_app_go/middleware"
	"oficios_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	app := setupTestApp(t)
	app.createUser(t, "operador1", models.RoleOperador, nil)

	t.Run("Page", func(t *testing.T) {
		rec := app.get(t, "/login", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `name="username"`)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		rec := app.postForm(t, "/login", nil, url.Values{"username": {"operador1"}, "password": {"nope"}}, false)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Usuario o contraseña incorrectos")
	})

	t.Run("MissingFieldsHTMX", func(t *testing.T) {
		rec := app.postForm(t, "/login", nil, url.Values{"username": {"operador1"}}, true)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "alert-error")
	})

	t.Run("SuccessHTMX", func(t *testing.T) {
		rec := app.postForm(t, "/login", nil, url.Values{"username": {"Operador1"}, "password": {testPassword}}, true)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "/dashboard", rec.Header().Get("HX-Redirect"))

		var cookie *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == middleware.SessionCookieName {
				cookie = c
			}
		}
		require.NotNil(t, cookie)
		assert.True(t, cookie.HttpOnly)

		rec = app.do(t, request{method: http.MethodGet, path: "/perfil", cookie: cookie})
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, models.RoleOperador, body["role"])
	})

	t.Run("ProfesionalRejected", func(t *testing.T) {
		inst := createInstitucion(t, app.db, "HOSPITAL")
		app.createUser(t, "prof1", models.RoleProfesional, &inst.ID)
		rec := app.postForm(t, "/login", nil, url.Values{"username": {"prof1"}, "password": {testPassword}}, false)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestProtectedRoutes(t *testing.T) {
	app := setupTestApp(t)

	rec := app.get(t, "/dashboard", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = app.do(t, request{method: http.MethodGet, path: "/oficios", htmx: true})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("HX-Redirect"))
}

func TestLogout(t *testing.T) {
	app := setupTestApp(t)
	cookie := app.login(t, "operador1", models.RoleOperador)

	rec := app.do(t, request{method: http.MethodPost, path: "/logout", cookie: cookie})
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = app.get(t, "/dashboard", cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code, "session is gone after logout")
}

func TestChangePasswordHandler(t *testing.T) {
	app := setupTestApp(t)
	cookie := app.login(t, "operador1", models.RoleOperador)

	rec := app.sendJSON(t, http.MethodPost, "/perfil/password", cookie, map[string]string{
		"current_password": "wrong",
		"password":         "NuevaClave2024",
		"password_confirm": "NuevaClave2024",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	errs, _ := decode(t, rec)["errors"].(map[string]interface{})
	assert.Contains(t, errs, "current_password")

	rec = app.sendJSON(t, http.MethodPost, "/perfil/password", cookie, map[string]string{
		"current_password": testPassword,
		"password":         "NuevaClave2024",
		"password_confirm": "NuevaClave2024",
	})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.get(t, "/perfil", cookie)
	assert.Equal(t, http.StatusOK, rec.Code, "current session survives the change")
}
