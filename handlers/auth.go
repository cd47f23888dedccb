package handlers

import (
	"errors"
	"net/http"
	"strings"

	"oficios_app_go/db"
	"oficios_app_go/middleware"
	"oficios_app_go/services"
	"oficios_app_go/templates/components"
	"oficios_app_go/templates/pages"

	"github.com/labstack/echo/v4"
)

// LoginHandler renders the login page
func LoginHandler(c echo.Context) error {
	return render(c, http.StatusOK, pages.Login(middleware.GetCSRFToken(c), ""))
}

func loginError(c echo.Context, status int, msg string) error {
	if isHTMX(c) {
		// 200 so HTMX swaps the message into the form
		return render(c, http.StatusOK, components.Alert("error", msg))
	}
	if wantsJSON(c) || isJSONRequest(c) {
		return echo.NewHTTPError(status, msg)
	}
	return render(c, status, pages.Login(middleware.GetCSRFToken(c), msg))
}

// LoginPostHandler handles the login form submission
func LoginPostHandler(c echo.Context) error {
	username := strings.TrimSpace(c.FormValue("username"))
	password := c.FormValue("password")
	ip := c.RealIP()

	if username == "" || password == "" {
		return loginError(c, http.StatusBadRequest, "Ingrese usuario y contraseña.")
	}

	user, err := services.Authenticate(db.DB, username, password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrProfesionalLogin), errors.Is(err, services.ErrAccountLocked),
			errors.Is(err, services.ErrAccountInactive):
			return loginError(c, http.StatusForbidden, err.Error())
		case errors.Is(err, services.ErrInvalidCredentials):
			services.Monitor.TrackFailedLogin(ip, username)
			services.LogSecurityEvent("LOGIN_FAILED", "", "username="+username+" ip="+ip)
			return loginError(c, http.StatusUnauthorized, err.Error())
		}
		return serviceError(err)
	}
	services.Monitor.ResetIP(ip)

	session, err := services.CreateSession(db.DB, user, ip, c.Request().UserAgent())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "No se pudo iniciar la sesión.")
	}
	middleware.SetSessionCookie(c, session.Token)
	services.LogSecurityEvent("LOGIN", user.ID, "ip="+ip)

	if isHTMX(c) {
		c.Response().Header().Set("HX-Redirect", "/dashboard")
		return c.NoContent(http.StatusOK)
	}
	if wantsJSON(c) || isJSONRequest(c) {
		return respond(c, http.StatusOK, "Sesión iniciada.", map[string]interface{}{
			"user":        user,
			"role":        session.Role,
			"permissions": session.Permissions,
		})
	}
	return c.Redirect(http.StatusSeeOther, "/dashboard")
}

// LogoutHandler handles user logout
func LogoutHandler(c echo.Context) error {
	if cookie, err := c.Cookie(middleware.SessionCookieName); err == nil {
		services.DeleteSession(db.DB, cookie.Value)
	}
	if user := middleware.GetCurrentUser(c); user != nil {
		services.LogSecurityEvent("LOGOUT", user.ID, "")
	}
	middleware.ClearSessionCookie(c)

	if isHTMX(c) {
		c.Response().Header().Set("HX-Redirect", "/login")
		return c.NoContent(http.StatusOK)
	}
	return c.Redirect(http.StatusSeeOther, "/login")
}

// ProfileHandler returns the current user with its resolved role and permissions
func ProfileHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "No autenticado.")
	}
	actor := middleware.GetActor(c)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"user":        user,
		"role":        actor.Role,
		"permissions": actor.Permissions,
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" form:"current_password"`
	Password        string `json:"password" form:"password"`
	PasswordConfirm string `json:"password_confirm" form:"password_confirm"`
}

// ChangePasswordHandler updates the password of the current user
func ChangePasswordHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "No autenticado.")
	}
	var req changePasswordRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	keep := ""
	if session := middleware.GetSession(c); session != nil {
		keep = session.Token
	}
	if err := services.ChangePassword(db.DB, middleware.GetActor(c), user.ID, req.CurrentPassword, req.Password, req.PasswordConfirm, keep); err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusOK, "La contraseña fue actualizada.", nil)
}
