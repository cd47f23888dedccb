package middleware

import (
	"net/http"

	"oficios_app_go/config"
	"oficios_app_go/db"
	"oficios_app_go/models"
	"oficios_app_go/services"

	"github.com/labstack/echo/v4"
)

const (
	// SessionCookieName is the name of the session cookie
	SessionCookieName = "oficios_session"
	// ContextKeyUser is the context key for the authenticated user
	ContextKeyUser = "user"
	// ContextKeySession is the context key for the session
	ContextKeySession = "session"
	// ContextKeyActor is the context key for the services.Actor of the request
	ContextKeyActor = "actor"
)

// RequireAuth is middleware that requires a valid session cookie
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				return redirectToLogin(c)
			}

			session, err := services.ValidateSession(db.DB, cookie.Value)
			if err != nil {
				ClearSessionCookie(c)
				return redirectToLogin(c)
			}

			// Deactivated accounts and professionals lose their session
			if !session.User.IsActive || session.User.IsProfesional() {
				services.DeleteSession(db.DB, cookie.Value)
				ClearSessionCookie(c)
				return redirectToLogin(c)
			}

			actor := services.SessionActor(session)
			actor.IPAddress = c.RealIP()

			c.Set(ContextKeyUser, &session.User)
			c.Set(ContextKeySession, session)
			c.Set(ContextKeyActor, actor)

			return next(c)
		}
	}
}

func redirectToLogin(c echo.Context) error {
	if c.Request().Header.Get("HX-Request") == "true" {
		c.Response().Header().Set("HX-Redirect", "/login")
		return c.NoContent(http.StatusUnauthorized)
	}
	return c.Redirect(http.StatusSeeOther, "/login")
}

// RequirePermission rejects requests whose actor lacks any of the flags in perm
func RequirePermission(perm services.Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !GetActor(c).Can(perm) {
				return echo.NewHTTPError(http.StatusForbidden, "No tiene permisos para realizar esta acción.")
			}
			return next(c)
		}
	}
}

// GetCurrentUser retrieves the current user from context
func GetCurrentUser(c echo.Context) *models.User {
	user, ok := c.Get(ContextKeyUser).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// GetSession retrieves the validated session from context
func GetSession(c echo.Context) *models.Session {
	session, ok := c.Get(ContextKeySession).(*models.Session)
	if !ok {
		return nil
	}
	return session
}

// GetActor returns the acting user. Without a stored actor it is derived
// from the context user, and anonymous requests get an empty actor.
func GetActor(c echo.Context) services.Actor {
	if actor, ok := c.Get(ContextKeyActor).(services.Actor); ok {
		return actor
	}
	if user := GetCurrentUser(c); user != nil {
		actor := services.ActorForUser(user)
		actor.IPAddress = c.RealIP()
		return actor
	}
	return services.Actor{IPAddress: c.RealIP()}
}

func isProduction(c echo.Context) bool {
	cfg, ok := c.Get("config").(*config.Config)
	return ok && cfg.IsProduction()
}

// SetSessionCookie stores the session token in the browser
func SetSessionCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(services.DefaultSessionDuration.Seconds()),
		HttpOnly: true,
		Secure:   isProduction(c),
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie clears the session cookie
func ClearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isProduction(c),
		SameSite: http.SameSiteLaxMode,
	})
}
