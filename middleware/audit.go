package middleware

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
)

// AuditRequests logs every state-changing request with the acting user.
// Reads run unlogged; the access log already covers them.
func AuditRequests() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			method := c.Request().Method
			if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
				return next(c)
			}

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			actor := GetActor(c)
			user := actor.UserName
			if user == "" {
				user = "anónimo"
			}
			log.Printf("[AUDIT] %s %s | User: %s (%s) | IP: %s | Status: %d",
				method, c.Path(), user, actor.Role, actor.IPAddress, status)
			return err
		}
	}
}
