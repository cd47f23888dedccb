package handlers

import (
	"net/http"

	"oficios_app_go/middleware"
	"oficios_app_go/services"

	"github.com/labstack/echo/v4"
)

// RegisterRoutes mounts every route on e. Everything except login and the
// professional response link requires a session.
func RegisterRoutes(e *echo.Echo, limiters *middleware.Limiters) {
	perm := middleware.RequirePermission

	e.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusSeeOther, "/dashboard")
	})
	e.GET("/login", LoginHandler)
	e.POST("/login", LoginPostHandler, limiters.Login.Middleware())

	// Professional response link (no session)
	e.GET("/responder/:token", ResponderHandler)
	e.POST("/responder/:token", ResponderPostHandler, limiters.Responder.Middleware())

	protected := e.Group("")
	protected.Use(middleware.RequireAuth())
	protected.Use(limiters.API.Middleware())
	{
		protected.POST("/logout", LogoutHandler)
		protected.GET("/dashboard", DashboardHandler)
		protected.GET("/perfil", ProfileHandler)
		protected.POST("/perfil/password", ChangePasswordHandler)

		// Oficios
		protected.GET("/oficios", ListOficiosHandler)
		protected.POST("/oficios", CreateOficioHandler, perm(services.PermOficioCreate))
		protected.GET("/oficios/estado/:estado", ListOficiosHandler)
		protected.GET("/oficios/export.xlsx", ExportOficiosHandler)
		protected.GET("/oficios/:id", GetOficioHandler)
		protected.PUT("/oficios/:id", UpdateOficioHandler, perm(services.PermOficioEdit))
		protected.DELETE("/oficios/:id", DeleteOficioHandler, perm(services.PermOficioDelete))
		protected.POST("/oficios/:id/enviar", EnviarOficioHandler, perm(services.PermOficioTransition))
		protected.POST("/oficios/:id/validar", ValidarOficioHandler)
		protected.GET("/oficios/:id/movimientos", ListMovimientosHandler)
		protected.GET("/oficios/:id/archivo", DownloadOficioArchivoHandler)
		protected.GET("/oficios/:id/constancia.pdf", ConstanciaPDFHandler)
		protected.POST("/oficios/:id/response-link", ResponseLinkHandler, perm(services.PermOficioTransition))

		// Respuestas
		protected.GET("/oficios/:id/respuestas", ListRespuestasHandler)
		protected.POST("/oficios/:id/respuestas", CreateRespuestaHandler, perm(services.PermOficioRespond))
		protected.GET("/oficios/:id/respuestas/:rid/archivo", DownloadRespuestaArchivoHandler)
		protected.DELETE("/respuestas/:id", DeleteRespuestaHandler, perm(services.PermOficioDelete))

		// Casos
		protected.GET("/casos", ListCasosHandler)
		protected.POST("/casos", CreateCasoHandler)
		protected.GET("/casos/:id", GetCasoHandler)
		protected.PUT("/casos/:id", UpdateCasoHandler)
		protected.DELETE("/casos/:id", DeleteCasoHandler)
		protected.GET("/casos/:id/movimientos", CasoMovimientosHandler)
		protected.POST("/casos/:id/oficios/:oficio_id", LinkOficioHandler, perm(services.PermOficioEdit))
		protected.DELETE("/casos/:id/oficios/:oficio_id", UnlinkOficioHandler, perm(services.PermOficioEdit))

		// Personas
		protected.GET("/api/ninos/buscar", SearchNinosHandler)
		protected.GET("/personas/ninos", ListNinosHandler)
		protected.POST("/personas/ninos", CreateNinoHandler)
		protected.GET("/personas/ninos/:id", GetNinoHandler)
		protected.PUT("/personas/ninos/:id", UpdateNinoHandler)
		protected.DELETE("/personas/ninos/:id", DeleteNinoHandler, perm(services.PermReferenciasManage))
		protected.GET("/personas/partes", ListPartesHandler)
		protected.POST("/personas/partes", CreateParteHandler)
		protected.GET("/personas/partes/:id", GetParteHandler)
		protected.PUT("/personas/partes/:id", UpdateParteHandler)
		protected.DELETE("/personas/partes/:id", DeleteParteHandler, perm(services.PermReferenciasManage))

		// Reference data: anyone may read, managing requires PermReferenciasManage
		manage := perm(services.PermReferenciasManage)
		protected.GET("/instituciones", ListInstitucionesHandler)
		protected.GET("/instituciones/:id", GetInstitucionHandler)
		protected.POST("/instituciones", CreateInstitucionHandler, manage)
		protected.PUT("/instituciones/:id", UpdateInstitucionHandler, manage)
		protected.DELETE("/instituciones/:id", DeleteInstitucionHandler, manage)

		protected.GET("/juzgados", ListJuzgadosHandler)
		protected.POST("/juzgados", CreateJuzgadoHandler, manage)
		protected.PUT("/juzgados/:id", UpdateJuzgadoHandler, manage)
		protected.DELETE("/juzgados/:id", DeleteJuzgadoHandler, manage)

		protected.GET("/categorias", ListCategoriasHandler)
		protected.POST("/categorias", CreateCategoriaHandler, manage)
		protected.PUT("/categorias/:id", UpdateCategoriaHandler, manage)
		protected.DELETE("/categorias/:id", DeleteCategoriaHandler, manage)

		protected.GET("/caratulas", ListCaratulasHandler)
		protected.POST("/caratulas", CreateCaratulaHandler, manage)
		protected.PUT("/caratulas/:id", UpdateCaratulaHandler, manage)
		protected.DELETE("/caratulas/:id", DeleteCaratulaHandler, manage)

		protected.GET("/sectores", ListSectoresHandler)
		protected.POST("/sectores", CreateSectorHandler, perm(services.PermUsersManage))
		protected.PUT("/sectores/:id", UpdateSectorHandler, perm(services.PermUsersManage))
		protected.DELETE("/sectores/:id", DeleteSectorHandler, perm(services.PermUsersManage))

		// Professionals
		users := protected.Group("/profesionales", perm(services.PermUsersManage))
		users.GET("", ListProfesionalesHandler)
		users.POST("", CreateProfesionalHandler)
		users.GET("/:id", GetProfesionalHandler)
		users.PUT("/:id", UpdateProfesionalHandler)
		users.DELETE("/:id", DeleteProfesionalHandler)

		// History
		admin := protected.Group("/admin", perm(services.PermHistoryView))
		admin.GET("/historial", ListHistoryHandler)
		admin.GET("/historial/:type/:id", ResourceHistoryHandler)
	}
}
