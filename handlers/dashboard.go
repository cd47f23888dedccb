package handlers

import (
	"net/http"

	"oficios_app_go/db"
	"oficios_app_go/middleware"
	"oficios_app_go/services"
	"oficios_app_go/templates/pages"

	"github.com/labstack/echo/v4"
)

// DashboardHandler renders the dashboard with KPIs for the optional date range
func DashboardHandler(c echo.Context) error {
	desde, err := queryDate(c, "desde")
	if err != nil {
		return err
	}
	hasta, err := queryDate(c, "hasta")
	if err != nil {
		return err
	}

	current := now()
	data, err := services.BuildDashboard(db.DB, timePtr(desde), timePtr(hasta), current)
	if err != nil {
		return serviceError(err)
	}

	if wantsJSON(c) {
		return c.JSON(http.StatusOK, data)
	}
	return render(c, http.StatusOK, pages.Dashboard(pages.DashboardView{
		UserName: middleware.GetActor(c).UserName,
		Data:     data,
		Now:      current,
	}))
}
