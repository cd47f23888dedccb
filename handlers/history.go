package handlers

import (
	"net/http"
	"strings"

	"oficios_app_go/db"
	"oficios_app_go/services"

	"github.com/labstack/echo/v4"
)

// ListHistoryHandler returns the audit trail, newest first
func ListHistoryHandler(c echo.Context) error {
	desde, err := queryDate(c, "desde")
	if err != nil {
		return err
	}
	hasta, err := queryDate(c, "hasta")
	if err != nil {
		return err
	}
	page, size := pagination(c)

	records, total, err := services.ListHistory(db.DB, services.HistoryFilters{
		UserID:       c.QueryParam("user"),
		ResourceType: c.QueryParam("resource_type"),
		Action:       c.QueryParam("action"),
		DateFrom:     desde,
		DateTo:       hasta,
		SearchQuery:  strings.TrimSpace(c.QueryParam("q")),
	}, page, size)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, paged(records, total, page, size))
}

// ResourceHistoryHandler returns the history of one record with per-field changes
func ResourceHistoryHandler(c echo.Context) error {
	records, err := services.GetResourceHistory(db.DB, c.Param("type"), c.Param("id"))
	if err != nil {
		return serviceError(err)
	}

	out := make([]map[string]interface{}, 0, len(records))
	for i := range records {
		out = append(out, map[string]interface{}{
			"record":  records[i],
			"changes": records[i].Changes(),
		})
	}
	return c.JSON(http.StatusOK, out)
}
