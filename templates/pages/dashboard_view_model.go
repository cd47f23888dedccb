package pages

import (
	"time"

	"oficios_app_go/services"
)

// DashboardView holds the data for the dashboard page
type DashboardView struct {
	UserName string
	Data     *services.Dashboard
	Now      time.Time
}

// dateInput formats an optional filter date for an <input type="date">
func dateInput(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
