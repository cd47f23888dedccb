package partials

import (
	"fmt"
	"time"

	"oficios_app_go/models"
)

// formatFileSize renders an attachment size
func formatFileSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
	)

	switch {
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

func formatFecha(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("02/01/2006 15:04")
}

// FormatRelativeTime describes t relative to now
func FormatRelativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "recién"
	case d < time.Hour:
		if m := int(d.Minutes()); m > 1 {
			return fmt.Sprintf("hace %d minutos", m)
		}
		return "hace 1 minuto"
	case d < 24*time.Hour:
		if h := int(d.Hours()); h > 1 {
			return fmt.Sprintf("hace %d horas", h)
		}
		return "hace 1 hora"
	case d < 7*24*time.Hour:
		if days := int(d.Hours() / 24); days > 1 {
			return fmt.Sprintf("hace %d días", days)
		}
		return "ayer"
	}
	return t.Format("02/01/2006")
}

func institucionNombre(i *models.Institucion) string {
	if i == nil {
		return "-"
	}
	return i.Nombre
}

func juzgadoNombre(j *models.Juzgado) string {
	if j == nil {
		return "-"
	}
	return j.Nombre
}
