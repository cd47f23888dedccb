package jobs

import (
	"log"
	"strings"
	"time"

	"oficios_app_go/config"
	"oficios_app_go/models"
	"oficios_app_go/services"

	"gorm.io/gorm"
)

// deadlineWindow is how far ahead of the vencimiento the reminder goes out
const deadlineWindow = 24 * time.Hour

// NotifyUpcomingDeadlines emails the creator of every open oficio that expires
// within the next 24 hours. Each oficio is reminded once. Returns the number of
// reminders sent.
func NotifyUpcomingDeadlines(database *gorm.DB, cfg *config.Config, now time.Time) int {
	log.Println("[JOB] Starting deadline reminder job...")

	var oficios []models.Oficio

	// Find oficios:
	// 1. Not enviado
	// 2. FechaVencimiento in (now, now+24h]
	// 3. AvisoVencimientoAt is NULL
	err := database.Preload("Usuario").
		Where("estado <> ?", models.OficioEstadoEnviado).
		Where("fecha_vencimiento > ? AND fecha_vencimiento <= ?", now, now.Add(deadlineWindow)).
		Where("aviso_vencimiento_at IS NULL").
		Find(&oficios).Error
	if err != nil {
		log.Printf("[JOB] Error fetching oficios for reminders: %v", err)
		return 0
	}

	log.Printf("[JOB] Found %d oficios close to their deadline", len(oficios))

	sent := 0
	for _, o := range oficios {
		if o.Usuario == nil || o.Usuario.Email == "" {
			log.Printf("[JOB] Oficio %s has no creator email, skipping reminder", o.ID)
			continue
		}

		email := services.BuildVencimientoEmail(o.Usuario.Email, services.VencimientoEmailData{
			UserName:         o.Usuario.FullName(),
			NroOficio:        o.NroOficio,
			Caratula:         o.CaratulaOficio,
			Estado:           models.OficioEstadoLabel(o.Estado),
			FechaVencimiento: services.FormatFecha(o.FechaVencimiento),
			Link:             strings.TrimRight(cfg.AppURL, "/") + "/oficios/" + o.ID,
		})

		if err := services.SendEmail(cfg, email); err != nil {
			log.Printf("[JOB] Failed to send reminder for oficio %s: %v", o.ID, err)
			continue
		}

		if err := database.Model(&models.Oficio{}).Where("id = ?", o.ID).UpdateColumn("aviso_vencimiento_at", now).Error; err != nil {
			log.Printf("[JOB] Failed to stamp reminder for oficio %s: %v", o.ID, err)
			continue
		}
		sent++
	}

	log.Printf("[JOB] Deadline reminder job completed (%d sent)", sent)
	return sent
}
