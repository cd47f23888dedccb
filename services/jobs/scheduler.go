package jobs

import (
	"log"
	"time"

	"oficios_app_go/config"
	"oficios_app_go/services"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// StartScheduler registers the periodic jobs and starts the cron runner.
// The returned runner should be stopped on shutdown.
func StartScheduler(database *gorm.DB, cfg *config.Config) *cron.Cron {
	loc, err := time.LoadLocation("America/Argentina/Buenos_Aires")
	if err != nil {
		log.Printf("[CRON] Falling back to UTC: %v", err)
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))

	mustSchedule(c, "@hourly", func() {
		NotifyUpcomingDeadlines(database, cfg, time.Now())
	})
	mustSchedule(c, "@hourly", func() {
		if err := services.CleanupExpiredSessions(database); err != nil {
			log.Printf("[CRON] Error cleaning up sessions: %v", err)
		}
	})

	c.Start()
	log.Println("[CRON] Scheduler started")
	return c
}

func mustSchedule(c *cron.Cron, spec string, job func()) {
	if _, err := c.AddFunc(spec, job); err != nil {
		log.Fatalf("[CRON] Error scheduling job %q: %v", spec, err)
	}
}
