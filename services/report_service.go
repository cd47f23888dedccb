package services

import (
	"fmt"
	"sort"
	"time"

	"oficios_app_go/models"

	"gorm.io/gorm"
)

const (
	dashboardTopLimit      = 5
	dashboardRecentLimit   = 8
	dashboardUpcomingLimit = 5
	dashboardUpcomingDays  = 7
)

// DashboardKPIs are the headline counters of the dashboard
type DashboardKPIs struct {
	TotalOficios    int64 `json:"total_oficios"`
	Respondidos     int64 `json:"respondidos"`
	Enviados        int64 `json:"enviados"`
	Pendientes      int64 `json:"pendientes"`
	Vencidos        int64 `json:"vencidos"`
	Proximos        int64 `json:"proximos"`
	CasosVinculados int64 `json:"casos_vinculados"`
}

// EstadoCount is the number of oficios in one estado
type EstadoCount struct {
	Estado string `json:"estado"`
	Nombre string `json:"nombre"`
	Total  int64  `json:"total"`
}

// MonthCount is the number of oficios issued in a month (YYYY-MM)
type MonthCount struct {
	Mes   string `json:"mes"`
	Total int64  `json:"total"`
}

// RankingItem is one row of a top-N ranking
type RankingItem struct {
	Nombre string `json:"nombre"`
	Total  int64  `json:"total"`
}

// Dashboard is the aggregated report over a fecha_emision range
type Dashboard struct {
	Desde                *time.Time                `json:"desde"`
	Hasta                *time.Time                `json:"hasta"`
	KPIs                 DashboardKPIs             `json:"kpis"`
	Estados              []EstadoCount             `json:"estados"`
	SerieMensual         []MonthCount              `json:"serie_mensual"`
	TopInstituciones     []RankingItem             `json:"top_instituciones"`
	TopJuzgados          []RankingItem             `json:"top_juzgados"`
	MovimientosRecientes []models.MovimientoOficio `json:"movimientos_recientes"`
	RespuestasRecientes  []models.Respuesta        `json:"respuestas_recientes"`
	ProximosVencer       []models.Oficio           `json:"proximos_vencer"`
}

// BuildDashboard computes the dashboard for oficios issued between desde and
// hasta (both optional, whole days). A hasta before desde is clamped to desde.
func BuildDashboard(db *gorm.DB, desde, hasta *time.Time, now time.Time) (*Dashboard, error) {
	if desde != nil && hasta != nil && hasta.Before(*desde) {
		clamped := *desde
		hasta = &clamped
	}
	d := &Dashboard{Desde: desde, Hasta: hasta}

	// base returns a fresh scoped query so conditions never leak between counts
	base := func() *gorm.DB {
		q := db.Model(&models.Oficio{})
		if desde != nil {
			q = q.Where("oficios.fecha_emision >= ?", *desde)
		}
		if hasta != nil {
			q = q.Where("oficios.fecha_emision < ?", hasta.Add(24*time.Hour))
		}
		return q
	}
	ids := func() *gorm.DB {
		return base().Select("oficios.id")
	}

	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&d.KPIs.TotalOficios, base()},
		{&d.KPIs.Respondidos, base().Where("estado = ?", models.OficioEstadoRespondido)},
		{&d.KPIs.Enviados, base().Where("estado = ?", models.OficioEstadoEnviado)},
		{&d.KPIs.Pendientes, base().Where("estado IN ?", []string{models.OficioEstadoCargado, models.OficioEstadoAsignado})},
		{&d.KPIs.Vencidos, base().Where("fecha_vencimiento < ? AND estado <> ?", now, models.OficioEstadoEnviado)},
		{&d.KPIs.Proximos, base().Where("fecha_vencimiento >= ? AND fecha_vencimiento <= ? AND estado <> ?",
			now, now.AddDate(0, 0, dashboardUpcomingDays), models.OficioEstadoEnviado)},
		{&d.KPIs.CasosVinculados, base().Where("caso_id IS NOT NULL").Distinct("caso_id")},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to compute dashboard counters: %w", err)
		}
	}

	var estadoRows []struct {
		Estado string
		Total  int64
	}
	if err := base().Select("estado, COUNT(*) AS total").Group("estado").Scan(&estadoRows).Error; err != nil {
		return nil, fmt.Errorf("failed to count oficios by estado: %w", err)
	}
	byEstado := make(map[string]int64, len(estadoRows))
	for _, r := range estadoRows {
		byEstado[r.Estado] = r.Total
	}
	for _, e := range models.OficioEstados {
		d.Estados = append(d.Estados, EstadoCount{Estado: e, Nombre: models.OficioEstadoLabel(e), Total: byEstado[e]})
	}

	// Bucketed in Go so the same code runs on SQLite and PostgreSQL
	var emisiones []time.Time
	if err := base().Pluck("fecha_emision", &emisiones).Error; err != nil {
		return nil, fmt.Errorf("failed to load emission dates: %w", err)
	}
	d.SerieMensual = monthlySeries(emisiones)

	var err error
	if d.TopInstituciones, err = topBy(base(), "instituciones", "institucion_id"); err != nil {
		return nil, err
	}
	if d.TopJuzgados, err = topBy(base(), "juzgados", "juzgado_id"); err != nil {
		return nil, err
	}

	err = db.Where("oficio_id IN (?)", ids()).
		Preload("Oficio").Preload("Institucion").Preload("Usuario").
		Order("created_at DESC").Limit(dashboardRecentLimit).
		Find(&d.MovimientosRecientes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recent movimientos: %w", err)
	}

	err = db.Where("oficio_id IN (?)", ids()).
		Preload("Oficio").Preload("Institucion").Preload("Usuario").Preload("Profesional").
		Order("fecha_hora DESC").Limit(dashboardRecentLimit).
		Find(&d.RespuestasRecientes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recent respuestas: %w", err)
	}

	err = base().Where("fecha_vencimiento >= ? AND estado <> ?", now, models.OficioEstadoEnviado).
		Preload("Institucion").
		Order("fecha_vencimiento ASC").Limit(dashboardUpcomingLimit).
		Find(&d.ProximosVencer).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load upcoming oficios: %w", err)
	}

	return d, nil
}

func monthlySeries(dates []time.Time) []MonthCount {
	byMonth := map[string]int64{}
	for _, t := range dates {
		byMonth[t.Format("2006-01")]++
	}
	series := make([]MonthCount, 0, len(byMonth))
	for mes, total := range byMonth {
		series = append(series, MonthCount{Mes: mes, Total: total})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Mes < series[j].Mes })
	return series
}

// topBy ranks the referenced table by number of oficios, ties broken by name
func topBy(q *gorm.DB, table, fk string) ([]RankingItem, error) {
	var rows []RankingItem
	err := q.Select(table+".nombre AS nombre, COUNT(oficios.id) AS total").
		Joins("JOIN "+table+" ON "+table+".id = oficios."+fk).
		Group(table + ".id, " + table + ".nombre").
		Order("total DESC, nombre ASC").
		Limit(dashboardTopLimit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to rank %s: %w", table, err)
	}
	return rows, nil
}
