package pages

import (
	"context"
	"fmt"
	"io"

	"oficios_app_go/models"
	"oficios_app_go/services"
	"oficios_app_go/templates/components"
	"oficios_app_go/templates/partials"

	"github.com/a-h/templ"
)

func kpi(w io.Writer, label string, value int64) error {
	return components.Write(w, `<div class="kpi">`, components.E(label), `<b>`, fmt.Sprint(value), `</b></div>`)
}

func ranking(w io.Writer, title string, items []services.RankingItem) error {
	if err := components.Write(w, `<section><h3>`, components.E(title), `</h3><table>`); err != nil {
		return err
	}
	if len(items) == 0 {
		if err := components.Write(w, `<tr><td>Sin datos.</td></tr>`); err != nil {
			return err
		}
	}
	for _, it := range items {
		if err := components.Write(w, `<tr><td>`, components.E(it.Nombre), `</td><td>`, fmt.Sprint(it.Total), `</td></tr>`); err != nil {
			return err
		}
	}
	return components.Write(w, `</table></section>`)
}

// Dashboard renders the KPI page with its range filter
func Dashboard(v DashboardView) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		d := v.Data
		if err := components.Write(w,
			`<header><h1>Tablero</h1><span>`, components.E(v.UserName), `</span> <a href="/logout">Salir</a></header>`,
			`<form method="get" action="/dashboard">`,
			`<label>Desde <input type="date" name="desde" value="`, dateInput(d.Desde), `"></label>`,
			`<label>Hasta <input type="date" name="hasta" value="`, dateInput(d.Hasta), `"></label>`,
			`<button type="submit">Filtrar</button></form><div class="kpis">`); err != nil {
			return err
		}
		k := d.KPIs
		for _, item := range []struct {
			label string
			value int64
		}{
			{"Total de oficios", k.TotalOficios},
			{"Pendientes", k.Pendientes},
			{"Respondidos", k.Respondidos},
			{"Enviados", k.Enviados},
			{"Vencidos", k.Vencidos},
			{"Vencen en 7 días", k.Proximos},
			{"Casos vinculados", k.CasosVinculados},
		} {
			if err := kpi(w, item.label, item.value); err != nil {
				return err
			}
		}

		if err := components.Write(w, `</div><section id="serie" data-series='`, components.DataJSON(d.SerieMensual),
			`' data-estados='`, components.DataJSON(d.Estados), `'></section>`); err != nil {
			return err
		}
		if err := ranking(w, "Instituciones con más oficios", d.TopInstituciones); err != nil {
			return err
		}
		if err := ranking(w, "Juzgados con más oficios", d.TopJuzgados); err != nil {
			return err
		}

		if err := components.Write(w, `<section><h3>Próximos vencimientos</h3><ul>`); err != nil {
			return err
		}
		for _, o := range d.ProximosVencer {
			if err := components.Write(w, `<li><a href="/oficios/`, components.E(o.ID), `">N° `, components.E(o.NroOficio),
				`</a> `, components.E(o.CaratulaOficio), ` · `, services.FormatFecha(o.FechaVencimiento), `</li>`); err != nil {
				return err
			}
		}

		if err := components.Write(w, `</ul></section><section><h3>Últimos movimientos</h3><ul>`); err != nil {
			return err
		}
		for _, m := range d.MovimientosRecientes {
			if err := components.Write(w, `<li>`, components.E(models.OficioEstadoLabel(m.EstadoNuevo)), ` · `,
				components.E(m.Detalle), ` · `, partials.FormatRelativeTime(m.CreatedAt, v.Now), `</li>`); err != nil {
				return err
			}
		}

		if err := components.Write(w, `</ul></section><section><h3>Últimas respuestas</h3><ul>`); err != nil {
			return err
		}
		for _, r := range d.RespuestasRecientes {
			estado := "Respondido"
			if r.Devuelto {
				estado = "Devuelto"
			}
			if err := components.Write(w, `<li>`, estado, ` · `, components.E(r.Texto), ` · `,
				partials.FormatRelativeTime(r.FechaHora, v.Now), `</li>`); err != nil {
				return err
			}
		}
		return components.Write(w, `</ul></section>`)
	})
	return components.Layout("Tablero | Mesa de Oficios", body)
}
