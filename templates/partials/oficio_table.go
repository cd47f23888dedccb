package partials

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"time"

	"oficios_app_go/models"
	"oficios_app_go/templates/components"

	"github.com/a-h/templ"
)

// OficioTableView is one page of the oficio listing
type OficioTableView struct {
	Oficios  []models.Oficio
	Total    int64
	Page     int
	PageSize int
	Query    url.Values // active filters, repeated in the pagination links
	Now      time.Time
}

// TotalPages returns the page count, at least 1
func (v OficioTableView) TotalPages() int {
	if v.PageSize <= 0 || v.Total == 0 {
		return 1
	}
	return int((v.Total + int64(v.PageSize) - 1) / int64(v.PageSize))
}

func (v OficioTableView) pageURL(page int) string {
	q := url.Values{}
	for k, vals := range v.Query {
		q[k] = vals
	}
	q.Set("page", strconv.Itoa(page))
	return "/oficios?" + q.Encode()
}

// OficioTable renders the oficio listing swapped in by HTMX
func OficioTable(v OficioTableView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := components.Write(w, `<div id="oficios-table"><table><thead><tr>`,
			`<th>N°</th><th>Legajo</th><th>Carátula</th><th>Estado</th><th>Institución</th>`,
			`<th>Juzgado</th><th>Vencimiento</th><th>PDF</th></tr></thead><tbody>`); err != nil {
			return err
		}
		if len(v.Oficios) == 0 {
			if err := components.Write(w, `<tr><td colspan="8">No se encontraron oficios.</td></tr>`); err != nil {
				return err
			}
		}
		for i := range v.Oficios {
			o := &v.Oficios[i]
			venceClass := ""
			if o.IsVencido(v.Now) {
				venceClass = ` class="vencido"`
			}
			archivo := "-"
			if o.Archivo.HasFile() {
				archivo = `<a href="/oficios/` + components.E(o.ID) + `/archivo">` + formatFileSize(o.Archivo.Size) + `</a>`
			}
			if err := components.Write(w, `<tr>`,
				`<td><a href="/oficios/`, components.E(o.ID), `">`, components.E(o.NroOficio), `</a></td>`,
				`<td>`, components.E(o.Legajo), `</td>`,
				`<td>`, components.E(o.CaratulaOficio), `</td>`,
				`<td><span class="badge">`, components.E(models.OficioEstadoLabel(o.Estado)), `</span></td>`,
				`<td>`, components.E(institucionNombre(o.Institucion)), `</td>`,
				`<td>`, components.E(juzgadoNombre(o.Juzgado)), `</td>`,
				`<td`, venceClass, `>`, formatFecha(o.FechaVencimiento), `</td>`,
				`<td>`, archivo, `</td></tr>`); err != nil {
				return err
			}
		}
		if err := components.Write(w, `</tbody></table>`); err != nil {
			return err
		}

		pages := v.TotalPages()
		if err := components.Write(w, `<nav class="pagination">`, fmt.Sprintf("Página %d de %d (%d oficios)", v.Page, pages, v.Total)); err != nil {
			return err
		}
		if v.Page > 1 {
			if err := components.Write(w, ` <a hx-get="`, components.E(v.pageURL(v.Page-1)), `" hx-target="#oficios-table" hx-swap="outerHTML" href="#">Anterior</a>`); err != nil {
				return err
			}
		}
		if v.Page < pages {
			if err := components.Write(w, ` <a hx-get="`, components.E(v.pageURL(v.Page+1)), `" hx-target="#oficios-table" hx-swap="outerHTML" href="#">Siguiente</a>`); err != nil {
				return err
			}
		}
		return components.Write(w, `</nav></div>`)
	})
}
