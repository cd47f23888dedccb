package pages

import (
	"context"
	"io"

	"oficios_app_go/middleware"
	"oficios_app_go/models"
	"oficios_app_go/services"
	"oficios_app_go/templates/components"

	"github.com/a-h/templ"
)

// ResponderView is the public page a professional opens from the e-mailed link
type ResponderView struct {
	Token            string
	CSRFToken        string
	Oficio           *models.Oficio
	TurnstileSiteKey string
	Error            string
	Enviado          bool
}

// Responder renders the oficio summary and the professional response form
func Responder(v ResponderView) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		o := v.Oficio
		if err := components.Write(w, `<h1>Oficio N° `, components.E(o.NroOficio), `</h1><dl>`,
			`<dt>Carátula</dt><dd>`, components.E(o.CaratulaOficio), `</dd>`,
			`<dt>Legajo</dt><dd>`, components.E(o.Legajo), `</dd>`,
			`<dt>Estado</dt><dd>`, components.E(models.OficioEstadoLabel(o.Estado)), `</dd>`,
			`<dt>Vencimiento</dt><dd>`, services.FormatFecha(o.FechaVencimiento), `</dd></dl>`); err != nil {
			return err
		}
		if v.Error != "" {
			if err := components.Alert("error", v.Error).Render(ctx, w); err != nil {
				return err
			}
		}
		if v.Enviado {
			return components.Alert("success", "La respuesta fue registrada. Gracias.").Render(ctx, w)
		}

		if err := components.Write(w,
			`<form method="post" action="/responder/`, components.E(v.Token), `" enctype="multipart/form-data">`,
			`<input type="hidden" name="_csrf" value="`, components.E(v.CSRFToken), `">`,
			`<label>Usuario <input name="username" required></label>`,
			`<label>Contraseña <input type="password" name="password" required></label>`,
			`<label>Respuesta <textarea name="respuesta" rows="6"></textarea></label>`,
			`<label><input type="checkbox" name="devuelto" value="true"> Devolver sin responder</label>`,
			`<label>Archivo PDF <input type="file" name="archivo" accept="application/pdf"></label>`); err != nil {
			return err
		}
		if v.TurnstileSiteKey != "" {
			nonce := components.E(middleware.GetNonce(ctx))
			if err := components.Write(w,
				`<div class="cf-turnstile" data-action="`, services.TurnstileActionResponder, `" data-sitekey="`, components.E(v.TurnstileSiteKey), `"></div>`,
				`<script nonce="`, nonce, `" src="https://challenges.cloudflare.com/turnstile/v0/api.js" async defer></script>`); err != nil {
				return err
			}
		}
		return components.Write(w, `<button type="submit">Enviar respuesta</button></form>`)
	})
	return components.Layout("Responder oficio | Mesa de Oficios", body)
}
