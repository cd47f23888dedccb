package pages

import (
	"context"
	"io"

	"oficios_app_go/templates/components"

	"github.com/a-h/templ"
)

// Login renders the staff login page; errMsg is shown above the form
func Login(csrfToken, errMsg string) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := components.Write(w, `<h1>Mesa de Oficios</h1><div id="login-error">`); err != nil {
			return err
		}
		if errMsg != "" {
			if err := components.Alert("error", errMsg).Render(ctx, w); err != nil {
				return err
			}
		}
		return components.Write(w, `</div>`,
			`<form method="post" action="/login" hx-post="/login" hx-target="#login-error">`,
			`<input type="hidden" name="_csrf" value="`, components.E(csrfToken), `">`,
			`<label>Usuario <input name="username" autocomplete="username" required></label>`,
			`<label>Contraseña <input type="password" name="password" autocomplete="current-password" required></label>`,
			`<button type="submit">Ingresar</button></form>`)
	})
	return components.Layout("Ingresar | Mesa de Oficios", body)
}
