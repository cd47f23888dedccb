package components

import (
	"context"
	"io"

	"oficios_app_go/middleware"

	"github.com/a-h/templ"
)

// Write copies parts to w, stopping at the first error
func Write(w io.Writer, parts ...string) error {
	for _, p := range parts {
		if _, err := io.WriteString(w, p); err != nil {
			return err
		}
	}
	return nil
}

// E escapes s for HTML text and attribute values
func E(s string) string {
	return templ.EscapeString(s)
}

// Layout wraps body in the base page, loading HTMX with the request nonce
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		nonce := middleware.GetNonce(ctx)
		if err := Write(w,
			`<!DOCTYPE html><html lang="es"><head><meta charset="UTF-8">`,
			`<meta name="viewport" content="width=device-width, initial-scale=1">`,
			`<title>`, E(title), `</title>`,
			`<script nonce="`, E(nonce), `" src="https://unpkg.com/htmx.org@1.9.12"></script>`,
			`<style>body{font-family:system-ui,sans-serif;margin:0;background:#f6f7f9;color:#1f2933}`,
			`main{max-width:1100px;margin:0 auto;padding:24px}table{width:100%;border-collapse:collapse;background:#fff}`,
			`th,td{padding:6px 8px;border-bottom:1px solid #e4e7eb;text-align:left;font-size:14px}`,
			`.kpis{display:grid;grid-template-columns:repeat(auto-fit,minmax(140px,1fr));gap:12px}`,
			`.kpi{background:#fff;padding:12px;border-radius:8px}.kpi b{display:block;font-size:24px}`,
			`.badge{padding:2px 8px;border-radius:10px;font-size:12px;background:#e4e7eb}`,
			`.vencido{color:#b42318}.alert{padding:10px 14px;border-radius:8px;margin:8px 0}`,
			`.alert-error{background:#fde8e8;color:#9b1c1c}.alert-success{background:#e6f4ea;color:#1e6b34}</style>`,
			`</head><body><main>`,
		); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		return Write(w, `</main></body></html>`)
	})
}

// Alert renders a flash message; kind is "error" or "success"
func Alert(kind, message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return Write(w, `<div class="alert alert-`, E(kind), `" role="alert">`, E(message), `</div>`)
	})
}
