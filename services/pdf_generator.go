package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"oficios_app_go/models"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// pdfTimeout bounds a single headless Chrome render
const pdfTimeout = 30 * time.Second

// PDFOptions contains options for PDF generation
type PDFOptions struct {
	PageOrientation string // portrait, landscape
	PageSize        string // legal, A4
	MarginTop       int    // points (72 = 1 inch)
	MarginBottom    int
	MarginLeft      int
	MarginRight     int
}

// DefaultPDFOptions returns the options used for constancias
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{
		PageOrientation: "portrait",
		PageSize:        "A4",
		MarginTop:       54,
		MarginBottom:    54,
		MarginLeft:      54,
		MarginRight:     54,
	}
}

// paperSize returns width and height in inches
func (o PDFOptions) paperSize() (float64, float64) {
	var w, h float64
	switch o.PageSize {
	case "legal":
		w, h = 8.5, 14.0
	default: // A4
		w, h = 8.27, 11.69
	}
	if o.PageOrientation == "landscape" {
		w, h = h, w
	}
	return w, h
}

// GeneratePDF renders HTML content to PDF using headless Chrome. chromePath
// overrides the browser binary (headless-shell in Docker).
func GeneratePDF(ctx context.Context, chromePath, htmlContent string, options PDFOptions) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
	)
	if chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
	}

	ctx, cancelTimeout := context.WithTimeout(ctx, pdfTimeout)
	defer cancelTimeout()

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	paperWidth, paperHeight := options.paperSize()

	var pdfBuf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, htmlContent).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPaperWidth(paperWidth).
				WithPaperHeight(paperHeight).
				WithMarginTop(float64(options.MarginTop) / 72.0).
				WithMarginBottom(float64(options.MarginBottom) / 72.0).
				WithMarginLeft(float64(options.MarginLeft) / 72.0).
				WithMarginRight(float64(options.MarginRight) / 72.0).
				WithPrintBackground(true).
				WithDisplayHeaderFooter(false).
				Do(ctx)
			if err != nil {
				return err
			}
			pdfBuf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	return pdfBuf, nil
}

var constanciaTemplate = template.Must(template.New("constancia").Funcs(template.FuncMap{
	"fecha":       func(t time.Time) string { return t.Format("02/01/2006 15:04") },
	"fechaPtr":    FormatFecha,
	"estadoLabel": models.OficioEstadoLabel,
	"estadoPtr": func(e *string) string {
		if e == nil {
			return "-"
		}
		return models.OficioEstadoLabel(*e)
	},
	"institucion": institucionNombre,
	"juzgado":     juzgadoNombre,
	"usuario": func(u *models.User) string {
		if u == nil {
			return ""
		}
		return u.FullName()
	},
}).Parse(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="UTF-8">
<style>
  body { font-family: Arial, Helvetica, sans-serif; font-size: 10pt; color: #111; }
  h1 { font-size: 15pt; text-align: center; margin-bottom: 4pt; }
  .sub { text-align: center; color: #555; margin-bottom: 18pt; }
  h2 { font-size: 12pt; border-bottom: 1px solid #999; margin-top: 16pt; }
  table { width: 100%; border-collapse: collapse; }
  th, td { text-align: left; padding: 3pt 4pt; vertical-align: top; }
  table.grid th, table.grid td { border: 1px solid #bbb; }
  table.grid th { background: #eee; }
  .footer { margin-top: 24pt; font-size: 8pt; color: #666; }
</style>
</head>
<body>
<h1>Constancia de oficio N° {{.Oficio.NroOficio}}</h1>
<div class="sub">Estado actual: {{estadoLabel .Oficio.Estado}}</div>

<h2>Datos del oficio</h2>
<table>
  <tr><th>Tipo</th><td>{{.Oficio.Tipo}}</td><th>Legajo</th><td>{{.Oficio.Legajo}}</td></tr>
  <tr><th>Denuncia</th><td>{{.Oficio.Denuncia}}</td><th>Expte</th><td>{{.Oficio.Expte}}</td></tr>
  <tr><th>Carátula</th><td colspan="3">{{.Oficio.CaratulaOficio}}</td></tr>
  <tr><th>Juzgado</th><td>{{juzgado .Oficio.Juzgado}}</td><th>Institución</th><td>{{institucion .Oficio.Institucion}}</td></tr>
  <tr><th>Emisión</th><td>{{fecha .Oficio.FechaEmision}}</td><th>Vencimiento</th><td>{{fechaPtr .Oficio.FechaVencimiento}}</td></tr>
  <tr><th>Envío</th><td>{{fechaPtr .Oficio.FechaEnvio}}</td><th>Validación</th><td>Coord.: {{if .Oficio.ValidadoCoord}}Sí{{else}}No{{end}} / Director: {{if .Oficio.ValidadoDirector}}Sí{{else}}No{{end}}</td></tr>
</table>

<h2>Movimientos</h2>
{{if .Movimientos}}
<table class="grid">
  <tr><th>Fecha</th><th>Anterior</th><th>Nuevo</th><th>Institución</th><th>Usuario</th><th>Detalle</th></tr>
  {{range .Movimientos}}
  <tr><td>{{fecha .CreatedAt}}</td><td>{{estadoPtr .EstadoAnterior}}</td><td>{{estadoLabel .EstadoNuevo}}</td><td>{{institucion .Institucion}}</td><td>{{usuario .Usuario}}</td><td>{{.Detalle}}</td></tr>
  {{end}}
</table>
{{else}}<p>Sin movimientos.</p>{{end}}

<h2>Respuestas</h2>
{{if .Respuestas}}
<table class="grid">
  <tr><th>Fecha</th><th>Institución</th><th>Devuelto</th><th>Respuesta</th></tr>
  {{range .Respuestas}}
  <tr><td>{{fecha .FechaHora}}</td><td>{{institucion .Institucion}}</td><td>{{if .Devuelto}}Sí{{else}}No{{end}}</td><td>{{.Texto}}</td></tr>
  {{end}}
</table>
{{else}}<p>Sin respuestas.</p>{{end}}

<div class="footer">Generada el {{fecha .GeneradaEl}}</div>
</body>
</html>`))

// BuildConstanciaHTML renders the printable record of an oficio with its
// movement log and replies
func BuildConstanciaHTML(oficio *models.Oficio, movimientos []models.MovimientoOficio, respuestas []models.Respuesta, now time.Time) (string, error) {
	var buf bytes.Buffer
	err := constanciaTemplate.Execute(&buf, struct {
		Oficio      *models.Oficio
		Movimientos []models.MovimientoOficio
		Respuestas  []models.Respuesta
		GeneradaEl  time.Time
	}{oficio, movimientos, respuestas, now})
	if err != nil {
		return "", fmt.Errorf("failed to render constancia: %w", err)
	}
	return buf.String(), nil
}

// GenerateConstanciaPDF prints the constancia of an oficio loaded by GetOficio
func GenerateConstanciaPDF(ctx context.Context, oficio *models.Oficio, chromePath string, now time.Time) ([]byte, error) {
	html, err := BuildConstanciaHTML(oficio, oficio.Movimientos, oficio.Respuestas, now)
	if err != nil {
		return nil, err
	}
	return GeneratePDF(ctx, chromePath, html, DefaultPDFOptions())
}
