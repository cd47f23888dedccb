package services

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"os"
	"path/filepath"
	"strings"
	texttemplate "text/template"
	"time"

	"oficios_app_go/config"
	"oficios_app_go/models"

	"github.com/resend/resend-go/v2"
	"gorm.io/gorm"
)

// EmailTemplatesDir holds the <name>.html / <name>.txt email templates
var EmailTemplatesDir = "templates/emails"

// Email represents an email message
type Email struct {
	To       []string
	Subject  string
	HTMLBody string
	TextBody string
}

// loadTemplate renders templates/emails/<name>.html and .txt with data
func loadTemplate(templateName string, data interface{}) (html string, text string, err error) {
	htmlPath := filepath.Join(EmailTemplatesDir, templateName+".html")
	content, err := os.ReadFile(htmlPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to read template %s: %w", htmlPath, err)
	}
	htmlTmpl, err := template.New(filepath.Base(htmlPath)).Parse(string(content))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse template %s: %w", htmlPath, err)
	}
	var htmlBuf bytes.Buffer
	if err := htmlTmpl.Execute(&htmlBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to execute template %s: %w", htmlPath, err)
	}

	textPath := filepath.Join(EmailTemplatesDir, templateName+".txt")
	content, err = os.ReadFile(textPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to read template %s: %w", textPath, err)
	}
	textTmpl, err := texttemplate.New(filepath.Base(textPath)).Parse(string(content))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse template %s: %w", textPath, err)
	}
	var textBuf bytes.Buffer
	if err := textTmpl.Execute(&textBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to execute template %s: %w", textPath, err)
	}

	return htmlBuf.String(), textBuf.String(), nil
}

// buildEmailWithFallback renders templateName, falling back to a plain text body
func buildEmailWithFallback(templateName string, tmplData interface{}, toEmail, subject, fallbackText string) *Email {
	htmlBody, textBody, err := loadTemplate(templateName, tmplData)
	if err != nil {
		log.Printf("[EMAIL] Error loading %s template: %v", templateName, err)
		htmlBody, textBody = "", fallbackText
	}

	return &Email{
		To:       []string{toEmail},
		Subject:  subject,
		HTMLBody: htmlBody,
		TextBody: textBody,
	}
}

// SendEmail sends an email using Resend API
func SendEmail(cfg *config.Config, email *Email) error {
	// In test mode, log the email instead of sending
	if cfg.EmailTestMode {
		logEmailToConsole(email)
		return nil
	}

	if cfg.ResendAPIKey == "" {
		return fmt.Errorf("RESEND_API_KEY not configured")
	}

	client := resend.NewClient(cfg.ResendAPIKey)
	fromAddress := fmt.Sprintf("%s <%s>", cfg.EmailFromName, cfg.EmailFrom)

	params := &resend.SendEmailRequest{
		From:    fromAddress,
		To:      email.To,
		Subject: email.Subject,
	}
	if email.HTMLBody != "" {
		params.Html = email.HTMLBody
	}
	if email.TextBody != "" {
		params.Text = email.TextBody
	}
	if params.Html == "" && params.Text == "" {
		return fmt.Errorf("email must have either HTMLBody or TextBody")
	}

	sent, err := client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send email via Resend: %w", err)
	}

	log.Printf("[EMAIL] Sent via Resend (ID: %s) to: %v", sent.Id, email.To)
	return nil
}

// logEmailToConsole logs email details to console in test mode
func logEmailToConsole(email *Email) {
	separator := strings.Repeat("=", 80)
	log.Printf("\n%s\n[EMAIL] Test mode, not sent\n%s", separator, separator)
	log.Printf("To: %v", email.To)
	log.Printf("Subject: %s", email.Subject)
	log.Printf("\n--- TEXT BODY ---\n%s", email.TextBody)
	log.Printf("\n--- HTML BODY (first 500 chars) ---\n%s...", truncate(email.HTMLBody, 500))
	log.Printf("%s\n", separator)
}

// truncate truncates a string to a maximum length
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

// SendEmailAsync sends an email in a goroutine so handlers do not wait on Resend
func SendEmailAsync(cfg *config.Config, email *Email) {
	emailCopy := &Email{
		To:       append([]string{}, email.To...),
		Subject:  email.Subject,
		HTMLBody: email.HTMLBody,
		TextBody: email.TextBody,
	}

	go func(cfg *config.Config, email *Email) {
		if err := SendEmail(cfg, email); err != nil {
			log.Printf("[EMAIL] Error sending async email: %v", err)
		}
	}(cfg, emailCopy)
}

// AsignacionEmailData contains data for the oficio assignment email
type AsignacionEmailData struct {
	InstitucionNombre string
	NroOficio         string
	Legajo            string
	Caratula          string
	FechaVencimiento  string
	Detalle           string
	ResponseLink      string
}

// BuildAsignacionEmail notifies an institution that an oficio was assigned to it
func BuildAsignacionEmail(toEmail string, data AsignacionEmailData) *Email {
	subject := fmt.Sprintf("Oficio asignado N° %s", data.NroOficio)
	fallback := fmt.Sprintf("Se asignó a %s el oficio N° %s (%s).\nResponder: %s\n",
		data.InstitucionNombre, data.NroOficio, data.Caratula, data.ResponseLink)
	return buildEmailWithFallback("oficio_asignado", data, toEmail, subject, fallback)
}

// VencimientoEmailData contains data for the upcoming deadline reminder
type VencimientoEmailData struct {
	UserName         string
	NroOficio        string
	Caratula         string
	Estado           string
	FechaVencimiento string
	Link             string
}

// BuildVencimientoEmail reminds the creator of an oficio that it is about to expire
func BuildVencimientoEmail(toEmail string, data VencimientoEmailData) *Email {
	subject := fmt.Sprintf("Oficio N° %s vence el %s", data.NroOficio, data.FechaVencimiento)
	fallback := fmt.Sprintf("Hola %s, el oficio N° %s (%s) vence el %s y está %s.\n%s\n",
		data.UserName, data.NroOficio, data.Caratula, data.FechaVencimiento, data.Estado, data.Link)
	return buildEmailWithFallback("vencimiento_proximo", data, toEmail, subject, fallback)
}

// FormatFecha renders a timestamp the way the office reads dates
func FormatFecha(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("02/01/2006 15:04")
}

// NotifyAsignacion emails the institution an oficio was just assigned to,
// including a signed response link. Returns nil without sending when the
// institution has no email address.
func NotifyAsignacion(db *gorm.DB, cfg *config.Config, oficioID, detalle string, now time.Time) (*Email, error) {
	var oficio models.Oficio
	if err := db.Preload("Institucion").First(&oficio, "id = ?", oficioID).Error; err != nil {
		return nil, fmt.Errorf("failed to load oficio: %w", err)
	}
	if oficio.Institucion == nil || oficio.Institucion.Email == "" {
		return nil, nil
	}

	token, err := IssueResponseLink(cfg.SessionSecret, oficio.ID, oficio.Institucion.ID, cfg.ResponseLinkTTL, now)
	if err != nil {
		return nil, err
	}

	email := BuildAsignacionEmail(oficio.Institucion.Email, AsignacionEmailData{
		InstitucionNombre: oficio.Institucion.Nombre,
		NroOficio:         oficio.NroOficio,
		Legajo:            oficio.Legajo,
		Caratula:          oficio.CaratulaOficio,
		FechaVencimiento:  FormatFecha(oficio.FechaVencimiento),
		Detalle:           detalle,
		ResponseLink:      strings.TrimRight(cfg.AppURL, "/") + "/responder/" + token,
	})
	SendEmailAsync(cfg, email)
	return email, nil
}
