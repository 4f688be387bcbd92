package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title    string
	Heading  string
	CTALabel string
	CTAURL   string
}

type quoteEmailData struct {
	baseEmailData
	QuoteNumber   string
	VehicleYear   string
	VehicleMake   string
	VehicleModel  string
	Sqft          string
	CostFormatted string
}

type escalationEmailData struct {
	baseEmailData
	Situation      string
	ConversationID string
	CustomerEmail  string
	CustomerPhone  string
	LastMessage    string
}

type followUpEmailData struct {
	baseEmailData
	ConversationID string
	CustomerEmail  string
	Reason         string
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

// FormatUSD renders a whole-dollar amount for quote emails and replies.
func FormatUSD(dollars int64) string {
	return fmt.Sprintf("$%d", dollars)
}
