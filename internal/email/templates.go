package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("email").Funcs(template.FuncMap{
	"severityColor": severityColor,
}).ParseFS(templateFS, "templates/*.html"))

// Fact is one label/value row rendered under the alert body.
type Fact struct {
	Label string
	Value string
}

type alertEmailData struct {
	Title    string
	Heading  string
	Severity string
	Body     string
	Facts    []Fact
	CTALabel string
	CTAURL   string
}

func severityColor(severity string) string {
	switch severity {
	case "critical":
		return "#b91c1c"
	case "warning":
		return "#b45309"
	}
	return "#2563eb"
}

func renderEmailTemplate(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render email template %s: %w", name, err)
	}
	return buf.String(), nil
}
