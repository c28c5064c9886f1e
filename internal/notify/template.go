package notify

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/oshokin/alarm-engine/internal/domain/alarm"
)

// DefaultSubject is the subject template used when none is configured.
const DefaultSubject = `{{.Severity}} alarm: {{.Description}}`

// DefaultBody is the body template used when none is configured.
const DefaultBody = `Alarm: {{.Path}}
Description: {{.Description}}
Severity: {{.Severity}}
{{- if .Message}}
Message: {{.Message}}
{{- end}}
{{- if .Value}}
Value: {{.Value}}
{{- end}}
Time: {{.Time}}
{{- if .Guidance}}

Guidance:
{{- range .Guidance}}
{{.Title}}: {{.Detail}}
{{- end}}
{{- end}}
{{- if .Alarms}}

Active alarms:
{{- range .Alarms}}
{{.}}
{{- end}}
{{- end}}
`

// errNilTemplate is returned by Render on an unparsed template.
var errNilTemplate = errors.New("notification template is nil")

// Data provides the fields available to the templates.
type Data struct {
	Path        string
	Description string
	Severity    string
	Message     string
	Value       string
	Time        string
	Guidance    []alarm.TitleDetail
	Alarms      []string
}

// Template renders the subject and body of a notification.
type Template struct {
	subject *template.Template
	body    *template.Template
}

// NewTemplate parses the templates, falling back to the defaults when empty.
func NewTemplate(subject, body string) (*Template, error) {
	if subject == "" {
		subject = DefaultSubject
	}

	if body == "" {
		body = DefaultBody
	}

	parsedSubject, err := template.New("subject").Parse(subject)
	if err != nil {
		return nil, fmt.Errorf("parse subject template: %w", err)
	}

	parsedBody, err := template.New("body").Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse body template: %w", err)
	}

	return &Template{subject: parsedSubject, body: parsedBody}, nil
}

// Render applies the templates to data. The subject is kept on one line.
func (t *Template) Render(data Data) (string, string, error) {
	if t == nil || t.subject == nil || t.body == nil {
		return "", "", errNilTemplate
	}

	var subject, body bytes.Buffer
	if err := t.subject.Execute(&subject, data); err != nil {
		return "", "", fmt.Errorf("render subject: %w", err)
	}

	if err := t.body.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("render body: %w", err)
	}

	return strings.Join(strings.Fields(subject.String()), " "), body.String(), nil
}
