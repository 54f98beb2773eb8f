// Package format renders issues into notification text.
package format

import (
	"fmt"
	"strings"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/fentz26/issuewatch/internal/models"
)

// DefaultTemplate shows all four issue fields.
const DefaultTemplate = "[{{.Key}}] {{.Summary}}\nType: {{.Type}} | Status: {{.Status}}"

// Formatter turns an Issue into a Notification.
type Formatter struct {
	tmpl *template.Template
}

// New parses text as a text/template. An empty text uses DefaultTemplate.
func New(text string) (*Formatter, error) {
	if strings.TrimSpace(text) == "" {
		text = DefaultTemplate
	}
	funcMap := template.FuncMap{
		"title": cases.Title(language.English).String,
		"upper": strings.ToUpper,
	}
	tmpl, err := template.New("notification").Option("missingkey=error").Funcs(funcMap).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse message template: %w", err)
	}
	return &Formatter{tmpl: tmpl}, nil
}

// Format renders issue.
func (f *Formatter) Format(issue models.Issue) (models.Notification, error) {
	var sb strings.Builder
	if err := f.tmpl.Execute(&sb, issue); err != nil {
		return models.Notification{}, fmt.Errorf("render message for %s: %w", issue.Key, err)
	}
	return models.Notification{IssueKey: issue.Key, Text: sb.String()}, nil
}
