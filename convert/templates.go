package convert

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"e2x/config"
	"e2x/content"
)

// Values is a struct that holds variables we make available for template expansion
type Values struct {
	Context    string
	ID         string
	Title      string
	Language   string
	Authors    []string
	Chapters   int
	SourceFile string
}

func expandTemplate(c *content.Content, name config.TemplateFieldName, field string) (string, error) {
	funcMap := sprig.FuncMap()

	tmpl, err := template.New(string(name)).Funcs(funcMap).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	values := Values{
		Context:    string(name),
		ID:         c.Book.ID,
		Title:      c.Book.Title,
		Language:   c.Book.Lang.String(),
		Authors:    c.Book.Authors,
		Chapters:   len(c.Book.Chapters),
		SourceFile: strings.TrimSuffix(filepath.Base(c.SrcName), filepath.Ext(c.SrcName)),
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}
