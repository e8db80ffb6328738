package generator

import (
	"fmt"
	"strings"
	"text/template"
)

// Template builds a context generator that renders text over the values
// already resolved for the tuple, e.g. "{{.city}}-{{.faculty}}". Names that
// are not resolved yet render as the empty string.
func Template(text string) (*Generator, error) {
	tmpl, err := template.New("attribute").Option("missingkey=zero").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse template %q: %w", text, err)
	}
	return FromFunc(func(values Values) any {
		var b strings.Builder
		if err := tmpl.Execute(&b, map[string]string(values)); err != nil {
			return ""
		}
		return b.String()
	}), nil
}
