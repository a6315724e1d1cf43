package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/cloo-solutions/jeeinsight/internal/domain"
)

// Template names.
const (
	SingleStudent    = "single_student"
	MultipleStudents = "multiple_students"
	Chunk            = "chunk"
	Merge            = "merge"
	Final            = "final"
)

var names = []string{SingleStudent, MultipleStudents, Chunk, Merge, Final}

//go:embed templates/*.tmpl
var defaults embed.FS

// Data is what every template is executed with.
type Data struct {
	Context string
}

// Set is a collection of named prompt templates.
type Set struct {
	templates map[string]*template.Template
}

// Default returns the built-in templates.
func Default() *Set {
	s := &Set{templates: make(map[string]*template.Template, len(names))}
	for _, name := range names {
		src, err := defaults.ReadFile("templates/" + name + ".tmpl")
		if err != nil {
			panic(fmt.Sprintf("prompts: missing default template %s: %v", name, err))
		}
		s.templates[name] = template.Must(template.New(name).Option("missingkey=error").Parse(string(src)))
	}
	return s
}

// Load returns the defaults, overlaid with the YAML file at path when set.
func Load(path string) (*Set, error) {
	s := Default()
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}
	if err := s.Overlay(data); err != nil {
		return nil, err
	}
	return s, nil
}

// Overlay replaces templates from a YAML mapping of name to template text.
// Unknown names are rejected so typos do not go unnoticed.
func (s *Set) Overlay(data []byte) error {
	var overrides map[string]string
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("failed to parse prompts file: %w", err)
	}
	for name, src := range overrides {
		if _, ok := s.templates[name]; !ok {
			return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrUnknownPrompt.Message, fmt.Errorf("template %q", name))
		}
		tpl, err := template.New(name).Option("missingkey=error").Parse(src)
		if err != nil {
			return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid prompt template", err)
		}
		s.templates[name] = tpl
	}
	return nil
}

// Render executes the named template with context.
func (s *Set) Render(name, context string) (string, error) {
	tpl, ok := s.templates[name]
	if !ok {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrUnknownPrompt.Message, fmt.Errorf("template %q", name))
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, Data{Context: context}); err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to render prompt template", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Names lists the available templates.
func (s *Set) Names() []string {
	out := make([]string, 0, len(s.templates))
	for name := range s.templates {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
