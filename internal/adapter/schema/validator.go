// Package schema validates model-produced records against embedded JSON Schemas.
package schema

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
)

// Record schema names.
const (
	Technical  = "technical"
	Behavioral = "behavioral"
	Experience = "experience"
	Cultural   = "cultural"
	Resume     = "resume"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every violation found in one document. It matches domain.ErrSchemaInvalid.
type ValidationError struct {
	Schema string
	Errors []FieldError
}

func (ve *ValidationError) Error() string {
	parts := make([]string, 0, len(ve.Errors))
	for _, e := range ve.Errors {
		parts = append(parts, e.Field+": "+e.Message)
	}
	return fmt.Sprintf("%s record %s: %s", ve.Schema, domain.ErrSchemaInvalid, strings.Join(parts, "; "))
}

func (ve *ValidationError) Unwrap() error { return domain.ErrSchemaInvalid }

// Validator holds the compiled record schemas. It is safe for concurrent use.
type Validator struct {
	schemas map[string]*gojsonschema.Schema
}

// NewValidator compiles every embedded schema.
func NewValidator() (*Validator, error) {
	v := &Validator{schemas: make(map[string]*gojsonschema.Schema)}
	for _, name := range []string{Technical, Behavioral, Experience, Cultural, Resume} {
		raw, err := schemaFS.ReadFile("schemas/" + name + ".json")
		if err != nil {
			return nil, fmt.Errorf("op=schema.load: %s: %w", name, err)
		}
		s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("op=schema.compile: %s: %w", name, err)
		}
		v.schemas[name] = s
	}
	return v, nil
}

// MustNewValidator is NewValidator for wiring code where the embedded schemas are known good.
func MustNewValidator() *Validator {
	v, err := NewValidator()
	if err != nil {
		panic(err)
	}
	return v
}

// Validate checks doc against the named schema. A nil return means doc conforms.
func (v *Validator) Validate(name string, doc map[string]any) error {
	s, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("op=schema.validate: unknown schema %q: %w", name, domain.ErrInvalidArgument)
	}
	res, err := s.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("op=schema.validate: %w", err)
	}
	if res.Valid() {
		return nil
	}
	ve := &ValidationError{Schema: name, Errors: make([]FieldError, 0, len(res.Errors()))}
	for _, desc := range res.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		ve.Errors = append(ve.Errors, FieldError{Field: field, Message: desc.Description()})
	}
	sort.Slice(ve.Errors, func(i, j int) bool { return ve.Errors[i].Field < ve.Errors[j].Field })
	return ve
}
