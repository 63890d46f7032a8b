package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ValidationError lists every schema violation found in a document.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("data validation failed: %s", strings.Join(e.Errors, "; "))
}

// Schema is a compiled JSON schema that can validate many documents.
type Schema struct {
	schema *gojsonschema.Schema
}

// Compile parses a schema given as a Go value (map or struct).
func Compile(schemaMap map[string]interface{}) (*Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schemaMap))
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return &Schema{schema: s}, nil
}

// MustCompile is Compile for package-level schemas.
func MustCompile(schemaMap map[string]interface{}) *Schema {
	s, err := Compile(schemaMap)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate returns a *ValidationError when doc does not conform.
func (s *Schema) Validate(doc interface{}) error {
	result, err := s.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return &ValidationError{Errors: errs}
	}
	return nil
}

// ValidateDocument compiles schemaMap and validates doc in one step.
func ValidateDocument(schemaMap map[string]interface{}, doc interface{}) error {
	if len(schemaMap) == 0 {
		return nil
	}
	s, err := Compile(schemaMap)
	if err != nil {
		return err
	}
	return s.Validate(doc)
}
