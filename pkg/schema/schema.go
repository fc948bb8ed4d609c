// Package schema holds the collection-level metadata the query layer depends
// on, most importantly the primary-key field, plus optional JSON Schema
// validation of incoming documents.
package schema

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/VinayaSathyanarayana/rxdb/pkg/document"
)

// Schema describes a document collection: the primary-key field that defines
// document identity and an optional compiled JSON Schema.
type Schema struct {
	primaryKey string
	validator  *gojsonschema.Schema
}

// New creates a schema with the given primary-key field.
func New(primaryKey string) *Schema {
	return &Schema{primaryKey: primaryKey}
}

// PrimaryKey returns the field name holding the document identity.
func (s *Schema) PrimaryKey() string { return s.primaryKey }

// WithJSONSchema compiles and attaches a JSON Schema that Validate will
// enforce on every document.
func (s *Schema) WithJSONSchema(raw string) error {
	loader := gojsonschema.NewStringLoader(raw)
	compiled, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return fmt.Errorf("invalid json schema: %w", err)
	}
	s.validator = compiled
	return nil
}

// Validate checks that the document carries a primary key and, when a JSON
// Schema is attached, that it conforms to it.
func (s *Schema) Validate(doc document.Document) error {
	if _, ok := document.Key(doc, s.primaryKey); !ok {
		return NewValidationError(fmt.Sprintf("missing primary key field %q", s.primaryKey))
	}

	if s.validator == nil {
		return nil
	}

	result, err := s.validator.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if !result.Valid() {
		errs := result.Errors()
		if len(errs) > 0 {
			return NewValidationError(errs[0].String())
		}
		return NewValidationError("document does not conform to schema")
	}

	return nil
}
