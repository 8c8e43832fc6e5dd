// Package schema validates generated JSON documents against the
// JSON-schema contract a prompt node declares for its output.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrMismatch reports that a document does not satisfy its declared
// schema. Callers treat it as non-fatal: raw text survives even when
// the structured projection is dropped.
var ErrMismatch = errors.New("schema: document does not match declared schema")

func Validate(raw []byte, schemaDoc map[string]any) error {
	if len(schemaDoc) == 0 {
		return fmt.Errorf("schema document is required")
	}
	schemaLoader := gojsonschema.NewGoLoader(schemaDoc)
	docLoader := gojsonschema.NewBytesLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMismatch, err)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return fmt.Errorf("%w: %s", ErrMismatch, strings.Join(details, "; "))
	}
	return nil
}
