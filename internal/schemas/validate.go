// Package schemas provides JSON Schema validation for structured data the
// engine receives from the external language model. Model output is never
// unmarshaled before it validates.
package schemas

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ProposedActionsSchema is the repo-relative path of the schema the planner's
// external proposals must satisfy.
const ProposedActionsSchema = "schemas/proposed_actions.json"

// ResolveSchemaPath attempts to find a schema file by trying multiple common
// path resolutions, since commands and tests run from different working
// directories. Returns the first path that exists, or empty string.
func ResolveSchemaPath(relativePath string) string {
	candidates := []string{
		relativePath,
		filepath.Join("..", relativePath),
		filepath.Join("..", "..", relativePath),
	}
	for _, candidate := range candidates {
		if absPath, err := filepath.Abs(candidate); err == nil {
			if _, err := os.Stat(absPath); err == nil {
				return absPath
			}
		}
	}
	return ""
}

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// ValidateJSONString validates JSON content against schema content.
func ValidateJSONString(schemaContent, jsonContent string) error {
	schemaLoader := gojsonschema.NewStringLoader(schemaContent)
	documentLoader := gojsonschema.NewStringLoader(jsonContent)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed to run: %w", err)
	}
	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return validationErr
}

// ValidateProposedActions validates a proposed-actions JSON document against
// the repository schema.
func ValidateProposedActions(jsonContent string) error {
	path := ResolveSchemaPath(ProposedActionsSchema)
	if path == "" {
		return fmt.Errorf("schema file not found: %s", ProposedActionsSchema)
	}
	schemaContent, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read schema %s: %w", path, err)
	}
	return ValidateJSONString(string(schemaContent), jsonContent)
}
