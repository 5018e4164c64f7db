package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
	"type": "object",
	"required": ["name"],
	"properties": {
		"name": {"type": "string"},
		"score": {"type": "number", "minimum": 0, "maximum": 1}
	}
}`

func TestValidateJSONString_Valid(t *testing.T) {
	err := ValidateJSONString(testSchema, `{"name": "ok", "score": 0.5}`)
	assert.NoError(t, err)
}

func TestValidateJSONString_Invalid(t *testing.T) {
	err := ValidateJSONString(testSchema, `{"score": 2}`)
	require.Error(t, err)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.NotEmpty(t, ve.Errors)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestValidateProposedActions(t *testing.T) {
	if ResolveSchemaPath(ProposedActionsSchema) == "" {
		t.Skip("schema file not reachable from test working directory")
	}

	valid := `[
		{"target": {"field_id": "email"}, "operation": "fill", "value": "a@b.c", "confidence": 0.6},
		{"target": {"resolution_handle": "f-1"}, "operation": "skip"}
	]`
	assert.NoError(t, ValidateProposedActions(valid))

	// Unknown operation must be rejected before anything is unmarshaled.
	invalid := `[{"target": {}, "operation": "drop_table"}]`
	assert.Error(t, ValidateProposedActions(invalid))
}
