package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateArgsMissingRequired(t *testing.T) {
	schema := ObjectSchema(map[string]any{
		"text": StringProperty("the note"),
	}, "text")

	err := ValidateArgs(map[string]any{}, schema)
	require.Error(t, err)
	var argErr *ArgumentError
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, "text", argErr.Field)
}

func TestValidateArgsTypeMismatch(t *testing.T) {
	schema := ObjectSchema(map[string]any{
		"count": IntegerProperty("how many"),
	})

	assert.NoError(t, ValidateArgs(map[string]any{"count": 3}, schema))
	assert.NoError(t, ValidateArgs(map[string]any{"count": float64(3)}, schema))
	assert.Error(t, ValidateArgs(map[string]any{"count": 3.5}, schema))
	assert.Error(t, ValidateArgs(map[string]any{"count": "three"}, schema))
}

func TestValidateArgsDecodedSchema(t *testing.T) {
	// Shapes a schema the way encoding/json decodes one.
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"enabled": map[string]any{"type": "boolean"},
		},
		"required": []any{"enabled"},
	}

	assert.Error(t, ValidateArgs(map[string]any{}, schema))
	assert.NoError(t, ValidateArgs(map[string]any{"enabled": true}, schema))
	assert.Error(t, ValidateArgs(map[string]any{"enabled": "yes"}, schema))
}

func TestValidateArgsExtraFieldsPass(t *testing.T) {
	schema := ObjectSchema(map[string]any{
		"query": StringProperty("search query"),
	}, "query")

	err := ValidateArgs(map[string]any{"query": "coffee", "limit": 5}, schema)
	assert.NoError(t, err)
}
