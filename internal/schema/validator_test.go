package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDefs() map[string]map[string]interface{} {
	return map[string]map[string]interface{}{
		"check_order": {
			"type": "object",
			"properties": map[string]interface{}{
				"order_number":     map[string]interface{}{"type": "string"},
				"has_open_request": map[string]interface{}{"type": "boolean"},
			},
			"required": []string{"order_number", "has_open_request"},
		},
	}
}

func TestValidator_Validate(t *testing.T) {
	v := NewValidator(testDefs(), 16)

	err := v.Validate("check_order", []byte(`{"order_number":"1001","has_open_request":false}`))
	require.NoError(t, err)

	// Missing required field
	err = v.Validate("check_order", []byte(`{"order_number":"1001"}`))
	assert.Error(t, err)

	// Wrong type
	err = v.Validate("check_order", []byte(`{"order_number":1001,"has_open_request":false}`))
	assert.Error(t, err)
}

func TestValidator_NotJSON(t *testing.T) {
	v := NewValidator(testDefs(), 16)
	err := v.Validate("check_order", []byte(`<html>oops</html>`))
	assert.Error(t, err)
}

func TestValidator_UnknownSchema(t *testing.T) {
	v := NewValidator(testDefs(), 16)
	err := v.Validate("nope", []byte(`{}`))
	assert.Error(t, err)
}

func TestValidator_CachesCompiledSchema(t *testing.T) {
	v := NewValidator(testDefs(), 16)

	require.NoError(t, v.Validate("check_order", []byte(`{"order_number":"1","has_open_request":true}`)))
	// Second validation hits the compiled cache; result must be identical.
	require.NoError(t, v.Validate("check_order", []byte(`{"order_number":"2","has_open_request":false}`)))
}
