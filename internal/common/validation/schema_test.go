package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var personSchema = map[string]interface{}{
	"type":     "object",
	"required": []string{"name", "contact"},
	"properties": map[string]interface{}{
		"name": map[string]interface{}{"type": "string", "minLength": 1},
		"contact": map[string]interface{}{
			"type":     "object",
			"required": []string{"email"},
			"properties": map[string]interface{}{
				"email": map[string]interface{}{"type": "string"},
			},
		},
	},
}

func TestValidate(t *testing.T) {
	t.Run("valid document", func(t *testing.T) {
		res, err := Validate(personSchema, map[string]interface{}{
			"name":    "Ada",
			"contact": map[string]interface{}{"email": "ada@uni.edu"},
		})
		require.NoError(t, err)
		assert.True(t, res.Valid)
		assert.Empty(t, res.Errors)
	})

	t.Run("missing nested property", func(t *testing.T) {
		res, err := Validate(personSchema, `{"name":"Ada","contact":{}}`)
		require.NoError(t, err)
		assert.False(t, res.Valid)
		assert.True(t, res.HasErrors("contact.email"))
		assert.Equal(t, "REQUIRED", res.Errors[0].Code)
	})

	t.Run("missing root property and short string", func(t *testing.T) {
		res, err := Validate(personSchema, []byte(`{"name":""}`))
		require.NoError(t, err)
		assert.False(t, res.Valid)
		assert.True(t, res.HasErrors("contact"))
		assert.True(t, res.HasErrors("name"))
		assert.Len(t, res.GetErrorMessages(), 2)
	})

	t.Run("malformed document", func(t *testing.T) {
		_, err := Validate(personSchema, `{"name":`)
		assert.Error(t, err)
	})
}

func TestGetErrorsForField(t *testing.T) {
	vr := &ValidationResult{Errors: []ValidationError{
		{Field: "contact.email"},
		{Field: "contact"},
		{Field: "contactless"},
		{Field: "name"},
	}}
	assert.Len(t, vr.GetErrorsForField("contact"), 2)
}
