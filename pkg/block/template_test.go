package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbrandt/espalier/pkg/domain"
)

func TestTemplateResolve(t *testing.T) {
	tmpl := Template{
		{Name: "key", Type: FieldString, Required: true},
		{Name: "required", Type: FieldBool, Default: true},
		{Name: "limit", Type: FieldNumber},
	}

	t.Run("defaults fill gaps", func(t *testing.T) {
		values, err := tmpl.Resolve([]domain.Property{{Name: "key", Value: "name"}})
		require.NoError(t, err)
		assert.Equal(t, "name", values["key"])
		assert.Equal(t, true, values["required"])
		_, ok := values["limit"]
		assert.False(t, ok)
	})

	t.Run("supplied value wins over default", func(t *testing.T) {
		values, err := tmpl.Resolve([]domain.Property{
			{Name: "key", Value: "name"},
			{Name: "required", Value: false},
		})
		require.NoError(t, err)
		assert.Equal(t, false, values["required"])
	})

	t.Run("missing required fails", func(t *testing.T) {
		_, err := tmpl.Resolve(nil)
		var perr *PropertyError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "key", perr.Name)
	})

	t.Run("unknown property fails", func(t *testing.T) {
		_, err := tmpl.Resolve([]domain.Property{
			{Name: "key", Value: "name"},
			{Name: "colour", Value: "red"},
		})
		var perr *PropertyError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "colour", perr.Name)
	})

	t.Run("type mismatch fails", func(t *testing.T) {
		_, err := tmpl.Resolve([]domain.Property{{Name: "key", Value: 42}})
		require.Error(t, err)
	})
}

func TestTemplateDecode(t *testing.T) {
	tmpl := inputFields(Field{Name: "min", Type: FieldNumber})

	type props struct {
		inputProps `mapstructure:",squash"`
		Min        *float64 `mapstructure:"min"`
	}

	var p props
	err := tmpl.Decode([]domain.Property{
		{Name: "key", Value: "age"},
		{Name: "min", Value: 18},
	}, &p)
	require.NoError(t, err)
	assert.Equal(t, "age", p.Key)
	assert.True(t, p.Required)
	require.NotNil(t, p.Min)
	assert.Equal(t, 18.0, *p.Min)
}
