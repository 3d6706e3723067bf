package functions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name   string
		wantID ID
		wantOK bool
	}{
		{"lcase", Lcase, true},
		{"LCASE", Lcase, true},
		{"ccnorm_contains_any", CCNormContainsAny, true},
		{"set_var", SetVar, true},
		{"unknown", Invalid, false},
		{"", Invalid, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := Lookup(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestSpecsAreComplete(t *testing.T) {
	for _, id := range All() {
		spec := id.Spec()
		assert.NotEmpty(t, spec.Name, "id %d has no name", id)
		assert.GreaterOrEqual(t, spec.MinArgs, 1, spec.Name)
		if spec.MaxArgs != Variadic {
			assert.GreaterOrEqual(t, spec.MaxArgs, spec.MinArgs, spec.Name)
		}
	}
	assert.Len(t, Names(), len(All()))
}

func TestPurity(t *testing.T) {
	assert.False(t, Set.Pure())
	assert.False(t, SetVar.Pure())
	assert.True(t, Lcase.Pure())
	assert.False(t, Invalid.Pure())
}

func TestTextRoundTrip(t *testing.T) {
	for _, id := range All() {
		text, err := id.MarshalText()
		require.NoError(t, err)

		var got ID
		require.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, id, got)
	}

	var bad ID
	assert.Error(t, bad.UnmarshalText([]byte("nope")))
}
