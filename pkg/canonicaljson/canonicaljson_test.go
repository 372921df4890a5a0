package canonicaljson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalSortsKeysRecursively(t *testing.T) {
	in := map[string]any{
		"b": 1,
		"a": map[string]any{
			"z": true,
			"m": []any{map[string]any{"k2": "v", "k1": "u"}},
		},
	}

	out, err := Marshal(in)
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"m":[{"k1":"u","k2":"v"}],"z":true},"b":1}`, string(out))
}

func TestMarshalIsOrderIndependent(t *testing.T) {
	type doc struct {
		ID      string         `json:"id"`
		Claims  map[string]any `json:"claims"`
		Version int            `json:"version"`
	}
	a := doc{ID: "x", Version: 2, Claims: map[string]any{"one": 1, "two": "2"}}

	first, err := Marshal(a)
	require.NoError(t, err)
	second, err := Marshal(a)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMarshalPreservesNumbers(t *testing.T) {
	out, err := Marshal(map[string]any{"n": 730, "f": 0.25})
	require.NoError(t, err)
	assert.Equal(t, `{"f":0.25,"n":730}`, string(out))
}

func TestMarshalNoWhitespace(t *testing.T) {
	out, err := Marshal(map[string]any{"a": []any{1, 2, 3}, "b": nil})
	require.NoError(t, err)
	assert.NotContains(t, string(out), " ")
	assert.Equal(t, `{"a":[1,2,3],"b":null}`, string(out))
}

func TestMarshalChangesWhenFieldChanges(t *testing.T) {
	base := map[string]any{"id": "vc-1", "subject": "did:caritas:user:0xabc"}
	mutated := map[string]any{"id": "vc-1", "subject": "did:caritas:user:0xabd"}

	a, err := Marshal(base)
	require.NoError(t, err)
	b, err := Marshal(mutated)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
