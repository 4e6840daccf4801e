package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func employee() map[string]any {
	return map[string]any{
		"email":    "alice@company.com",
		"fullName": "Alice Liddell",
		"work": map[string]any{
			"department": "101",
			"title":      float64(7),
			"reportsTo":  map[string]any{"displayName": "Queen"},
			"active":     true,
		},
		"tags": []any{"eng", "oncall"},
	}
}

func TestEvalString(t *testing.T) {
	obj := employee()

	cases := map[string]string{
		"email":                      "alice@company.com",
		"displayName || fullName":    "Alice Liddell",
		"work.reportsTo.displayName": "Queen",
		"work.title":                 "7",
		"tags":                       `["eng","oncall"]`,
		"work.site":                  "",
	}
	for expr, want := range cases {
		got, err := EvalString(expr, obj)
		require.NoError(t, err, expr)
		assert.Equal(t, want, got, expr)
	}

	_, err := EvalString("work.[", obj)
	assert.Error(t, err)
}

func TestEvalAny(t *testing.T) {
	obj := employee()

	v, err := EvalAny("contains(tags, 'oncall')", obj)
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = EvalAny("nonexistent", obj)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestMatches(t *testing.T) {
	obj := employee()

	assert.True(t, Matches("", obj))
	assert.True(t, Matches("work.active", obj))
	assert.True(t, Matches("work.department == '101'", obj))
	assert.False(t, Matches("work.department == '102'", obj))
	// non-boolean results do not match
	assert.False(t, Matches("email", obj))
	assert.False(t, Matches("work.[", obj))
}
