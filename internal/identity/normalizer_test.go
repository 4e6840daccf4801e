package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type staticMappings map[string]string

func (m staticMappings) Get(string) (string, bool)   { return "", false }
func (m staticMappings) GetOr(_, def string) string { return def }
func (m staticMappings) MapEmail(email string) string {
	if to, ok := m[email]; ok {
		return to
	}
	return email
}

func TestNormalizerMap(t *testing.T) {
	n := NewNormalizer(staticMappings{
		"p@gmail.com": "c@co.com",
		"c@co.com":    "final@co.com",
	})

	assert.Equal(t, "c@co.com", n.Map("p@gmail.com"))
	assert.Equal(t, "unmapped@x.com", n.Map("unmapped@x.com"))
	// Single hop: the mapped value is not mapped again.
	assert.NotEqual(t, n.Map("p@gmail.com"), n.Map(n.Map("p@gmail.com")))
}

func TestNilNormalizerIsIdentity(t *testing.T) {
	var n *Normalizer
	assert.Equal(t, "a@x.com", n.Map("a@x.com"))
	assert.Equal(t, "a@x.com", NewNormalizer(nil).Map("a@x.com"))
}
