// Package identity turns a raw commit author email into the key the directory knows.
package identity

import "commitlens/internal/ports"

// Normalizer substitutes personal addresses with their corporate equivalent.
// It keeps no state of its own; the mapping table lives in the config store.
type Normalizer struct {
	mappings ports.ConfigStore
}

func NewNormalizer(mappings ports.ConfigStore) *Normalizer {
	return &Normalizer{mappings: mappings}
}

// Map returns the mapped address, or email unchanged. It is a single hop: Map(Map(e)) may differ
// from Map(e) when the table chains addresses.
func (n *Normalizer) Map(email string) string {
	if n == nil || n.mappings == nil {
		return email
	}
	return n.mappings.MapEmail(email)
}
