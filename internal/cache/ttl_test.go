package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCache(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewTTL[string, string]()
	c.now = func() time.Time { return now }

	c.Set("key1", "value1", 200*time.Millisecond)
	c.Set("key2", "value2", time.Hour)
	v, ok := c.Get("key1")
	assert.True(t, ok)
	assert.Equal(t, "value1", v)

	now = now.Add(250 * time.Millisecond)
	v, ok = c.Get("key1")
	assert.False(t, ok)
	assert.Equal(t, "", v)
	assert.Equal(t, 1, c.Len())

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 1, c.Purge())
	assert.Zero(t, c.Len())
}
