// Package state encodes the persisted directory cache. Blobs are JSON, optionally zstd-compressed;
// Decode recognises both forms, so toggling compression never strands an existing blob.
package state

import (
	"bytes"
	"commitlens/internal/types"
	"time"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

var enc, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
var dec, _ = zstd.NewReader(nil)

// Encode serializes st. With compress set the JSON is zstd-compressed.
func Encode(st types.CacheState, compress bool) ([]byte, error) {
	if st.Employees == nil {
		st.Employees = map[string]types.CacheEntry{}
	}
	b, err := json.Marshal(st)
	if err != nil {
		return nil, err
	}
	if !compress {
		return b, nil
	}
	return enc.EncodeAll(b, make([]byte, 0, len(b)/4)), nil
}

// Decode parses a blob produced by Encode.
func Decode(b []byte) (*types.CacheState, error) {
	if bytes.HasPrefix(b, zstdMagic) {
		out, err := dec.DecodeAll(b, nil)
		if err != nil {
			return nil, err
		}
		b = out
	}
	var st types.CacheState
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, err
	}
	if st.Employees == nil {
		st.Employees = map[string]types.CacheEntry{}
	}
	return &st, nil
}

// FormatTime renders a refresh timestamp the way CacheState.LastUpdate parses it.
// The zero time renders as "".
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
