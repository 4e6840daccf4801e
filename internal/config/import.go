package config

import (
	"commitlens/internal/types"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"
)

// mappingFile is the YAML layout accepted by ImportMappings:
//
//	mappings:
//	  personal@gmail.com: corp@company.com
type mappingFile struct {
	Mappings map[string]string `yaml:"mappings"`
}

// ImportMappings reads a YAML mapping file and adds every entry to the store with one write.
// It returns the number of mappings applied.
func ImportMappings(s *Store, r io.Reader) (int, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("read mapping file: %w", err)
	}
	var mf mappingFile
	if err := yaml.Unmarshal(b, &mf); err != nil {
		return 0, types.Err(types.ErrConfig, err, "parse mapping file")
	}
	if len(mf.Mappings) == 0 {
		return 0, nil
	}
	if err := s.AddMappings(mf.Mappings, true); err != nil {
		return 0, err
	}
	return len(mf.Mappings), nil
}
