package features

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// LoadImportance reads importance scores from a YAML file mapping feature
// names to scores, as exported next to a trained classifier:
//
//	B02: 12.4
//	B03: 9.1
//	NDVI: 31.0
func LoadImportance(path string) (ImportanceMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "features: read importance file %s", path)
	}
	return ParseImportance(data)
}

// ParseImportance decodes YAML importance scores.
func ParseImportance(data []byte) (ImportanceMap, error) {
	var m ImportanceMap
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrap(err, "features: parse importance YAML")
	}
	if m == nil {
		m = ImportanceMap{}
	}
	return m, nil
}
