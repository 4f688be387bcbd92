package pricing

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed table_default.yaml
var defaultTableYAML []byte

type tableFile struct {
	Models map[string]float64 `yaml:"models"`
}

// LoadTable reads the model-to-square-footage table from a YAML file. An
// empty path falls back to the embedded default table.
func LoadTable(path string) (map[string]float64, error) {
	data := defaultTableYAML
	if path != "" {
		fileData, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read pricing table: %w", err)
		}
		data = fileData
	}

	var parsed tableFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse pricing table: %w", err)
	}
	if len(parsed.Models) == 0 {
		return nil, fmt.Errorf("pricing table has no models")
	}

	// Keys in the file are expected pre-normalized; normalize again so a
	// hand-edited "Ford F-150" entry still matches.
	table := make(map[string]float64, len(parsed.Models))
	for key, sqft := range parsed.Models {
		if sqft <= 0 {
			return nil, fmt.Errorf("pricing table entry %q has non-positive sqft", key)
		}
		table[NormalizeKey(key, "")] = sqft
	}

	return table, nil
}
