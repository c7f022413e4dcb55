package ingestion

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Raw file names under the raw data directory.
const (
	TransfersFile = "cryptopunks_transfers.json"
	PriceFile     = "eth_price_data.json"
)

// SaveJSON writes v as indented JSON to dir/name, creating dir and
// overwriting any existing file. Returns the written path.
func SaveJSON(dir, name string, v interface{}) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create dir %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", name, err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// LoadJSON decodes the JSON file at path into v.
func LoadJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
