package generator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteDataset serializes the dataset into users.json under the provided
// directory.
func WriteDataset(dataset Dataset, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	return writeJSON(filepath.Join(dir, "users.json"), dataset.Users)
}

// ReadDataset loads a previously written users.json so a run can be
// replayed without regenerating.
func ReadDataset(dir string) (Dataset, error) {
	path := filepath.Join(dir, "users.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("read %s: %w", path, err)
	}
	var dataset Dataset
	if err := json.Unmarshal(raw, &dataset.Users); err != nil {
		return Dataset{}, fmt.Errorf("decode json from %s: %w", path, err)
	}
	return dataset, nil
}

func writeJSON(path string, data any) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encode json for %s: %w", path, err)
	}
	return nil
}
