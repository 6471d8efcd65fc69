package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/Tiliavir/trivial-focus-tracker/internal/fsutil"
)

// document is the on-disk envelope. Files are written with a single root
// key; readers accept either "items" or "events".
type document struct {
	Items  []json.RawMessage `json:"items"`
	Events []json.RawMessage `json:"events"`
}

func writeFileAtomic(path string, data []byte) error {
	if err := fsutil.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("storage error saving %s: %w", path, err)
	}
	return nil
}

func encode[T any](rootKey string, items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	data, err := json.MarshalIndent(map[string][]T{rootKey: items}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("storage error marshalling JSON: %w", err)
	}
	return data, nil
}

// decode parses a collection file. Elements that fail to decode are
// skipped; a malformed envelope is an error.
func decode[T any](data []byte) ([]T, int, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, 0, err
	}
	raw := doc.Items
	if len(raw) == 0 {
		raw = doc.Events
	}
	items := make([]T, 0, len(raw))
	skipped := 0
	for _, r := range raw {
		var item T
		if err := json.Unmarshal(r, &item); err != nil {
			skipped++
			continue
		}
		items = append(items, item)
	}
	return items, skipped, nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("storage error reading %s: %w", path, err)
	}
	return data, nil
}
