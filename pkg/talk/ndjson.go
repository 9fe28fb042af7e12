package talk

import (
	"encoding/json"
	"fmt"
	"os"
)

// appendNDJSON appends v as one JSON line to path.
func appendNDJSON(path string, v interface{}) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open ndjson file %q: %w", path, err)
	}
	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		f.Close()
		return fmt.Errorf("failed to write ndjson entry: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close ndjson file: %w", err)
	}
	return nil
}
