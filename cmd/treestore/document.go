package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/treestore/internal/errors"
)

// format is a document encoding.
type format int

const (
	formatJSON format = iota
	formatYAML
)

// formatOf picks the encoding from the file extension.
func formatOf(path string) format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML
	}
	return formatJSON
}

// loadDocument reads a JSON or YAML document.
func loadDocument(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("T021").WithDetail("Failed to read " + path).Wrap(err)
	}
	v, err := decodeDocument(data, formatOf(path))
	if err != nil {
		return nil, errors.New("T021").WithDetail("Failed to decode " + path).Wrap(err)
	}
	return v, nil
}

func decodeDocument(data []byte, f format) (any, error) {
	var v any
	if f == formatYAML {
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return normalize(v), nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// encodeDocument renders v in the given format.
func encodeDocument(v any, f format) ([]byte, error) {
	if f == formatYAML {
		return yaml.Marshal(v)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// writeDocument writes v back to path in the file's own format.
func writeDocument(path string, v any) error {
	data, err := encodeDocument(v, formatOf(path))
	if err != nil {
		return errors.New("T021").WithDetail("Failed to encode " + path).Wrap(err)
	}
	return os.WriteFile(path, data, 0644)
}

// normalize converts YAML's map[any]any nodes and integer scalars to the
// shapes JSON decoding produces, so both formats behave the same in a store.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = normalize(e)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[toString(k)] = normalize(e)
		}
		return out
	case []any:
		for i, e := range t {
			t[i] = normalize(e)
		}
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	}
	return v
}

func toString(k any) string {
	if s, ok := k.(string); ok {
		return s
	}
	data, _ := json.Marshal(k)
	return string(data)
}
