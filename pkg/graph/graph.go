package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// =============================================================================
// Layout Serialization API
// =============================================================================

// MarshalLayout serializes a Layout to pretty-printed JSON bytes.
func MarshalLayout(l Layout) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteLayout(l, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteLayout writes a Layout as pretty-printed JSON to w.
func WriteLayout(l Layout, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(l); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// UnmarshalLayout deserializes JSON bytes into a Layout and checks that it
// is complete: a supported version, a root, and a root node.
func UnmarshalLayout(data []byte) (Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("unmarshal layout: %w", err)
	}
	if l.Version == 0 || l.Version > Version {
		return Layout{}, fmt.Errorf("unsupported layout version %d", l.Version)
	}
	if l.Root == "" {
		return Layout{}, fmt.Errorf("layout has no root")
	}
	if _, ok := l.Node(l.Root); !ok {
		return Layout{}, fmt.Errorf("layout root %q missing from nodes", l.Root)
	}
	return l, nil
}

// WriteLayoutFile writes a Layout to a JSON file.
func WriteLayoutFile(l Layout, path string) error {
	data, err := MarshalLayout(l)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadLayoutFile reads a Layout from a JSON file.
func ReadLayoutFile(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read %s: %w", path, err)
	}
	return UnmarshalLayout(data)
}

// OutputPath returns the file a layout of the definition at input is written
// to: the input path with its extension replaced by ".layout.json".
func OutputPath(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".layout.json"
}
