package chart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/statelayout/pkg/digraph"
	"github.com/matzehuels/statelayout/pkg/errors"
)

// Format is a definition encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// Formats lists the supported encodings.
var Formats = []Format{FormatJSON, FormatYAML, FormatTOML}

// ParseFormat parses a format name ("yml" is accepted for YAML).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unsupported definition format %q (want json, yaml or toml)", s)
}

// DetectFormat returns the format implied by path's extension.
func DetectFormat(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Decode reads one definition from r. Unknown fields are rejected for JSON and
// YAML; TOML reports them as an error too.
func Decode(r io.Reader, format Format) (*Definition, error) {
	var def Definition
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&def); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode json")
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode yaml")
		}
	case FormatTOML:
		md, err := toml.NewDecoder(r).Decode(&def)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode toml")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "decode toml: unknown field %q", undecoded[0].String())
		}
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported definition format %q", format)
	}
	return &def, nil
}

// Parse decodes and validates a definition held in memory.
func Parse(data []byte, format Format) (*Definition, error) {
	def, err := Decode(bytes.NewReader(data), format)
	if err != nil {
		return nil, err
	}
	if err := Validate(def); err != nil {
		return nil, err
	}
	return def, nil
}

// Load reads, validates and builds the definition stored at path. The graph's
// metadata records the source path under "source".
func Load(path string) (*Definition, *digraph.Graph, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, nil, err
	}
	format, err := DetectFormat(path)
	if err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "definition %s not found", path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	def, err := Parse(data, format)
	if err != nil {
		return nil, nil, err
	}
	g, err := Build(def)
	if err != nil {
		return nil, nil, err
	}
	g.Meta()["source"] = path
	return def, g, nil
}
