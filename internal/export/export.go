// Package export renders baselines and other engine views as JSON, YAML or
// TOML documents.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"tracecore/pkg/domain"
)

// Format names an output encoding.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ParseFormat accepts json, yaml/yml or toml in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// Baseline writes b, including its frozen requirement snapshots.
func Baseline(w io.Writer, b domain.Baseline, format Format) error {
	return Write(w, b, format)
}

// Write encodes v. Field names always follow the json tags so every format
// shares one vocabulary. TOML needs a table at the root, so non-object
// values are nested under "items".
func Write(w io.Writer, v any, format Format) error {
	if format == FormatJSON || format == "" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	generic, err := toGeneric(v)
	if err != nil {
		return err
	}
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatTOML:
		root, ok := generic.(map[string]any)
		if !ok {
			root = map[string]any{"items": generic}
		}
		if err := toml.NewEncoder(w).Encode(root); err != nil {
			return fmt.Errorf("encode toml: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// toGeneric round-trips v through JSON and drops nulls, which TOML cannot
// represent.
func toGeneric(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return pruneNulls(generic), nil
}

func pruneNulls(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if val == nil {
				delete(t, k)
				continue
			}
			t[k] = pruneNulls(val)
		}
		return t
	case []any:
		out := t[:0]
		for _, val := range t {
			if val != nil {
				out = append(out, pruneNulls(val))
			}
		}
		return out
	default:
		return v
	}
}
