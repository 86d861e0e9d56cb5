package export

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"tracecore/pkg/domain"
)

func lockedBaseline() domain.Baseline {
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return domain.Baseline{
		ID:       "b1",
		Name:     "Release 1.0",
		Status:   domain.BaselineLocked,
		LockedAt: &at,
		LockedBy: "alice",
		Snapshots: []domain.BaselineSnapshot{{
			RequirementID: "r1",
			Version:       2,
			Record:        domain.Requirement{ID: "r1", Key: "REQ-0001", Title: "Login", Tags: []string{"auth"}},
		}},
		CreatedAt: at,
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatJSON, "JSON": FormatJSON, "yml": FormatYAML, "yaml": FormatYAML, " toml ": FormatTOML} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("xml")
	require.Error(t, err)
}

func TestBaselineEachFormatSharesFieldNames(t *testing.T) {
	b := lockedBaseline()
	decoders := map[Format]func([]byte, any) error{
		FormatJSON: json.Unmarshal,
		FormatYAML: yaml.Unmarshal,
		FormatTOML: toml.Unmarshal,
	}
	for format, decode := range decoders {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Baseline(&buf, b, format))

			var doc map[string]any
			require.NoError(t, decode(buf.Bytes(), &doc))
			assert.Equal(t, "Release 1.0", doc["name"])
			assert.Equal(t, "locked", doc["status"])
			assert.Equal(t, "alice", doc["lockedBy"])
			snaps, ok := doc["snapshots"].([]any)
			require.True(t, ok, "snapshots: %T", doc["snapshots"])
			require.Len(t, snaps, 1)
			snap := snaps[0].(map[string]any)
			req := snap["record"].(map[string]any)
			assert.Equal(t, "REQ-0001", req["key"])
		})
	}
}

func TestWriteTOMLWrapsNonTables(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, []string{"a", "b"}, FormatTOML))
	var doc map[string]any
	require.NoError(t, toml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, []any{"a", "b"}, doc["items"])
}

func TestPruneNulls(t *testing.T) {
	got := pruneNulls(map[string]any{"a": nil, "b": []any{nil, 1.0, map[string]any{"c": nil}}})
	assert.Equal(t, map[string]any{"b": []any{1.0, map[string]any{}}}, got)
}

func TestWriteUnsupported(t *testing.T) {
	require.Error(t, Write(&bytes.Buffer{}, 1, Format("xml")))
}
