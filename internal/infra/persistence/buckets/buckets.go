// Package buckets splits a snapshot into named payloads for drivers that
// store one row or key per collection.
package buckets

import (
	"encoding/json"
	"fmt"

	"tracecore/internal/codec"
	"tracecore/pkg/domain"
)

// Bucket names. The order of Names is the write order.
const (
	Requirements = "requirements"
	Baselines    = "baselines"
	Reviews      = "reviews"
	Documents    = "documents"
	CustomFields = "customFields"
	Metadata     = "metadata"
)

// Names lists every bucket a snapshot is split into.
var Names = []string{Requirements, Baselines, Reviews, Documents, CustomFields, Metadata}

// Codec encodes bucket payloads.
type Codec struct {
	Name      string
	Marshal   func(any) ([]byte, error)
	Unmarshal func([]byte, any) error
}

var (
	// JSON is used by the SQL drivers.
	JSON = Codec{Name: "json", Marshal: json.Marshal, Unmarshal: json.Unmarshal}
	// CBOR is the deterministic binary codec used by the key-value driver.
	CBOR = Codec{Name: "cbor", Marshal: codec.Marshal, Unmarshal: codec.Unmarshal}
)

func targets(s *domain.Snapshot) map[string]any {
	return map[string]any{
		Requirements: &s.Requirements,
		Baselines:    &s.Baselines,
		Reviews:      &s.Reviews,
		Documents:    &s.Documents,
		CustomFields: &s.CustomFields,
		Metadata:     &s.Metadata,
	}
}

// Encode renders every bucket of s with c.
func Encode(s domain.Snapshot, c Codec) (map[string][]byte, error) {
	fields := targets(&s)
	out := make(map[string][]byte, len(Names))
	for _, name := range Names {
		data, err := c.Marshal(fields[name])
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		out[name] = data
	}
	return out, nil
}

// Decode rebuilds a snapshot from bucket payloads. Unknown buckets and empty
// payloads are ignored so older stores still load.
func Decode(payloads map[string][]byte, c Codec) (domain.Snapshot, error) {
	var s domain.Snapshot
	fields := targets(&s)
	for name, data := range payloads {
		target, ok := fields[name]
		if !ok || len(data) == 0 {
			continue
		}
		if err := c.Unmarshal(data, target); err != nil {
			return domain.Snapshot{}, fmt.Errorf("decode %s: %w", name, err)
		}
	}
	return s, nil
}
