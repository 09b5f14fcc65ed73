package household

import (
	"encoding/json"
	"fmt"

	"github.com/warp/household-ledger/generic"
)

// =============================================================================
// DOCUMENT CODEC - The persisted envelope
// =============================================================================
//
//	{"version": 3, "modifiedAt": "2026-01-31T10:00:00.000Z", "state": {...}}
//
// Versions 1..CurrentVersion are accepted; older shapes are upgraded by
// Normalize. Anything else (unparseable JSON, a missing state, an unknown
// version) is ErrNoUsableRecord: a document is used whole or not at all.

type document struct {
	Version    int             `json:"version"`
	ModifiedAt string          `json:"modifiedAt"`
	State      json.RawMessage `json:"state"`
}

// EncodeDocument serializes st inside the versioned envelope.
func EncodeDocument(st *State) ([]byte, error) {
	if st == nil {
		st = NewState()
	}
	body, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return json.Marshal(document{
		Version:    CurrentVersion,
		ModifiedAt: st.ModifiedAt,
		State:      body,
	})
}

// DecodeDocument parses and normalizes a stored envelope.
func DecodeDocument(data []byte) (*State, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", generic.ErrNoUsableRecord, err)
	}
	if doc.Version < 1 || doc.Version > CurrentVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", generic.ErrNoUsableRecord, doc.Version)
	}
	if len(doc.State) == 0 || string(doc.State) == "null" {
		return nil, fmt.Errorf("%w: missing state", generic.ErrNoUsableRecord)
	}

	var st State
	if err := json.Unmarshal(doc.State, &st); err != nil {
		return nil, fmt.Errorf("%w: %v", generic.ErrNoUsableRecord, err)
	}
	if st.ModifiedAt == "" {
		st.ModifiedAt = doc.ModifiedAt
	}
	return Normalize(&st), nil
}
