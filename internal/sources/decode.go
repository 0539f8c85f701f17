package sources

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"aulas/internal/core"
)

// DecodeRecords reads one JSON array from r and decodes every element on its
// own. Elements that are not objects become empty records so a single bad
// entry never fails the collection. Numbers are kept as json.Number.
// A null document yields an empty, non-nil slice.
func DecodeRecords(r io.Reader) ([]core.RawRecord, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var elems []json.RawMessage
	if err := dec.Decode(&elems); err != nil {
		return nil, fmt.Errorf("decode array: %w", err)
	}

	out := make([]core.RawRecord, 0, len(elems))
	for _, raw := range elems {
		out = append(out, decodeRecord(raw))
	}
	return out, nil
}

func decodeRecord(raw json.RawMessage) core.RawRecord {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var rec core.RawRecord
	if err := dec.Decode(&rec); err != nil || rec == nil {
		return core.RawRecord{}
	}
	return rec
}
