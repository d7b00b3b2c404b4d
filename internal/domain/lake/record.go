// Package lake holds the data lake's domain values: the opaque player record
// as the source API returns it, the line-delimited encoding written to the
// bucket, and the fixed catalog table definition.
package lake

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Record is one player record exactly as the source API returned it. The
// workflow imposes no schema on it; key order and number text are preserved.
type Record struct {
	raw json.RawMessage
}

// NewRecord wraps a JSON object.
func NewRecord(raw []byte) (Record, error) {
	var r Record
	if err := r.UnmarshalJSON(raw); err != nil {
		return Record{}, err
	}
	return r, nil
}

// MustRecord is NewRecord for literals; it panics on invalid input.
func MustRecord(raw string) Record {
	r, err := NewRecord([]byte(raw))
	if err != nil {
		panic(err)
	}
	return r
}

// UnmarshalJSON implements json.Unmarshaler. Only objects are accepted.
func (r *Record) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("%w: want object, got %.20q", ErrNotObject, trimmed)
	}
	if !json.Valid(trimmed) {
		return fmt.Errorf("%w: invalid json", ErrNotObject)
	}
	r.raw = append(json.RawMessage(nil), trimmed...)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (r Record) MarshalJSON() ([]byte, error) {
	if r.raw == nil {
		return []byte("{}"), nil
	}
	return r.raw, nil
}

// Raw returns the record's JSON text.
func (r Record) Raw() json.RawMessage { return r.raw }

// Fields decodes the record into a map. Numbers stay json.Number.
func (r Record) Fields() (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(r.raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

// DecodeRecords reads a JSON array of objects and returns them in order.
// A null document yields no records.
func DecodeRecords(rd io.Reader) ([]Record, error) {
	dec := json.NewDecoder(rd)

	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty body", ErrNotArray)
		}
		return nil, fmt.Errorf("json: read first token: %w", err)
	}
	if tok == nil {
		return nil, nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, fmt.Errorf("%w: root is %v", ErrNotArray, tok)
	}

	var out []Record
	for dec.More() {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("json: element %d: %w", len(out), err)
		}
		out = append(out, rec)
	}
	if end, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("json: read array end: %w", err)
	} else if end != json.Delim(']') {
		return nil, fmt.Errorf("json: expected array end ']', got %v", end)
	}
	return out, nil
}
