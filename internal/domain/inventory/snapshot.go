package inventory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

const snapshotIndent = "    "

// Snapshot is the ordered content of an inventory. It encodes as a JSON
// object whose key order is the slice order.
type Snapshot []Item

// MarshalJSON writes the compact ordered object.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, it := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalNoEscape(it.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(it.Quantity))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object of name → integer pairs, keeping document
// order. A repeated key keeps its first position and takes the last value.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSnapshotMalformed, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("%w: top level is not an object", ErrSnapshotMalformed)
	}

	out := Snapshot{}
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSnapshotMalformed, err)
		}
		name, _ := tok.(string)
		if err := ValidateItem(name); err != nil {
			return fmt.Errorf("%w: %v", ErrSnapshotMalformed, err)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("%w: value of %q: %v", ErrSnapshotMalformed, name, err)
		}
		qty, err := strconv.ParseInt(string(bytes.TrimSpace(raw)), 10, 0)
		if err != nil {
			return fmt.Errorf("%w: value of %q is not an integer", ErrSnapshotMalformed, name)
		}

		if i, ok := index[name]; ok {
			out[i].Quantity = int(qty)
			continue
		}
		index[name] = len(out)
		out = append(out, Item{Name: name, Quantity: int(qty)})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("%w: %v", ErrSnapshotMalformed, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("%w: trailing data after object", ErrSnapshotMalformed)
	}

	*s = out
	return nil
}

// Encode renders the persisted document: 4-space indentation, no trailing newline.
// json.MarshalIndent is avoided because it re-escapes HTML in marshaler output.
func (s Snapshot) Encode() ([]byte, error) {
	compact, err := s.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", snapshotIndent); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeSnapshot parses a persisted document.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := s.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return s, nil
}

func marshalNoEscape(v string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
