package flatten

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dolphinsdn29000/UA-and-FedReg-Compiler/internal/walker"
)

// List families are stored as JSON strings so each row stays one row no
// matter how many citations or contacts an entry carries. Go maps would
// scramble key order, so entries are encoded from ordered field slices and
// decoded with a token walk: the round trip preserves list order, key order
// within each entry, and nesting exactly.

// Entry is one sub-record of a list family. A plain entry (e.g. one CFR
// citation) has Text set and no Fields; a structured entry (a contact, a
// legal deadline) has Fields in document order.
type Entry struct {
	Text   string
	Fields []Field
}

// Field is one key of a structured entry. Exactly one of Text or Child is
// meaningful: scalar fields carry Text, nested groups carry Child.
type Field struct {
	Key   string
	Text  string
	Child []Field
}

// IsObject reports whether the entry is a structured sub-record.
func (e Entry) IsObject() bool { return e.Fields != nil }

func entryFromNode(n *walker.Node) Entry {
	if len(n.Children) == 0 {
		return Entry{Text: strings.TrimSpace(n.Text)}
	}
	return Entry{Fields: fieldsFromNode(n)}
}

func fieldsFromNode(n *walker.Node) []Field {
	fields := make([]Field, 0, len(n.Children))
	for _, ch := range n.Children {
		f := Field{Key: ch.Name}
		if len(ch.Children) == 0 {
			f.Text = strings.TrimSpace(ch.Text)
		} else {
			f.Child = fieldsFromNode(ch)
		}
		fields = append(fields, f)
	}
	return fields
}

// EncodeEntries renders entries as a compact JSON array. An empty list
// encodes as "[]", matching the blank-marker convention for list columns.
func EncodeEntries(entries []Entry) string {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, e := range entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		if e.IsObject() {
			writeFields(&buf, e.Fields)
		} else {
			writeJSONString(&buf, e.Text)
		}
	}
	buf.WriteByte(']')
	return buf.String()
}

func writeFields(buf *bytes.Buffer, fields []Field) {
	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeJSONString(buf, f.Key)
		buf.WriteByte(':')
		if f.Child != nil {
			writeFields(buf, f.Child)
		} else {
			writeJSONString(buf, f.Text)
		}
	}
	buf.WriteByte('}')
}

func writeJSONString(buf *bytes.Buffer, s string) {
	b, _ := json.Marshal(s)
	buf.Write(b)
}

// DecodeEntries parses a list column back into entries, preserving list and
// key order. It is the exact inverse of EncodeEntries.
func DecodeEntries(s string) ([]Entry, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	dec := json.NewDecoder(strings.NewReader(s))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("list column is not valid JSON: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, fmt.Errorf("list column must be a JSON array, got %v", tok)
	}

	entries := []Entry{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("malformed list entry: %w", err)
		}
		switch t := tok.(type) {
		case string:
			entries = append(entries, Entry{Text: t})
		case json.Delim:
			if t != '{' {
				return nil, fmt.Errorf("unexpected delimiter %v in list column", t)
			}
			fields, err := decodeFields(dec)
			if err != nil {
				return nil, err
			}
			entries = append(entries, Entry{Fields: fields})
		default:
			return nil, fmt.Errorf("unexpected token %v in list column", tok)
		}
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("malformed list column: %w", err)
	}
	return entries, nil
}

// decodeFields consumes object members up to and including the closing '}'.
func decodeFields(dec *json.Decoder) ([]Field, error) {
	fields := []Field{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("malformed list entry key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("list entry key must be a string, got %v", keyTok)
		}
		valTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("malformed list entry value: %w", err)
		}
		switch v := valTok.(type) {
		case string:
			fields = append(fields, Field{Key: key, Text: v})
		case json.Delim:
			if v != '{' {
				return nil, fmt.Errorf("unexpected delimiter %v for key %q", v, key)
			}
			child, err := decodeFields(dec)
			if err != nil {
				return nil, err
			}
			fields = append(fields, Field{Key: key, Child: child})
		default:
			return nil, fmt.Errorf("unexpected value %v for key %q", valTok, key)
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("unterminated list entry: %w", err)
	}
	return fields, nil
}
