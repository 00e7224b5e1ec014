// Package climatology fetches per-station climatological normals and extreme
// value records. Both endpoints return a value table plus a companion
// metadata document describing its fields; the metadata drives column
// renaming so callers see human-readable variable names.
package climatology

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Table is a flat record table with a stable column order. The OpenData
// payloads have no schema; columns appear in first-seen order and cells are
// kept as strings the way the API sends them.
type Table struct {
	Columns []string
	Rows    []map[string]string
}

// NewTable returns an empty table. Adapters return this, never nil, when a
// fetch produces no usable payload.
func NewTable() *Table {
	return &Table{Columns: []string{}, Rows: []map[string]string{}}
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool {
	return len(t.Rows) == 0
}

// DecodeTable parses a JSON array of flat objects, preserving the order in
// which columns first appear. Nested values are rejected.
func DecodeTable(data []byte) (*Table, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := expectDelim(dec, '['); err != nil {
		return nil, err
	}

	table := NewTable()
	seen := make(map[string]bool)

	for dec.More() {
		if err := expectDelim(dec, '{'); err != nil {
			return nil, err
		}

		row := make(map[string]string)
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("decoding table: %w", err)
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("decoding table: unexpected key token %v", keyTok)
			}

			valTok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("decoding table: %w", err)
			}

			switch v := valTok.(type) {
			case string:
				row[key] = v
			case json.Number:
				row[key] = v.String()
			case bool:
				row[key] = fmt.Sprintf("%t", v)
			case nil:
				row[key] = ""
			default:
				return nil, fmt.Errorf("decoding table: nested value under %q", key)
			}

			if !seen[key] {
				seen[key] = true
				table.Columns = append(table.Columns, key)
			}
		}
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("decoding table: %w", err)
		}

		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

func expectDelim(dec *json.Decoder, want rune) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decoding table: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || rune(d) != want {
		return fmt.Errorf("decoding table: expected %q, got %v", want, tok)
	}
	return nil
}

// DropIncompleteColumns removes every column that has at least one empty
// cell, so only fully populated variables remain.
func (t *Table) DropIncompleteColumns() {
	kept := t.Columns[:0]
	for _, col := range t.Columns {
		complete := true
		for _, row := range t.Rows {
			if row[col] == "" {
				complete = false
				break
			}
		}
		if complete {
			kept = append(kept, col)
		}
	}
	t.Columns = kept
}

// Rename maps column names through the given field-description table and
// drops duplicate result names, keeping the first occurrence. Columns absent
// from the mapping keep their original name.
func (t *Table) Rename(fields map[string]string) {
	seen := make(map[string]bool)
	kept := t.Columns[:0]

	for _, col := range t.Columns {
		name := col
		if desc, ok := fields[col]; ok && desc != "" {
			name = desc
		}
		if seen[name] {
			continue
		}
		seen[name] = true

		if name != col {
			for _, row := range t.Rows {
				if v, ok := row[col]; ok {
					row[name] = v
					delete(row, col)
				}
			}
		}
		kept = append(kept, name)
	}

	t.Columns = kept
}

// MarshalJSON encodes the table as a columns list plus row value arrays, so
// the column order survives serialization.
func (t *Table) MarshalJSON() ([]byte, error) {
	rows := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		values := make([]string, len(t.Columns))
		for i, col := range t.Columns {
			values[i] = row[col]
		}
		rows = append(rows, values)
	}

	return json.Marshal(struct {
		Columns []string   `json:"columns"`
		Rows    [][]string `json:"rows"`
	}{Columns: t.Columns, Rows: rows})
}

// fieldDescriptor is one entry of the metadata campos list.
type fieldDescriptor struct {
	ID          string `json:"id"`
	Description string `json:"descripcion"`
}

type metadataDocument struct {
	Campos []fieldDescriptor `json:"campos"`
}

// ParseFieldMetadata extracts the field code to description mapping from a
// metadatos document.
func ParseFieldMetadata(data []byte) (map[string]string, error) {
	var doc metadataDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing field metadata: %w", err)
	}

	fields := make(map[string]string, len(doc.Campos))
	for _, f := range doc.Campos {
		if _, ok := fields[f.ID]; !ok {
			fields[f.ID] = f.Description
		}
	}
	return fields, nil
}
