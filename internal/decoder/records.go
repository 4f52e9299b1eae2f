package decoder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/GabrielNunesIT/flowbase/internal/model"
)

// DecodeRecords reads a JSON document and converts it into a table.
//
// Supported shapes:
//   - an array of objects: one row per object, columns in first-seen key order
//   - an array of scalars: a single column named "0"
//   - an object whose values are equal-length arrays: one column per key
//   - any other object: a single row
//
// Numbers become int64 when integral and float64 otherwise.
func DecodeRecords(r io.Reader) (*model.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading json: %w", err)
	}

	raw := bytes.TrimSpace(data)
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty body: %w", ErrInvalidShape)
	}

	switch raw[0] {
	case '[':
		return decodeArray(raw)
	case '{':
		return decodeObject(raw)
	default:
		return nil, fmt.Errorf("top-level %s: %w", describeJSON(raw), ErrInvalidShape)
	}
}

// decodeArray handles a top-level JSON array.
func decodeArray(raw []byte) (*model.Table, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("parsing json array: %w", err)
	}

	tbl := model.Empty()
	if len(items) == 0 {
		return tbl, nil
	}

	first := bytes.TrimSpace(items[0])
	if len(first) > 0 && first[0] == '{' {
		for i, item := range items {
			keys, row, err := decodeOrderedObject(item)
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
			addColumns(tbl, keys)
			tbl.Append(row)
		}
		return tbl, nil
	}

	// Scalars land in a single positional column
	tbl.Columns = []string{"0"}
	for i, item := range items {
		v, err := decodeValue(item)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		tbl.Rows = append(tbl.Rows, model.Row{"0": v})
	}
	return tbl, nil
}

// decodeObject handles a top-level JSON object.
func decodeObject(raw []byte) (*model.Table, error) {
	keys, row, err := decodeOrderedObject(raw)
	if err != nil {
		return nil, err
	}

	tbl := model.NewTable(keys...)
	if n, ok := columnar(keys, row); ok {
		tbl.Rows = make([]model.Row, 0, n)
		for i := 0; i < n; i++ {
			r := make(model.Row, len(keys))
			for _, k := range keys {
				r[k] = row[k].([]any)[i]
			}
			tbl.Rows = append(tbl.Rows, r)
		}
		return tbl, nil
	}

	tbl.Append(row)
	return tbl, nil
}

// columnar reports whether every value is an array of the same length.
func columnar(keys []string, row model.Row) (int, bool) {
	if len(keys) == 0 {
		return 0, false
	}
	n := -1
	for _, k := range keys {
		arr, ok := row[k].([]any)
		if !ok {
			return 0, false
		}
		if n >= 0 && len(arr) != n {
			return 0, false
		}
		n = len(arr)
	}
	return n, true
}

// addColumns appends unseen keys to the table in the order given.
func addColumns(tbl *model.Table, keys []string) {
	for _, k := range keys {
		if tbl.HasColumn(k) {
			continue
		}
		tbl.Columns = append(tbl.Columns, k)
		for _, r := range tbl.Rows {
			r[k] = nil
		}
	}
}

// decodeOrderedObject decodes a JSON object while keeping its key order.
func decodeOrderedObject(raw []byte) ([]string, model.Row, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("parsing json object: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("expected object, got %v: %w", tok, ErrInvalidShape)
	}

	var keys []string
	row := make(model.Row)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("parsing json object key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected object key %v: %w", tok, ErrInvalidShape)
		}

		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, nil, fmt.Errorf("parsing value for %q: %w", key, err)
		}

		if _, dup := row[key]; !dup {
			keys = append(keys, key)
		}
		row[key] = normalizeNumbers(value)
	}

	if _, err := dec.Token(); err != nil {
		return nil, nil, fmt.Errorf("parsing json object end: %w", err)
	}
	return keys, row, nil
}

// decodeValue decodes a single JSON value with number normalization.
func decodeValue(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("parsing json value: %w", err)
	}
	return normalizeNumbers(v), nil
}

// normalizeNumbers replaces json.Number with int64 or float64, recursively.
func normalizeNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := strconv.ParseInt(val.String(), 10, 64); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case []any:
		for i := range val {
			val[i] = normalizeNumbers(val[i])
		}
		return val
	case map[string]any:
		for k := range val {
			val[k] = normalizeNumbers(val[k])
		}
		return val
	default:
		return v
	}
}

// describeJSON names the kind of a JSON value for error messages.
func describeJSON(raw []byte) string {
	switch {
	case bytes.Equal(raw, []byte("null")):
		return "null"
	case raw[0] == '"':
		return "string"
	case bytes.Equal(raw, []byte("true")), bytes.Equal(raw, []byte("false")):
		return "boolean"
	default:
		return "scalar"
	}
}
