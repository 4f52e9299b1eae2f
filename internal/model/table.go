// Package model defines the core data structures used throughout the ingestion adapter.
package model

import (
	"reflect"
	"slices"
)

// Row maps a column name to its cell value.
// Values are JSON-compatible: nil, string, bool, int64, float64, or nested
// values decoded from an API response.
type Row map[string]any

// Table is the uniform tabular result returned by every ingestion strategy.
// Every row carries every column in Columns; absent cells are nil.
type Table struct {
	// Columns lists column names in first-seen order.
	Columns []string

	// Rows holds the data in ingestion order.
	Rows []Row
}

// NewTable creates an empty table with the given columns.
func NewTable(columns ...string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Columns: cols}
}

// Empty returns a table with no rows and no columns.
// It is the terminal value for "nothing was ingested".
func Empty() *Table {
	return &Table{}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// IsEmpty reports whether the table holds no rows.
func (t *Table) IsEmpty() bool {
	return t.Len() == 0
}

// HasColumn reports whether name is one of the table's columns.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Append adds a row, widening the column set when the row introduces new keys.
// Existing rows are back-filled with nil for any new column.
func (t *Table) Append(row Row) {
	normalized := make(Row, len(row))
	for k, v := range row {
		normalized[k] = v
	}

	for _, k := range sortedNewKeys(t, row) {
		t.Columns = append(t.Columns, k)
		for _, existing := range t.Rows {
			existing[k] = nil
		}
	}

	for _, c := range t.Columns {
		if _, ok := normalized[c]; !ok {
			normalized[c] = nil
		}
	}
	t.Rows = append(t.Rows, normalized)
}

// Column returns the values of one column in row order.
func (t *Table) Column(name string) []any {
	if !t.HasColumn(name) {
		return nil
	}
	values := make([]any, len(t.Rows))
	for i, r := range t.Rows {
		values[i] = r[name]
	}
	return values
}

// Equal reports whether two tables have the same columns and row contents.
func (t *Table) Equal(other *Table) bool {
	if t.Len() != other.Len() {
		return false
	}
	if t == nil || other == nil {
		return t.Len() == 0 && other.Len() == 0
	}
	if len(t.Columns) != len(other.Columns) {
		return false
	}
	for i := range t.Columns {
		if t.Columns[i] != other.Columns[i] {
			return false
		}
	}
	for i := range t.Rows {
		if !reflect.DeepEqual(t.Rows[i], other.Rows[i]) {
			return false
		}
	}
	return true
}

// Concat joins tables in order into a new table.
// Columns are the union of all inputs in first-seen order; rows keep their
// input order and receive nil for columns their source table lacked.
func Concat(tables ...*Table) *Table {
	out := Empty()

	seen := make(map[string]struct{})
	total := 0
	for _, t := range tables {
		if t == nil {
			continue
		}
		total += len(t.Rows)
		for _, c := range t.Columns {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out.Columns = append(out.Columns, c)
		}
	}

	out.Rows = make([]Row, 0, total)
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, r := range t.Rows {
			row := make(Row, len(out.Columns))
			for _, c := range out.Columns {
				row[c] = r[c]
			}
			out.Rows = append(out.Rows, row)
		}
	}

	return out
}

// sortedNewKeys returns the keys of row not yet in t.Columns.
// Go map iteration is random, so new keys are ordered lexically to keep
// column order deterministic across runs.
func sortedNewKeys(t *Table, row Row) []string {
	var keys []string
	for k := range row {
		if !t.HasColumn(k) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}
