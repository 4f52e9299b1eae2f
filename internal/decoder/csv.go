// Package decoder turns raw source payloads into tables.
// It covers the two formats the ingestion strategies consume: delimited text
// (CSV with a header row) and JSON record sets returned by HTTP APIs.
package decoder

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/GabrielNunesIT/flowbase/internal/model"
)

// Parse errors returned by the decoders.
var (
	ErrNoHeader     = errors.New("no columns to parse: input has no header row")
	ErrRaggedRow    = errors.New("row has more fields than header")
	ErrInvalidText  = errors.New("input is not valid UTF-8 text")
	ErrInvalidShape = errors.New("unsupported JSON shape for tabular data")
)

// utf8BOM is stripped from the start of CSV input.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// naValues are the cell values read as missing.
var naValues = map[string]struct{}{
	"#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {},
	"N/A": {}, "NA": {}, "NULL": {}, "NaN": {}, "None": {},
	"n/a": {}, "nan": {}, "null": {},
}

// ParseCSV reads comma-delimited text with a header row into a table.
// Column types are inferred per column: int64, then float64, then bool,
// falling back to string. Empty cells and the usual NA markers (NaN, NA,
// N/A, null, None and similar) become nil.
func ParseCSV(r io.Reader) (*model.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	return ParseCSVBytes(data)
}

// ParseCSVText decodes a payload as UTF-8 text and parses it as CSV.
// Object-storage payloads go through here; bytes that are not valid UTF-8
// fail with ErrInvalidText before any parsing happens.
func ParseCSVText(data []byte) (*model.Table, error) {
	if !utf8.Valid(data) {
		return nil, ErrInvalidText
	}
	return ParseCSVBytes(data)
}

// ParseCSVBytes is ParseCSV over an in-memory payload.
func ParseCSVBytes(data []byte) (*model.Table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1 // Row width is checked against the header below

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("parsing csv header: %w", err)
	}

	columns := normalizeHeader(header)

	var records [][]string
	line := 1
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing csv: %w", err)
		}
		line++

		if len(rec) > len(columns) {
			return nil, fmt.Errorf("line %d: expected %d fields, saw %d: %w",
				line, len(columns), len(rec), ErrRaggedRow)
		}
		records = append(records, rec)
	}

	kinds := make([]cellKind, len(columns))
	for i := range columns {
		kinds[i] = inferColumn(records, i)
	}

	tbl := model.NewTable(columns...)
	tbl.Rows = make([]model.Row, 0, len(records))
	for _, rec := range records {
		row := make(model.Row, len(columns))
		for i, col := range columns {
			if i >= len(rec) {
				row[col] = nil // Short rows are padded
				continue
			}
			row[col] = convertCell(rec[i], kinds[i])
		}
		tbl.Rows = append(tbl.Rows, row)
	}

	return tbl, nil
}

// normalizeHeader names blank headers and disambiguates duplicates.
func normalizeHeader(header []string) []string {
	columns := make([]string, len(header))
	counts := make(map[string]int, len(header))
	taken := make(map[string]struct{}, len(header))

	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		taken[name] = struct{}{}
		columns[i] = name
	}

	seen := make(map[string]struct{}, len(header))
	for i, name := range columns {
		if _, dup := seen[name]; !dup {
			seen[name] = struct{}{}
			continue
		}
		for {
			counts[name]++
			candidate := name + "." + strconv.Itoa(counts[name])
			if _, clash := taken[candidate]; clash {
				continue
			}
			taken[candidate] = struct{}{}
			seen[candidate] = struct{}{}
			columns[i] = candidate
			break
		}
	}
	return columns
}

type cellKind int

const (
	kindString cellKind = iota
	kindInt
	kindFloat
	kindBool
	kindNull
)

// inferColumn picks the narrowest type that fits every non-empty cell in a column.
func inferColumn(records [][]string, col int) cellKind {
	isInt, isFloat, isBool := true, true, true
	nonEmpty := 0

	for _, rec := range records {
		if col >= len(rec) {
			continue
		}
		cell := strings.TrimSpace(rec[col])
		if isMissing(cell) {
			continue
		}
		nonEmpty++

		if isInt {
			if _, err := strconv.ParseInt(cell, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, ok := parseFloat(cell); !ok {
				isFloat = false
			}
		}
		if isBool {
			if _, ok := parseBool(cell); !ok {
				isBool = false
			}
		}
		if !isInt && !isFloat && !isBool {
			return kindString
		}
	}

	switch {
	case nonEmpty == 0:
		return kindNull
	case isInt:
		return kindInt
	case isFloat:
		return kindFloat
	case isBool:
		return kindBool
	default:
		return kindString
	}
}

// convertCell converts a raw cell according to its column kind.
func convertCell(raw string, kind cellKind) any {
	cell := strings.TrimSpace(raw)
	if isMissing(cell) {
		return nil
	}

	switch kind {
	case kindInt:
		v, _ := strconv.ParseInt(cell, 10, 64)
		return v
	case kindFloat:
		v, _ := parseFloat(cell)
		return v
	case kindBool:
		v, _ := parseBool(cell)
		return v
	default:
		return raw
	}
}

func isMissing(cell string) bool {
	if cell == "" {
		return true
	}
	_, ok := naValues[cell]
	return ok
}

// parseFloat accepts decimal and exponent notation and the infinities.
// Hex literals and NaN spellings that are not NA markers are rejected.
func parseFloat(cell string) (float64, bool) {
	digits := strings.TrimLeft(cell, "+-")
	if len(digits) > 1 && digits[0] == '0' && (digits[1] == 'x' || digits[1] == 'X') {
		return 0, false
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

func parseBool(cell string) (bool, bool) {
	switch cell {
	case "True", "TRUE", "true":
		return true, true
	case "False", "FALSE", "false":
		return false, true
	default:
		return false, false
	}
}
