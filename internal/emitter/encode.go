package emitter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatText = "text"
	FormatCSV  = "csv"
)

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown output format")

// CheckFormat validates an output format name. Empty means json.
func CheckFormat(format string) error {
	switch format {
	case "", FormatJSON, FormatText, FormatCSV:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// encodeBatch writes the batch to w in the given format.
func encodeBatch(w io.Writer, format string, b *Batch) error {
	switch format {
	case "", FormatJSON:
		return encodeJSONLines(w, b)
	case FormatText:
		return encodeText(w, b)
	case FormatCSV:
		return encodeCSV(w, b)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// encodeJSONLines writes one object per row. Keys follow column order,
// followed by the run metadata.
func encodeJSONLines(w io.Writer, b *Batch) error {
	var buf bytes.Buffer
	for _, row := range b.Table.Rows {
		line, err := jsonRow(b, row)
		if err != nil {
			return err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func jsonRow(b *Batch, row map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	write := func(key string, val any) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(finite(val))
		if err != nil {
			return fmt.Errorf("column %s: %w", key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	for _, col := range b.Table.Columns {
		if err := write(col, row[col]); err != nil {
			return nil, err
		}
	}
	if err := write("_run_id", b.RunID); err != nil {
		return nil, err
	}
	if err := write("_source", string(b.Source)); err != nil {
		return nil, err
	}
	if err := write("_ingested_at", b.IngestedAt.Format(time.RFC3339Nano)); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// finite maps NaN and the infinities to nil, which JSON cannot carry.
func finite(v any) any {
	if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return nil
	}
	return v
}

// encodeText writes a summary line and one key=value line per row.
func encodeText(w io.Writer, b *Batch) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] [%s] run=%s rows=%d columns=%s\n",
		b.IngestedAt.Format(time.RFC3339), b.Source, b.RunID, b.Table.Len(), strings.Join(b.Table.Columns, ","))
	for _, row := range b.Table.Rows {
		for i, col := range b.Table.Columns {
			if i > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%s=%s", col, cell(row[col]))
		}
		sb.WriteByte('\n')
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// encodeCSV writes a header row and one record per row. Missing values are
// written as empty cells.
func encodeCSV(w io.Writer, b *Batch) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(b.Table.Columns); err != nil {
		return err
	}
	record := make([]string, len(b.Table.Columns))
	for _, row := range b.Table.Rows {
		for i, col := range b.Table.Columns {
			record[i] = cell(row[col])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func cell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []any, map[string]any:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	default:
		return fmt.Sprint(val)
	}
}
