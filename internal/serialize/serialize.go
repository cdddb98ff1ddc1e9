// Package serialize converts export data into JSON (structured, lossless)
// or CSV (tabular, nested values encoded as quoted JSON).
package serialize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkordes/community-admin/backend/internal/domain"
)

// Encode dispatches on format. label names the data set in the CSV
// empty-input line ("No <label> data found").
func Encode(v any, format domain.Format, label string) ([]byte, error) {
	switch format {
	case domain.FormatJSON:
		return JSON(v)
	case domain.FormatCSV:
		return CSV(v, label)
	default:
		return nil, fmt.Errorf("serialize.Encode: %w: unsupported format %q", domain.ErrSerialization, format)
	}
}

// JSON encodes v with 2-space indentation and a trailing newline.
// Records and aggregates keep their declared field order.
func JSON(v any) ([]byte, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serialize.JSON: %w: %v", domain.ErrSerialization, err)
	}
	return append(out, '\n'), nil
}

// EmptyMessage is the whole CSV output for an empty data set.
func EmptyMessage(label string) string {
	return fmt.Sprintf("No %s data found", label)
}

// CSV renders v as a header line plus one line per row.
//
// v may be a slice of records, maps, or field lists, or a single one of
// those (wrapped into a one-row table). The header is the keys of the first
// row in order; later rows missing a key render an empty cell and keys the
// first row lacks are not emitted. Map rows use sorted keys since Go maps
// carry no insertion order.
func CSV(v any, label string) ([]byte, error) {
	rows, err := toRows(v)
	if err != nil {
		return nil, fmt.Errorf("serialize.CSV: %w", err)
	}
	if len(rows) == 0 {
		return []byte(EmptyMessage(label)), nil
	}

	header := make([]string, len(rows[0]))
	for i, f := range rows[0] {
		header[i] = f.Key
	}

	var buf bytes.Buffer
	cells := make([]string, len(header))
	for i, h := range header {
		cells[i] = quoteIfNeeded(h)
	}
	buf.WriteString(strings.Join(cells, ","))
	buf.WriteByte('\n')

	for _, row := range rows {
		byKey := make(map[string]any, len(row))
		for _, f := range row {
			byKey[f.Key] = f.Value
		}
		for i, h := range header {
			cell, err := renderCell(byKey[h])
			if err != nil {
				return nil, fmt.Errorf("serialize.CSV: field %q: %w", h, err)
			}
			cells[i] = cell
		}
		buf.WriteString(strings.Join(cells, ","))
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// toRows normalizes the accepted CSV inputs into ordered field lists.
func toRows(v any) ([][]domain.Field, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []domain.Record:
		rows := make([][]domain.Field, len(t))
		for i, r := range t {
			rows[i] = r.Fields()
		}
		return rows, nil
	case domain.CategoryData:
		return toRows(t.Rows())
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		rows := make([][]domain.Field, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			row, err := toRow(rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			rows = append(rows, row)
		}
		return rows, nil
	}

	row, err := toRow(v)
	if err != nil {
		return nil, err
	}
	return [][]domain.Field{row}, nil
}

func toRow(v any) ([]domain.Field, error) {
	switch t := v.(type) {
	case domain.Record:
		return t.Fields(), nil
	case []domain.Field:
		return t, nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		row := make([]domain.Field, len(keys))
		for i, k := range keys {
			row[i] = domain.Field{Key: k, Value: t[k]}
		}
		return row, nil
	default:
		return nil, fmt.Errorf("%w: cannot render %T as a table row", domain.ErrSerialization, v)
	}
}

// renderCell formats one value. Scalars render in plain form; nested
// values render as compact JSON and are always quoted.
func renderCell(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return quoteIfNeeded(t), nil
	case bool:
		return strconv.FormatBool(t), nil
	case int:
		return strconv.Itoa(t), nil
	case int32:
		return strconv.FormatInt(int64(t), 10), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float32:
		return formatFloat(float64(t))
	case float64:
		return formatFloat(t)
	case json.Number:
		return t.String(), nil
	case time.Time:
		return t.UTC().Format("2006-01-02T15:04:05.000Z"), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Pointer:
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			return "", nil
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrSerialization, err)
		}
		return quote(string(raw)), nil
	}
	return quoteIfNeeded(fmt.Sprint(v)), nil
}

func formatFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("%w: unsupported number %v", domain.ErrSerialization, f)
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}

// quoteIfNeeded quotes strings containing the separator, a quote, or a
// line break.
func quoteIfNeeded(s string) string {
	if strings.ContainsAny(s, ",\"\r\n") {
		return quote(s)
	}
	return s
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
