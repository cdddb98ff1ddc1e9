package domain

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Field is one named value of a record, in document order.
type Field struct {
	Key   string
	Value any
}

// Record is a single normalized document from one category.
// Fields returns every field in a stable order: declared fields first,
// then passthrough fields sorted by key. Absent values are nil.
// A passthrough value whose key is declared takes the declared position.
type Record interface {
	RecordID() string
	Fields() []Field
}

// MarshalFields encodes fields as a JSON object preserving their order.
// encoding/json sorts map keys, so records marshal through this helper
// instead of a map.
func MarshalFields(fields []Field) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// withExtra merges passthrough fields into declared ones. A passthrough key
// that names a declared field replaces that field's value in place; the
// rest are appended sorted by key.
func withExtra(fields []Field, extra map[string]any) []Field {
	if len(extra) == 0 {
		return fields
	}
	placed := make(map[string]bool, len(fields))
	for i, f := range fields {
		if v, ok := extra[f.Key]; ok {
			fields[i].Value = v
			placed[f.Key] = true
		}
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		if !placed[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, Field{Key: k, Value: extra[k]})
	}
	return fields
}
