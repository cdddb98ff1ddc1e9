// Package service contains the export engine: record fetching and
// normalization, per-user aggregation, batch orchestration, and the
// precondition checks that guard an export call.
// No storage code lives here; services depend on repo interfaces.
package service

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// isoLayout matches JavaScript's Date.prototype.toISOString:
// UTC with millisecond precision and a literal Z.
const isoLayout = "2006-01-02T15:04:05.000Z"

// FormatISO renders t in the canonical export timestamp form.
func FormatISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// NormalizeTimestamp converts a timestamp-valued field to its canonical ISO
// string. It accepts store-native timestamps (time.Time, Mongo DateTime and
// Timestamp, serialized Firestore {seconds, nanoseconds} maps) and ISO
// strings. It returns ("", false) for nil. A string that does not parse as
// a timestamp is returned unchanged so no data is lost.
func NormalizeTimestamp(v any) (string, bool) {
	if t, ok := nativeTime(v); ok {
		return FormatISO(t), true
	}
	switch s := v.(type) {
	case nil:
		return "", false
	case string:
		if s == "" {
			return "", false
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				if layout == "2006-01-02" {
					return s, true
				}
				return FormatISO(t), true
			}
		}
		return s, true
	}
	return "", false
}

// nativeTime recognizes the timestamp representations stores hand back.
func nativeTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case primitive.DateTime:
		return t.Time(), true
	case primitive.Timestamp:
		return time.Unix(int64(t.T), 0), true
	case map[string]any:
		return timestampMap(t)
	}
	return time.Time{}, false
}

// timestampMap recognizes a Firestore Timestamp that went through JSON:
// exactly the keys seconds/nanoseconds (or _seconds/_nanoseconds).
func timestampMap(m map[string]any) (time.Time, bool) {
	if len(m) != 2 {
		return time.Time{}, false
	}
	for _, keys := range [][2]string{{"seconds", "nanoseconds"}, {"_seconds", "_nanoseconds"}} {
		sec, ok1 := asInt64(m[keys[0]])
		nsec, ok2 := asInt64(m[keys[1]])
		if ok1 && ok2 {
			return time.Unix(sec, nsec), true
		}
	}
	return time.Time{}, false
}

// normalizeValue converts native timestamps anywhere inside v, descending
// into maps and slices. Everything else passes through unchanged.
func normalizeValue(v any) any {
	if t, ok := nativeTime(v); ok {
		return FormatISO(t)
	}
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = normalizeValue(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalizeValue(e)
		}
		return out
	}
	return v
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	}
	return 0, false
}

func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	if i, ok := asInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}
