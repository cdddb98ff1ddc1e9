package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process DocumentStore. It backs unit tests and the
// "memory" store backend used for local development.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
}

var _ DocumentStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]map[string]any)}
}

// LoadMemoryStore reads a seed file shaped as
// {"<collection path>": {"<doc id>": {<fields>}}}.
// String values that parse as RFC 3339 are stored as time.Time so the
// memory backend behaves like a store with native timestamps.
func LoadMemoryStore(path string) (*MemoryStore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("repo.LoadMemoryStore: %w", err)
	}
	var seed map[string]map[string]map[string]any
	if err := json.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("repo.LoadMemoryStore: decode: %w", err)
	}
	s := NewMemoryStore()
	for coll, docs := range seed {
		for id, data := range docs {
			for k, v := range data {
				if str, ok := v.(string); ok {
					if t, err := time.Parse(time.RFC3339Nano, str); err == nil {
						data[k] = t
					}
				}
			}
			s.Put(coll, id, data)
		}
	}
	return s, nil
}

// Put stores (or replaces) the document id in the collection at path.
func (s *MemoryStore) Put(path, id string, data map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, ok := s.collections[path]
	if !ok {
		coll = make(map[string]map[string]any)
		s.collections[path] = coll
	}
	coll[id] = data
}

// QueryCollection filters with equality and sorts on sortField. Documents
// missing the sort field sort last; ties break on id for determinism.
func (s *MemoryStore) QueryCollection(ctx context.Context, path string, filters []Filter, sortField string, dir SortDirection) ([]RawDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []RawDocument
	for id, data := range s.collections[path] {
		if matches(data, filters) {
			docs = append(docs, RawDocument{ID: id, Data: copyMap(data)})
		}
	}

	sort.SliceStable(docs, func(i, j int) bool {
		if sortField != "" {
			a, aok := docs[i].Data[sortField]
			b, bok := docs[j].Data[sortField]
			switch {
			case aok && !bok:
				return true
			case !aok && bok:
				return false
			case aok && bok:
				if c := compareValues(a, b); c != 0 {
					if dir == Descending {
						return c > 0
					}
					return c < 0
				}
			}
		}
		return docs[i].ID < docs[j].ID
	})
	return docs, nil
}

// GetDocument returns a copy of the document at path.
func (s *MemoryStore) GetDocument(ctx context.Context, path string) (*RawDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	coll, id := splitDocPath(path)
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.collections[coll][id]
	if !ok {
		return nil, nil
	}
	return &RawDocument{ID: id, Data: copyMap(data)}, nil
}

func matches(data map[string]any, filters []Filter) bool {
	for _, f := range filters {
		v, ok := data[f.Field]
		if !ok || f.Op != OpEqual || !reflect.DeepEqual(v, f.Value) {
			return false
		}
	}
	return true
}

// compareValues orders times, numbers and strings; mixed kinds compare by
// their formatted text.
func compareValues(a, b any) int {
	switch x := a.(type) {
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	}
	if x, ok := toFloat(a); ok {
		if y, ok := toFloat(b); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
