// Package repo contains all storage access for the community admin backend.
// The document store holds the resident records being exported; the
// Postgres file store holds delivered export files.
// No business logic lives here, only queries and type mapping.
package repo

import (
	"context"
	"strings"
)

// RawDocument is one document as the store returned it. Values keep their
// store-native types (time.Time, primitive.DateTime, nested maps/slices);
// normalization happens in the service layer.
type RawDocument struct {
	ID   string
	Data map[string]any
}

// Op is a filter comparison operator.
type Op string

// OpEqual is the only operator the export engine needs.
const OpEqual Op = "=="

// Filter restricts a collection query to documents whose Field matches Value.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// SortDirection orders query results by the sort field.
type SortDirection int

const (
	Ascending SortDirection = iota
	Descending
)

// DocumentStore is the read interface over the remote document database.
// Implementations must be safe for concurrent use: the aggregator issues
// several queries at once against one store.
type DocumentStore interface {
	// QueryCollection returns the documents in the collection at path that
	// match every filter, ordered by sortField in dir. An empty sortField
	// leaves the store's natural order.
	QueryCollection(ctx context.Context, path string, filters []Filter, sortField string, dir SortDirection) ([]RawDocument, error)

	// GetDocument returns the document at path, or (nil, nil) when it does
	// not exist.
	GetDocument(ctx context.Context, path string) (*RawDocument, error)
}

// CollectionPath joins path segments with "/".
func CollectionPath(segments ...string) string {
	return strings.Join(segments, "/")
}

// splitDocPath splits "a/b/c/d" into the parent collection "a/b/c" and
// document id "d".
func splitDocPath(path string) (collection, id string) {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}
