package repo

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// firestoreStore is the Cloud Firestore implementation of DocumentStore.
// Timestamp fields come back from the client as time.Time.
type firestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore constructs a DocumentStore backed by a Firestore client.
// The client is shared; the caller owns closing it.
func NewFirestoreStore(client *firestore.Client) DocumentStore {
	return &firestoreStore{client: client}
}

// QueryCollection runs a filtered, ordered query and materializes every match.
func (s *firestoreStore) QueryCollection(ctx context.Context, path string, filters []Filter, sortField string, dir SortDirection) ([]RawDocument, error) {
	coll := s.client.Collection(path)
	if coll == nil {
		return nil, fmt.Errorf("repo.FirestoreStore.QueryCollection: invalid collection path %q", path)
	}
	q := coll.Query
	for _, f := range filters {
		q = q.Where(f.Field, string(f.Op), f.Value)
	}
	if sortField != "" {
		d := firestore.Asc
		if dir == Descending {
			d = firestore.Desc
		}
		q = q.OrderBy(sortField, d)
	}

	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("repo.FirestoreStore.QueryCollection %s: %w", path, err)
	}

	docs := make([]RawDocument, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, RawDocument{ID: snap.Ref.ID, Data: snap.Data()})
	}
	return docs, nil
}

// GetDocument reads a single document. NotFound maps to (nil, nil).
func (s *firestoreStore) GetDocument(ctx context.Context, path string) (*RawDocument, error) {
	ref := s.client.Doc(path)
	if ref == nil {
		return nil, fmt.Errorf("repo.FirestoreStore.GetDocument: invalid document path %q", path)
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("repo.FirestoreStore.GetDocument %s: %w", path, err)
	}
	if !snap.Exists() {
		return nil, nil
	}
	return &RawDocument{ID: snap.Ref.ID, Data: snap.Data()}, nil
}
