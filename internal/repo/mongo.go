package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoStore is the MongoDB implementation of DocumentStore.
// Document-store paths map onto physical collections by joining the
// collection path with "_": "projects/p1/gatePasses" lives in the
// "projects_p1_gatePasses" collection, and "users/u1" is the document with
// _id "u1" in "users". Date fields come back as primitive.DateTime.
type mongoStore struct {
	db *mongo.Database
}

// NewMongoStore constructs a DocumentStore backed by a MongoDB database.
func NewMongoStore(db *mongo.Database) DocumentStore {
	return &mongoStore{db: db}
}

// PhysicalCollection returns the MongoDB collection name for a store path.
func PhysicalCollection(path string) string {
	return strings.ReplaceAll(strings.Trim(path, "/"), "/", "_")
}

// QueryCollection runs a find with equality filters and an optional sort.
func (s *mongoStore) QueryCollection(ctx context.Context, path string, filters []Filter, sortField string, dir SortDirection) ([]RawDocument, error) {
	filter := bson.D{}
	for _, f := range filters {
		if f.Op != OpEqual {
			return nil, fmt.Errorf("repo.MongoStore.QueryCollection: unsupported operator %q", f.Op)
		}
		filter = append(filter, bson.E{Key: f.Field, Value: f.Value})
	}

	opts := options.Find()
	if sortField != "" {
		order := 1
		if dir == Descending {
			order = -1
		}
		opts.SetSort(bson.D{{Key: sortField, Value: order}})
	}

	cur, err := s.db.Collection(PhysicalCollection(path)).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("repo.MongoStore.QueryCollection %s: %w", path, err)
	}
	defer cur.Close(ctx)

	var docs []RawDocument
	for cur.Next(ctx) {
		var m bson.M
		if err := cur.Decode(&m); err != nil {
			return nil, fmt.Errorf("repo.MongoStore.QueryCollection %s: decode: %w", path, err)
		}
		docs = append(docs, fromBSON(m))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("repo.MongoStore.QueryCollection %s: cursor: %w", path, err)
	}
	return docs, nil
}

// GetDocument finds a document by _id. ErrNoDocuments maps to (nil, nil).
func (s *mongoStore) GetDocument(ctx context.Context, path string) (*RawDocument, error) {
	coll, id := splitDocPath(path)
	if coll == "" || id == "" {
		return nil, fmt.Errorf("repo.MongoStore.GetDocument: invalid document path %q", path)
	}

	var m bson.M
	err := s.db.Collection(PhysicalCollection(coll)).FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("repo.MongoStore.GetDocument %s: %w", path, err)
	}
	doc := fromBSON(m)
	return &doc, nil
}

// fromBSON converts a decoded document into a RawDocument, lifting _id into
// ID and turning BSON containers into plain maps and slices.
func fromBSON(m bson.M) RawDocument {
	doc := RawDocument{Data: make(map[string]any, len(m))}
	for k, v := range m {
		if k == "_id" {
			doc.ID = idString(v)
			continue
		}
		doc.Data[k] = plainBSON(v)
	}
	return doc
}

func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case primitive.ObjectID:
		return id.Hex()
	default:
		return fmt.Sprint(id)
	}
}

// plainBSON keeps date types intact for the timestamp normalizer.
func plainBSON(v any) any {
	switch t := v.(type) {
	case bson.M:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = plainBSON(e)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = plainBSON(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plainBSON(e)
		}
		return out
	case primitive.ObjectID:
		return t.Hex()
	default:
		return v
	}
}
