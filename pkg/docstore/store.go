package docstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a document does not exist in the collection.
var ErrNotFound = errors.New("document not found")

// Document is a single stored record. Decode fills v using the adapter's native
// codec (bson, dynamodbav or json tags), so models carry all three tag sets.
type Document interface {
	ID() string
	Decode(v interface{}) error
}

// Filter is an equality match on a single top-level field.
type Filter struct {
	Field string
	Value interface{}
}

// Eq builds an equality filter.
func Eq(field string, value interface{}) Filter {
	return Filter{Field: field, Value: value}
}

// Store defines the operations the console needs from a document backend.
// Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	// QueryEquals returns every document matching all filters.
	QueryEquals(ctx context.Context, collection string, filters ...Filter) ([]Document, error)
	// Insert stores record under a store-generated id and returns it.
	Insert(ctx context.Context, collection string, record interface{}) (string, error)
	// Put creates or replaces the document with the given id.
	Put(ctx context.Context, collection, id string, record interface{}) error
	Update(ctx context.Context, collection, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, collection, id string) error
	// List returns a page of documents and the total count of the collection.
	List(ctx context.Context, collection string, limit, skip int) ([]Document, int64, error)
}
