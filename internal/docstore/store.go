// Package docstore is the document database boundary. Documents are
// addressed by slash-separated hierarchical paths ("memorials/x/mods/uid"),
// collections by the path of their parent plus the collection name.
package docstore

import (
	"context"
	"errors"
)

var (
	ErrNotFound         = errors.New("docstore: document not found")
	ErrPermissionDenied = errors.New("docstore: permission denied")
	ErrInvalidPath      = errors.New("docstore: invalid path")
	ErrConflict         = errors.New("docstore: transaction conflict")
)

// Query bounds a collection read. OrderBy is a document field name; backends
// that cannot order by arbitrary fields order by first-write time instead.
type Query struct {
	OrderBy string
	Desc    bool
	Limit   int
}

// Snapshot is one document read from a collection.
type Snapshot struct {
	ID     string
	Path   string
	decode func(v interface{}) error
}

func NewSnapshot(path string, decode func(v interface{}) error) Snapshot {
	return Snapshot{ID: Base(path), Path: path, decode: decode}
}

// DataTo decodes the document into v (a pointer to a tagged struct or map).
func (s Snapshot) DataTo(v interface{}) error {
	if s.decode == nil {
		return ErrNotFound
	}
	return s.decode(v)
}

// Tx is the view of the store inside RunTransaction. All reads must happen
// before the first write.
type Tx interface {
	Get(path string, dst interface{}) error
	Exists(path string) (bool, error)
	Set(path string, v interface{}) error
	Delete(path string) error
	Increment(path, field string, delta int64) error
}

type Store interface {
	Get(ctx context.Context, path string, dst interface{}) error
	Exists(ctx context.Context, path string) (bool, error)
	Set(ctx context.Context, path string, v interface{}) error
	// Update merges fields into an existing document; ErrNotFound if absent.
	Update(ctx context.Context, path string, fields map[string]interface{}) error
	Delete(ctx context.Context, path string) error
	List(ctx context.Context, collection string, q Query) ([]Snapshot, error)
	Count(ctx context.Context, collection string) (int64, error)
	// Increment atomically adds delta to a numeric field, creating the
	// document when missing.
	Increment(ctx context.Context, path, field string, delta int64) error
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// Listen calls fn with the current contents of collection and again after
	// every change, until ctx is cancelled. It returns nil on cancellation.
	Listen(ctx context.Context, collection string, q Query, fn func([]Snapshot)) error
	Ping(ctx context.Context) error
	Close() error
}

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
