// Package firestore implements docstore.Store on Cloud Firestore, the hosted
// database the memorial pages were built on.
package firestore

import (
	"context"
	"fmt"

	gfs "cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/imprimeturecuerdo/memorial-backend/internal/docstore"
)

const countAlias = "all"

type Store struct {
	client *gfs.Client
	log    zerolog.Logger
}

var _ docstore.Store = (*Store)(nil)

func New(client *gfs.Client, log zerolog.Logger) *Store {
	return &Store{
		client: client,
		log:    log.With().Str("component", "firestore").Logger(),
	}
}

func (s *Store) doc(path string) (*gfs.DocumentRef, error) {
	if err := docstore.CheckDocument(path); err != nil {
		return nil, err
	}
	ref := s.client.Doc(path)
	if ref == nil {
		return nil, fmt.Errorf("%w: %q", docstore.ErrInvalidPath, path)
	}
	return ref, nil
}

func (s *Store) query(collection string, q docstore.Query) (gfs.Query, error) {
	if err := docstore.CheckCollection(collection); err != nil {
		return gfs.Query{}, err
	}
	col := s.client.Collection(collection)
	if col == nil {
		return gfs.Query{}, fmt.Errorf("%w: %q", docstore.ErrInvalidPath, collection)
	}

	query := col.Query
	if q.OrderBy != "" {
		dir := gfs.Asc
		if q.Desc {
			dir = gfs.Desc
		}
		query = query.OrderBy(q.OrderBy, dir)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	return query, nil
}

func (s *Store) Get(ctx context.Context, path string, dst interface{}) error {
	ref, err := s.doc(path)
	if err != nil {
		return err
	}

	snap, err := ref.Get(ctx)
	if err != nil {
		return mapError("get "+path, err)
	}
	return snap.DataTo(dst)
}

func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	ref, err := s.doc(path)
	if err != nil {
		return false, err
	}

	snap, err := ref.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	if err != nil {
		return false, mapError("exists "+path, err)
	}
	return snap.Exists(), nil
}

func (s *Store) Set(ctx context.Context, path string, v interface{}) error {
	ref, err := s.doc(path)
	if err != nil {
		return err
	}
	if _, err := ref.Set(ctx, v); err != nil {
		return mapError("set "+path, err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	ref, err := s.doc(path)
	if err != nil {
		return err
	}

	updates := make([]gfs.Update, 0, len(fields))
	for k, v := range fields {
		updates = append(updates, gfs.Update{Path: k, Value: v})
	}
	if _, err := ref.Update(ctx, updates); err != nil {
		return mapError("update "+path, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	ref, err := s.doc(path)
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx); err != nil {
		return mapError("delete "+path, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, collection string, q docstore.Query) ([]docstore.Snapshot, error) {
	query, err := s.query(collection, q)
	if err != nil {
		return nil, err
	}

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, mapError("list "+collection, err)
	}
	return toSnapshots(collection, docs), nil
}

func (s *Store) Count(ctx context.Context, collection string) (int64, error) {
	query, err := s.query(collection, docstore.Query{})
	if err != nil {
		return 0, err
	}

	res, err := query.NewAggregationQuery().WithCount(countAlias).Get(ctx)
	if err != nil {
		return 0, mapError("count "+collection, err)
	}

	v, ok := res[countAlias].(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("firestore: count %s: unexpected result %T", collection, res[countAlias])
	}
	return v.GetIntegerValue(), nil
}

func (s *Store) Increment(ctx context.Context, path, field string, delta int64) error {
	ref, err := s.doc(path)
	if err != nil {
		return err
	}
	_, err = ref.Set(ctx, map[string]interface{}{field: gfs.Increment(delta)}, gfs.MergeAll)
	if err != nil {
		return mapError("increment "+path, err)
	}
	return nil
}

func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	return s.client.RunTransaction(ctx, func(ctx context.Context, t *gfs.Transaction) error {
		return fn(ctx, &tx{s: s, t: t})
	})
}

func (s *Store) Listen(ctx context.Context, collection string, q docstore.Query, fn func([]docstore.Snapshot)) error {
	query, err := s.query(collection, q)
	if err != nil {
		return err
	}

	it := query.Snapshots(ctx)
	defer it.Stop()

	for {
		qs, err := it.Next()
		if ctx.Err() != nil || status.Code(err) == codes.Canceled || err == iterator.Done {
			return nil
		}
		if err != nil {
			return mapError("listen "+collection, err)
		}

		docs, err := qs.Documents.GetAll()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return mapError("listen "+collection, err)
		}
		fn(toSnapshots(collection, docs))
	}
}

// Ping reads a document that never exists; NotFound means the backend answered.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.Doc("admins/_ping").Get(ctx)
	if err == nil || status.Code(err) == codes.NotFound {
		return nil
	}
	return mapError("ping", err)
}

func (s *Store) Close() error {
	return s.client.Close()
}

type tx struct {
	s *Store
	t *gfs.Transaction
}

func (t *tx) Get(path string, dst interface{}) error {
	ref, err := t.s.doc(path)
	if err != nil {
		return err
	}
	snap, err := t.t.Get(ref)
	if err != nil {
		return mapError("tx get "+path, err)
	}
	return snap.DataTo(dst)
}

func (t *tx) Exists(path string) (bool, error) {
	ref, err := t.s.doc(path)
	if err != nil {
		return false, err
	}
	snap, err := t.t.Get(ref)
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	if err != nil {
		return false, mapError("tx exists "+path, err)
	}
	return snap.Exists(), nil
}

func (t *tx) Set(path string, v interface{}) error {
	ref, err := t.s.doc(path)
	if err != nil {
		return err
	}
	return t.t.Set(ref, v)
}

func (t *tx) Delete(path string) error {
	ref, err := t.s.doc(path)
	if err != nil {
		return err
	}
	return t.t.Delete(ref)
}

func (t *tx) Increment(path, field string, delta int64) error {
	ref, err := t.s.doc(path)
	if err != nil {
		return err
	}
	return t.t.Set(ref, map[string]interface{}{field: gfs.Increment(delta)}, gfs.MergeAll)
}

func toSnapshots(collection string, docs []*gfs.DocumentSnapshot) []docstore.Snapshot {
	out := make([]docstore.Snapshot, 0, len(docs))
	for _, d := range docs {
		doc := d
		out = append(out, docstore.NewSnapshot(collection+"/"+doc.Ref.ID, doc.DataTo))
	}
	return out
}

func mapError(op string, err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return docstore.ErrNotFound
	case codes.PermissionDenied, codes.Unauthenticated:
		return fmt.Errorf("firestore: %s: %w", op, docstore.ErrPermissionDenied)
	case codes.Aborted:
		return fmt.Errorf("firestore: %s: %w", op, docstore.ErrConflict)
	default:
		return fmt.Errorf("firestore: %s: %w", op, err)
	}
}
