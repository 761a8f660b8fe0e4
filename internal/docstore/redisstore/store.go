// Package redisstore implements docstore.Store on Redis. Documents are JSON
// strings, every collection keeps a sorted-set index of its document ids
// scored by first-write time, and writes publish the document path on a
// per-collection Pub/Sub channel that Listen subscribes to.
package redisstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/imprimeturecuerdo/memorial-backend/internal/docstore"
)

const (
	docKeyPrefix   = "doc:"    // document body: doc:{path}
	indexKeyPrefix = "col:"    // collection index: col:{collection}
	channelPrefix  = "events:" // change feed: events:{collection}
	maxTxRetries   = 16
)

type Store struct {
	client *redis.Client
	prefix string
	log    zerolog.Logger
}

var _ docstore.Store = (*Store)(nil)

func New(client *redis.Client, prefix string, log zerolog.Logger) *Store {
	return &Store{
		client: client,
		prefix: prefix,
		log:    log.With().Str("component", "redisstore").Logger(),
	}
}

func (s *Store) Get(ctx context.Context, path string, dst interface{}) error {
	if err := docstore.CheckDocument(path); err != nil {
		return err
	}

	data, err := s.client.Get(ctx, s.docKey(path)).Bytes()
	if err == redis.Nil {
		return docstore.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("redisstore: get %s: %w", path, err)
	}
	return decode(data, dst)
}

func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	if err := docstore.CheckDocument(path); err != nil {
		return false, err
	}

	n, err := s.client.Exists(ctx, s.docKey(path)).Result()
	if err != nil {
		return false, fmt.Errorf("redisstore: exists %s: %w", path, err)
	}
	return n > 0, nil
}

func (s *Store) Set(ctx context.Context, path string, v interface{}) error {
	if err := docstore.CheckDocument(path); err != nil {
		return err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("redisstore: marshal %s: %w", path, err)
	}

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		s.queueSet(ctx, p, path, data)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redisstore: set %s: %w", path, err)
	}

	s.publish(ctx, docstore.Parent(path), path)
	return nil
}

func (s *Store) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	if err := docstore.CheckDocument(path); err != nil {
		return err
	}

	key := s.docKey(path)
	err := s.withRetry(func() error {
		return s.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err == redis.Nil {
				return docstore.ErrNotFound
			}
			if err != nil {
				return err
			}

			doc, err := decodeMap(data)
			if err != nil {
				return err
			}
			for k, v := range fields {
				doc[k] = v
			}
			out, err := json.Marshal(doc)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
				p.Set(ctx, key, out, 0)
				return nil
			})
			return err
		}, key)
	})
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return err
		}
		return fmt.Errorf("redisstore: update %s: %w", path, err)
	}

	s.publish(ctx, docstore.Parent(path), path)
	return nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	if err := docstore.CheckDocument(path); err != nil {
		return err
	}

	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		s.queueDelete(ctx, p, path)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redisstore: delete %s: %w", path, err)
	}

	s.publish(ctx, docstore.Parent(path), path)
	return nil
}

// List returns documents in first-write order; q.OrderBy is not consulted
// because every document this service writes sets its timestamp on creation.
func (s *Store) List(ctx context.Context, collection string, q docstore.Query) ([]docstore.Snapshot, error) {
	if err := docstore.CheckCollection(collection); err != nil {
		return nil, err
	}

	stop := int64(-1)
	if q.Limit > 0 {
		stop = int64(q.Limit - 1)
	}

	var (
		ids []string
		err error
	)
	if q.Desc {
		ids, err = s.client.ZRevRange(ctx, s.indexKey(collection), 0, stop).Result()
	} else {
		ids, err = s.client.ZRange(ctx, s.indexKey(collection), 0, stop).Result()
	}
	if err != nil {
		return nil, fmt.Errorf("redisstore: list %s: %w", collection, err)
	}
	if len(ids) == 0 {
		return []docstore.Snapshot{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.docKey(collection + "/" + id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: list %s: %w", collection, err)
	}

	snaps := make([]docstore.Snapshot, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		data := []byte(raw)
		snaps = append(snaps, docstore.NewSnapshot(collection+"/"+ids[i], func(dst interface{}) error {
			return decode(data, dst)
		}))
	}
	return snaps, nil
}

func (s *Store) Count(ctx context.Context, collection string) (int64, error) {
	if err := docstore.CheckCollection(collection); err != nil {
		return 0, err
	}

	n, err := s.client.ZCard(ctx, s.indexKey(collection)).Result()
	if err != nil {
		return 0, fmt.Errorf("redisstore: count %s: %w", collection, err)
	}
	return n, nil
}

func (s *Store) Increment(ctx context.Context, path, field string, delta int64) error {
	return s.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		return tx.Increment(path, field, delta)
	})
}

func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	var touched map[string]string

	err := s.withRetry(func() error {
		return s.client.Watch(ctx, func(rtx *redis.Tx) error {
			t := newTx(ctx, s, rtx)
			if err := fn(ctx, t); err != nil {
				return err
			}
			if err := t.commit(); err != nil {
				return err
			}
			touched = t.touched()
			return nil
		})
	})
	if err != nil {
		return err
	}

	for collection, path := range touched {
		s.publish(ctx, collection, path)
	}
	return nil
}

func (s *Store) Listen(ctx context.Context, collection string, q docstore.Query, fn func([]docstore.Snapshot)) error {
	if err := docstore.CheckCollection(collection); err != nil {
		return err
	}

	sub := s.client.Subscribe(ctx, s.channel(collection))
	defer sub.Close()

	// Wait for the subscription to be confirmed so no change between the
	// initial read and the first message is lost.
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("redisstore: subscribe %s: %w", collection, err)
	}

	emit := func() error {
		snaps, err := s.List(ctx, collection, q)
		if err != nil {
			return err
		}
		fn(snaps)
		return nil
	}

	if err := emit(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-ch:
			if !ok {
				return nil
			}
			if err := emit(); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.log.Warn().Err(err).Str("collection", collection).Msg("listen refresh failed")
			}
		}
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) queueSet(ctx context.Context, p redis.Pipeliner, path string, data []byte) {
	p.Set(ctx, s.docKey(path), data, 0)
	p.ZAddNX(ctx, s.indexKey(docstore.Parent(path)), redis.Z{
		Score:  float64(time.Now().UnixMicro()),
		Member: docstore.Base(path),
	})
}

func (s *Store) queueDelete(ctx context.Context, p redis.Pipeliner, path string) {
	p.Del(ctx, s.docKey(path))
	p.ZRem(ctx, s.indexKey(docstore.Parent(path)), docstore.Base(path))
}

func (s *Store) publish(ctx context.Context, collection, path string) {
	if err := s.client.Publish(ctx, s.channel(collection), path).Err(); err != nil {
		s.log.Warn().Err(err).Str("collection", collection).Msg("publish change failed")
	}
}

func (s *Store) withRetry(fn func() error) error {
	for i := 0; i < maxTxRetries; i++ {
		err := fn()
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return docstore.ErrConflict
}

func (s *Store) docKey(path string) string {
	return fmt.Sprintf("%s%s%s", s.prefix, docKeyPrefix, path)
}

func (s *Store) indexKey(collection string) string {
	return fmt.Sprintf("%s%s%s", s.prefix, indexKeyPrefix, collection)
}

func (s *Store) channel(collection string) string {
	return fmt.Sprintf("%s%s%s", s.prefix, channelPrefix, collection)
}

func decode(data []byte, dst interface{}) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("redisstore: decode: %w", err)
	}
	return nil
}

func decodeMap(data []byte) (map[string]interface{}, error) {
	doc := make(map[string]interface{})
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("redisstore: decode: %w", err)
	}
	if doc == nil {
		doc = make(map[string]interface{})
	}
	return doc, nil
}
