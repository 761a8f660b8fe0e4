package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/imprimeturecuerdo/memorial-backend/internal/docstore"
)

type pendingWrite struct {
	path    string
	data    []byte
	deleted bool
}

// tx buffers writes and WATCHes every key it reads; commit applies the
// buffer in one MULTI/EXEC, which fails with redis.TxFailedErr if any
// watched key changed in between.
type tx struct {
	ctx     context.Context
	s       *Store
	rtx     *redis.Tx
	pending map[string]*pendingWrite
	order   []string
}

var _ docstore.Tx = (*tx)(nil)

func newTx(ctx context.Context, s *Store, rtx *redis.Tx) *tx {
	return &tx{
		ctx:     ctx,
		s:       s,
		rtx:     rtx,
		pending: make(map[string]*pendingWrite),
	}
}

func (t *tx) read(path string) ([]byte, error) {
	if err := docstore.CheckDocument(path); err != nil {
		return nil, err
	}

	key := t.s.docKey(path)
	if w, ok := t.pending[key]; ok {
		if w.deleted {
			return nil, docstore.ErrNotFound
		}
		return w.data, nil
	}

	if err := t.rtx.Watch(t.ctx, key).Err(); err != nil {
		return nil, fmt.Errorf("redisstore: watch %s: %w", path, err)
	}
	data, err := t.rtx.Get(t.ctx, key).Bytes()
	if err == redis.Nil {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redisstore: get %s: %w", path, err)
	}
	return data, nil
}

func (t *tx) Get(path string, dst interface{}) error {
	data, err := t.read(path)
	if err != nil {
		return err
	}
	return decode(data, dst)
}

func (t *tx) Exists(path string) (bool, error) {
	_, err := t.read(path)
	if docstore.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (t *tx) Set(path string, v interface{}) error {
	if err := docstore.CheckDocument(path); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("redisstore: marshal %s: %w", path, err)
	}
	t.put(&pendingWrite{path: path, data: data})
	return nil
}

func (t *tx) Delete(path string) error {
	if err := docstore.CheckDocument(path); err != nil {
		return err
	}
	t.put(&pendingWrite{path: path, deleted: true})
	return nil
}

func (t *tx) Increment(path, field string, delta int64) error {
	doc := make(map[string]interface{})
	data, err := t.read(path)
	switch {
	case docstore.IsNotFound(err):
	case err != nil:
		return err
	default:
		if doc, err = decodeMap(data); err != nil {
			return err
		}
	}

	current, err := toInt64(doc[field])
	if err != nil {
		return fmt.Errorf("redisstore: increment %s.%s: %w", path, field, err)
	}
	doc[field] = current + delta

	out, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	t.put(&pendingWrite{path: path, data: out})
	return nil
}

func (t *tx) put(w *pendingWrite) {
	key := t.s.docKey(w.path)
	if _, ok := t.pending[key]; !ok {
		t.order = append(t.order, key)
	}
	t.pending[key] = w
}

func (t *tx) commit() error {
	if len(t.order) == 0 {
		return nil
	}
	_, err := t.rtx.TxPipelined(t.ctx, func(p redis.Pipeliner) error {
		for _, key := range t.order {
			w := t.pending[key]
			if w.deleted {
				t.s.queueDelete(t.ctx, p, w.path)
			} else {
				t.s.queueSet(t.ctx, p, w.path, w.data)
			}
		}
		return nil
	})
	return err
}

// touched maps each written collection to one of its written paths.
func (t *tx) touched() map[string]string {
	out := make(map[string]string, len(t.order))
	for _, key := range t.order {
		w := t.pending[key]
		out[docstore.Parent(w.path)] = w.path
	}
	return out
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, err
		}
		return int64(f), nil
	case float64:
		return int64(n), nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("field is %T, not a number", v)
	}
}
