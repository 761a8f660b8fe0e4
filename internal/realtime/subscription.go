// Package realtime owns live feeds opened on behalf of a UI surface (a photo
// viewer, the moderation panel, a websocket connection). Every feed is a
// Subscription handle with explicit Start and Cancel; a Registry guarantees
// at most one live handle per surface and kind.
package realtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/imprimeturecuerdo/memorial-backend/internal/docstore"
)

type Kind string

const (
	KindComments  Kind = "comments"
	KindReactions Kind = "reactions"
	KindCandles   Kind = "candles"
	KindStats     Kind = "stats"
	KindReports   Kind = "reports"
	KindBlocked   Kind = "blocked"
)

func (k Kind) Valid() bool {
	switch k {
	case KindComments, KindReactions, KindCandles, KindStats, KindReports, KindBlocked:
		return true
	}
	return false
}

// PhotoScoped reports whether feeds of this kind belong to a single photo.
func (k Kind) PhotoScoped() bool {
	return k == KindComments || k == KindReactions
}

// Key identifies what a subscription watches and who owns it. Photo is -1
// for memorial-wide kinds.
type Key struct {
	Surface  string
	Memorial string
	Photo    int
	Kind     Kind
}

func (k Key) String() string {
	if k.Kind.PhotoScoped() {
		return fmt.Sprintf("%s:%s/%d/%s", k.Surface, k.Memorial, k.Photo, k.Kind)
	}
	return fmt.Sprintf("%s:%s/%s", k.Surface, k.Memorial, k.Kind)
}

// RunFunc blocks until ctx is cancelled or the feed fails.
type RunFunc func(ctx context.Context) error

// ListenFunc adapts a docstore collection listener to a RunFunc.
func ListenFunc(store docstore.Store, collection string, q docstore.Query, fn func([]docstore.Snapshot)) RunFunc {
	return func(ctx context.Context) error {
		return store.Listen(ctx, collection, q, fn)
	}
}

type Subscription struct {
	key Key
	run RunFunc

	mu        sync.Mutex
	started   bool
	cancelled bool
	cancel    context.CancelFunc
	done      chan struct{}
	err       error
}

func NewSubscription(key Key, run RunFunc) *Subscription {
	return &Subscription{
		key:  key,
		run:  run,
		done: make(chan struct{}),
	}
}

func (s *Subscription) Key() Key { return s.key }

// Start runs the feed in its own goroutine. Starting twice, or starting a
// subscription that was already cancelled, does nothing.
func (s *Subscription) Start(parent context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.cancelled {
		return
	}
	s.started = true

	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel

	go func() {
		defer close(s.done)
		defer cancel()
		err := s.run(ctx)
		if ctx.Err() != nil {
			err = nil
		}
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
	}()
}

// Cancel stops the feed and waits until its callback can no longer fire.
func (s *Subscription) Cancel() {
	s.mu.Lock()
	if s.cancelled {
		started := s.started
		s.mu.Unlock()
		if started {
			<-s.done
		}
		return
	}
	s.cancelled = true
	started := s.started
	cancel := s.cancel
	s.mu.Unlock()

	if !started {
		close(s.done)
		return
	}
	cancel()
	<-s.done
}

func (s *Subscription) Done() <-chan struct{} { return s.done }

// Err is the error the feed ended with; nil while running or after Cancel.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Subscription) Active() bool {
	select {
	case <-s.done:
		return false
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && !s.cancelled
}
