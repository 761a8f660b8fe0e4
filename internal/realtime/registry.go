package realtime

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

type slot struct {
	surface string
	kind    Kind
}

// Registry is the arena of live subscriptions, keyed by surface.
type Registry struct {
	mu     sync.Mutex
	subs   map[slot]*Subscription
	closed bool
	log    zerolog.Logger
}

func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		subs: make(map[slot]*Subscription),
		log:  log.With().Str("component", "realtime").Logger(),
	}
}

// Open replaces whatever the surface had open for key.Kind. The previous
// subscription is fully stopped before the new one starts, so a photo
// switch never lets the old photo's callback write into the surface.
func (r *Registry) Open(ctx context.Context, key Key, run RunFunc) *Subscription {
	sub := NewSubscription(key, run)
	sl := slot{surface: key.Surface, kind: key.Kind}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		sub.Cancel()
		return sub
	}
	prev := r.subs[sl]
	r.subs[sl] = sub
	r.mu.Unlock()

	if prev != nil {
		prev.Cancel()
		r.log.Debug().Str("key", prev.Key().String()).Msg("subscription replaced")
	}

	sub.Start(ctx)
	r.log.Debug().Str("key", key.String()).Msg("subscription opened")
	return sub
}

func (r *Registry) Close(surface string, kind Kind) {
	sl := slot{surface: surface, kind: kind}

	r.mu.Lock()
	sub := r.subs[sl]
	delete(r.subs, sl)
	r.mu.Unlock()

	if sub != nil {
		sub.Cancel()
	}
}

// CloseSurface tears down every subscription the surface owns.
func (r *Registry) CloseSurface(surface string) {
	var subs []*Subscription

	r.mu.Lock()
	for sl, sub := range r.subs {
		if sl.surface == surface {
			subs = append(subs, sub)
			delete(r.subs, sl)
		}
	}
	r.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}
	if len(subs) > 0 {
		r.log.Debug().Str("surface", surface).Int("closed", len(subs)).Msg("surface closed")
	}
}

// Get returns the surface's subscription for kind, if one is registered.
func (r *Registry) Get(surface string, kind Kind) (*Subscription, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[slot{surface: surface, kind: kind}]
	return sub, ok
}

// Active lists the keys of subscriptions that are still running.
func (r *Registry) Active() []Key {
	r.mu.Lock()
	keys := make([]Key, 0, len(r.subs))
	for _, sub := range r.subs {
		if sub.Active() {
			keys = append(keys, sub.Key())
		}
	}
	r.mu.Unlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// Shutdown cancels everything and refuses later Opens.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	r.closed = true
	subs := r.subs
	r.subs = make(map[slot]*Subscription)
	r.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}
}
