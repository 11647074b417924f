package view

import (
	"context"
	"sync"

	"github.com/pocketbook/backend/internal/domain/shared"
	"github.com/pocketbook/backend/internal/domain/store"
	"go.uber.org/zap"
)

// Header is the date/time pair a cart header document carries
type Header struct {
	Date *string `json:"date"`
	Time *string `json:"time"`
}

// Stamp returns the header's last-modified stamp, zero when never written
func (h Header) Stamp() shared.Stamp {
	var s shared.Stamp
	if h.Date != nil {
		s.Date = *h.Date
	}
	if h.Time != nil {
		s.Time = *h.Time
	}
	return s
}

// Document is the materialized view of a single document
type Document[T any] struct {
	store store.DocumentStore
	ref   store.DocumentRef
	opts  options

	lifecycle sync.Mutex

	mu        sync.RWMutex
	value     T
	exists    bool
	loaded    bool
	sub       store.Subscription
	listeners map[int]func(T, bool)
	nextID    int
}

// NewDocument creates an unstarted view of ref
func NewDocument[T any](s store.DocumentStore, ref store.DocumentRef, opts ...Option) *Document[T] {
	return &Document[T]{
		store:     s,
		ref:       ref,
		opts:      buildOptions(opts),
		listeners: make(map[int]func(T, bool)),
	}
}

// Start watches the document. Starting a started view is a no-op.
func (v *Document[T]) Start(ctx context.Context) error {
	v.lifecycle.Lock()
	defer v.lifecycle.Unlock()

	v.mu.Lock()
	if v.sub != nil {
		v.mu.Unlock()
		return nil
	}
	v.loaded = false
	v.mu.Unlock()

	sub, err := v.store.WatchDocument(ctx, v.ref, v.deliver)
	if err != nil {
		return err
	}
	v.mu.Lock()
	v.sub = sub
	v.mu.Unlock()
	return nil
}

// Release stops deliveries
func (v *Document[T]) Release() {
	v.lifecycle.Lock()
	defer v.lifecycle.Unlock()

	v.mu.Lock()
	sub := v.sub
	v.sub = nil
	v.mu.Unlock()
	if sub != nil {
		sub.Release()
	}
	v.mu.Lock()
	var zero T
	v.value, v.exists, v.loaded = zero, false, false
	v.mu.Unlock()
}

func (v *Document[T]) deliver(doc store.Document, ok bool) {
	var value T
	if ok {
		decoded, err := decode[T](doc)
		if err != nil {
			v.opts.logger.Warn("undecodable document",
				zap.String("document", v.ref.Path()),
				zap.Error(err),
			)
			ok = false
		} else {
			value = decoded
		}
	}

	v.mu.Lock()
	v.value, v.exists, v.loaded = value, ok, true
	listeners := make([]func(T, bool), 0, len(v.listeners))
	for _, fn := range v.listeners {
		listeners = append(listeners, fn)
	}
	v.mu.Unlock()

	for _, fn := range listeners {
		fn(value, ok)
	}
}

// Get returns the current value and whether the document exists
func (v *Document[T]) Get() (T, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value, v.exists
}

// Loading reports whether the first delivery is still pending
func (v *Document[T]) Loading() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return !v.loaded
}

// OnChange registers fn for every later delivery
func (v *Document[T]) OnChange(fn func(T, bool)) func() {
	v.mu.Lock()
	id := v.nextID
	v.nextID++
	v.listeners[id] = fn
	v.mu.Unlock()
	return func() {
		v.mu.Lock()
		delete(v.listeners, id)
		v.mu.Unlock()
	}
}
