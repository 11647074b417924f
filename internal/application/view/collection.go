// Package view materializes store subscriptions into typed, ordered,
// read-only snapshots. Every delivery replaces the previous snapshot whole.
package view

import (
	"context"
	"slices"
	"sync"

	"github.com/pocketbook/backend/internal/domain/shared"
	"github.com/pocketbook/backend/internal/domain/store"
	"go.uber.org/zap"
)

// Identifiable is implemented by records that carry their document id
type Identifiable interface {
	SetID(id string)
}

// decode turns one stored document into T, attaching its id when T supports it
func decode[T any](doc store.Document) (T, error) {
	var v T
	if err := store.Decode(doc.Fields, &v); err != nil {
		return v, err
	}
	if idv, ok := any(&v).(Identifiable); ok {
		idv.SetID(doc.ID())
	}
	return v, nil
}

// Option configures an OrderedCollection
type Option func(*options)

type options struct {
	descending bool
	logger     *zap.Logger
}

// Descending reverses the delivered order
func Descending() Option {
	return func(o *options) { o.descending = true }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// OrderedCollection is the materialized view of one collection ordered by a
// sequence field. It starts loading and becomes loaded on the first delivery.
type OrderedCollection[T any] struct {
	store      store.DocumentStore
	coll       store.CollectionRef
	orderField string
	opts       options

	// lifecycle serializes Start and Release so one subscription is live at most
	lifecycle sync.Mutex

	mu        sync.RWMutex
	items     []T
	loaded    bool
	sub       store.Subscription
	listeners map[int]func([]T)
	nextID    int
}

// NewOrderedCollection creates an unstarted view of coll
func NewOrderedCollection[T any](s store.DocumentStore, coll store.CollectionRef, orderField string, opts ...Option) *OrderedCollection[T] {
	return &OrderedCollection[T]{
		store:      s,
		coll:       coll,
		orderField: orderField,
		opts:       buildOptions(opts),
		listeners:  make(map[int]func([]T)),
	}
}

// Collection returns the viewed collection
func (v *OrderedCollection[T]) Collection() store.CollectionRef {
	return v.coll
}

// Start subscribes to the collection. Starting a started view is a no-op.
func (v *OrderedCollection[T]) Start(ctx context.Context) error {
	v.lifecycle.Lock()
	defer v.lifecycle.Unlock()

	v.mu.Lock()
	if v.sub != nil {
		v.mu.Unlock()
		return nil
	}
	v.loaded = false
	v.items = nil
	v.mu.Unlock()

	sub, err := v.store.SubscribeCollection(ctx, v.coll, v.orderField, v.deliver)
	if err != nil {
		return err
	}

	v.mu.Lock()
	v.sub = sub
	v.mu.Unlock()
	return nil
}

// Release stops deliveries and drops the snapshot; a later Start loads afresh
func (v *OrderedCollection[T]) Release() {
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
	v.loaded = false
	v.items = nil
	v.mu.Unlock()
}

func (v *OrderedCollection[T]) deliver(docs []store.Document) {
	items := make([]T, 0, len(docs))
	for _, doc := range docs {
		item, err := decode[T](doc)
		if err != nil {
			v.opts.logger.Warn("skipping undecodable document",
				zap.String("document", doc.Ref.Path()),
				zap.Error(err),
			)
			continue
		}
		items = append(items, item)
	}
	if v.opts.descending {
		slices.Reverse(items)
	}

	v.mu.Lock()
	v.items = items
	v.loaded = true
	listeners := make([]func([]T), 0, len(v.listeners))
	for _, fn := range v.listeners {
		listeners = append(listeners, fn)
	}
	v.mu.Unlock()

	for _, fn := range listeners {
		fn(slices.Clone(items))
	}
}

// Loading reports whether the first delivery is still pending
func (v *OrderedCollection[T]) Loading() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return !v.loaded
}

// Items returns a copy of the current snapshot
func (v *OrderedCollection[T]) Items() []T {
	items, _ := v.Snapshot()
	return items
}

// Snapshot returns a copy of the items and whether they have loaded
func (v *OrderedCollection[T]) Snapshot() ([]T, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.Clone(v.items), v.loaded
}

// Ready returns the snapshot, or ErrNotReady before the first delivery
func (v *OrderedCollection[T]) Ready() ([]T, error) {
	items, loaded := v.Snapshot()
	if !loaded {
		return nil, shared.ErrNotReady
	}
	return items, nil
}

// OnChange registers fn for every later delivery; the returned func unregisters it.
// fn runs on the delivering goroutine and must not write to the store.
func (v *OrderedCollection[T]) OnChange(fn func([]T)) func() {
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
