// Package docstore implements store.DocumentStore in memory and on GORM,
// with live collection subscriptions fed by change notices.
package docstore

import (
	"context"
	"sync"

	"github.com/pocketbook/backend/internal/domain/store"
	"go.uber.org/zap"
)

// source is what a hub re-reads when a collection changes
type source interface {
	Get(ctx context.Context, ref store.DocumentRef) (store.Document, bool, error)
	Query(ctx context.Context, coll store.CollectionRef, orderField string) ([]store.Document, error)
}

// hub tracks live listeners and refreshes them after a change.
// Each listener re-reads under its own mutex, so deliveries for one listener
// are serialized and never go back to an older state.
type hub struct {
	src    source
	logger *zap.Logger

	mu          sync.RWMutex
	collections map[string]map[*collectionSub]struct{}
	documents   map[string]map[*documentSub]struct{}
}

func newHub(src source, logger *zap.Logger) *hub {
	return &hub{
		src:         src,
		logger:      logger,
		collections: make(map[string]map[*collectionSub]struct{}),
		documents:   make(map[string]map[*documentSub]struct{}),
	}
}

type collectionSub struct {
	h          *hub
	coll       store.CollectionRef
	orderField string
	fn         func([]store.Document)

	mu       sync.Mutex
	released bool
}

func (s *collectionSub) refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil
	}
	docs, err := s.h.src.Query(ctx, s.coll, s.orderField)
	if err != nil {
		return err
	}
	s.fn(docs)
	return nil
}

// Release stops further deliveries. It waits for a delivery in progress,
// so it must not be called from inside the subscription's own callback.
func (s *collectionSub) Release() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	s.mu.Unlock()

	s.h.mu.Lock()
	if subs, ok := s.h.collections[s.coll.Path]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(s.h.collections, s.coll.Path)
		}
	}
	s.h.mu.Unlock()
	s.h.logger.Debug("collection subscription released", zap.String("collection", s.coll.Path))
}

type documentSub struct {
	h   *hub
	ref store.DocumentRef
	fn  func(store.Document, bool)

	mu       sync.Mutex
	released bool
}

func (s *documentSub) refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil
	}
	doc, ok, err := s.h.src.Get(ctx, s.ref)
	if err != nil {
		return err
	}
	s.fn(doc, ok)
	return nil
}

// Release stops further deliveries
func (s *documentSub) Release() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	s.mu.Unlock()

	path := s.ref.Path()
	s.h.mu.Lock()
	if subs, ok := s.h.documents[path]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(s.h.documents, path)
		}
	}
	s.h.mu.Unlock()
	s.h.logger.Debug("document watch released", zap.String("document", path))
}

func (h *hub) subscribeCollection(ctx context.Context, coll store.CollectionRef, orderField string, fn func([]store.Document)) (store.Subscription, error) {
	sub := &collectionSub{h: h, coll: coll, orderField: orderField, fn: fn}
	h.mu.Lock()
	if h.collections[coll.Path] == nil {
		h.collections[coll.Path] = make(map[*collectionSub]struct{})
	}
	h.collections[coll.Path][sub] = struct{}{}
	h.mu.Unlock()

	if err := sub.refresh(ctx); err != nil {
		sub.Release()
		return nil, err
	}
	h.logger.Debug("collection subscribed",
		zap.String("collection", coll.Path),
		zap.String("order_field", orderField),
	)
	return sub, nil
}

func (h *hub) watchDocument(ctx context.Context, ref store.DocumentRef, fn func(store.Document, bool)) (store.Subscription, error) {
	sub := &documentSub{h: h, ref: ref, fn: fn}
	path := ref.Path()
	h.mu.Lock()
	if h.documents[path] == nil {
		h.documents[path] = make(map[*documentSub]struct{})
	}
	h.documents[path][sub] = struct{}{}
	h.mu.Unlock()

	if err := sub.refresh(ctx); err != nil {
		sub.Release()
		return nil, err
	}
	h.logger.Debug("document watched", zap.String("document", path))
	return sub, nil
}

// notify refreshes every listener of the changed document and its collection
func (h *hub) notify(ctx context.Context, ref store.DocumentRef) {
	ctx = context.WithoutCancel(ctx)
	h.mu.RLock()
	colls := make([]*collectionSub, 0, len(h.collections[ref.Collection.Path]))
	for s := range h.collections[ref.Collection.Path] {
		colls = append(colls, s)
	}
	docs := make([]*documentSub, 0, len(h.documents[ref.Path()]))
	for s := range h.documents[ref.Path()] {
		docs = append(docs, s)
	}
	h.mu.RUnlock()

	for _, s := range colls {
		if err := s.refresh(ctx); err != nil {
			h.logger.Warn("collection refresh failed",
				zap.String("collection", s.coll.Path),
				zap.Error(err),
			)
		}
	}
	for _, s := range docs {
		if err := s.refresh(ctx); err != nil {
			h.logger.Warn("document refresh failed",
				zap.String("document", ref.Path()),
				zap.Error(err),
			)
		}
	}
}

// listeners reports how many subscriptions are registered
func (h *hub) listeners() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, subs := range h.collections {
		n += len(subs)
	}
	for _, subs := range h.documents {
		n += len(subs)
	}
	return n
}
