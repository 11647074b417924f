package docstore

import (
	"context"
	"slices"
	"sync"

	"github.com/pocketbook/backend/internal/domain/shared"
	"github.com/pocketbook/backend/internal/domain/store"
	"go.uber.org/zap"
)

// MemoryStore is an in-process DocumentStore. Listeners are refreshed
// synchronously on the writing goroutine before the write returns.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]store.Fields
	hub         *hub
	logger      *zap.Logger
}

// MemoryOption configures a MemoryStore
type MemoryOption func(*MemoryStore)

// WithMemoryLogger sets the logger
func WithMemoryLogger(logger *zap.Logger) MemoryOption {
	return func(s *MemoryStore) {
		s.logger = logger
	}
}

// NewMemoryStore creates an empty store
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		collections: make(map[string]map[string]store.Fields),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = newHub(s, s.logger)
	return s
}

// Get returns a copy of the document
func (s *MemoryStore) Get(ctx context.Context, ref store.DocumentRef) (store.Document, bool, error) {
	if err := ctx.Err(); err != nil {
		return store.Document{}, false, err
	}
	s.mu.RLock()
	fields, ok := s.collections[ref.Collection.Path][ref.ID]
	s.mu.RUnlock()
	if !ok {
		return store.Document{Ref: ref}, false, nil
	}
	copied, err := store.Normalize(fields)
	if err != nil {
		return store.Document{}, false, err
	}
	return store.Document{Ref: ref, Fields: copied}, true, nil
}

// Set replaces the document
func (s *MemoryStore) Set(ctx context.Context, ref store.DocumentRef, fields store.Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	normalized, err := store.Normalize(fields)
	if err != nil {
		return err
	}
	s.mu.Lock()
	coll := s.collections[ref.Collection.Path]
	if coll == nil {
		coll = make(map[string]store.Fields)
		s.collections[ref.Collection.Path] = coll
	}
	coll[ref.ID] = normalized
	s.mu.Unlock()

	s.hub.notify(ctx, ref)
	return nil
}

// Update merges top-level fields into an existing document
func (s *MemoryStore) Update(ctx context.Context, ref store.DocumentRef, fields store.Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	normalized, err := store.Normalize(fields)
	if err != nil {
		return err
	}
	s.mu.Lock()
	current, ok := s.collections[ref.Collection.Path][ref.ID]
	if !ok {
		s.mu.Unlock()
		return notFound(ref)
	}
	merged := make(store.Fields, len(current)+len(normalized))
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range normalized {
		merged[k] = v
	}
	s.collections[ref.Collection.Path][ref.ID] = merged
	s.mu.Unlock()

	s.hub.notify(ctx, ref)
	return nil
}

// Delete removes the document if present
func (s *MemoryStore) Delete(ctx context.Context, ref store.DocumentRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	coll, ok := s.collections[ref.Collection.Path]
	if ok {
		delete(coll, ref.ID)
		if len(coll) == 0 {
			delete(s.collections, ref.Collection.Path)
		}
	}
	s.mu.Unlock()

	s.hub.notify(ctx, ref)
	return nil
}

// Query returns the collection ordered by orderField
func (s *MemoryStore) Query(ctx context.Context, coll store.CollectionRef, orderField string) ([]store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	docs := make([]store.Document, 0, len(s.collections[coll.Path]))
	for id, fields := range s.collections[coll.Path] {
		docs = append(docs, store.Document{Ref: coll.Doc(id), Fields: fields})
	}
	s.mu.RUnlock()

	docs = store.CloneDocuments(docs)
	store.SortDocuments(docs, orderField)
	return docs, nil
}

// SubscribeCollection delivers the ordered collection now and after every change
func (s *MemoryStore) SubscribeCollection(ctx context.Context, coll store.CollectionRef, orderField string, fn func([]store.Document)) (store.Subscription, error) {
	return s.hub.subscribeCollection(ctx, coll, orderField, fn)
}

// WatchDocument delivers the document now and after every change
func (s *MemoryStore) WatchDocument(ctx context.Context, ref store.DocumentRef, fn func(store.Document, bool)) (store.Subscription, error) {
	return s.hub.watchDocument(ctx, ref, fn)
}

// Listeners reports the number of live subscriptions
func (s *MemoryStore) Listeners() int {
	return s.hub.listeners()
}

// Paths lists every stored document path, sorted
func (s *MemoryStore) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for coll, docs := range s.collections {
		for id := range docs {
			out = append(out, coll+"/"+id)
		}
	}
	slices.Sort(out)
	return out
}

func notFound(ref store.DocumentRef) error {
	return shared.NewDomainError(shared.ErrNotFound.Code, "document not found: "+ref.Path())
}

var _ store.DocumentStore = (*MemoryStore)(nil)
