// Package checklist runs the user's persistent to-buy list.
package checklist

import (
	"context"

	"github.com/pocketbook/backend/internal/application/dispatch"
	"github.com/pocketbook/backend/internal/application/view"
	"github.com/pocketbook/backend/internal/domain/checklist"
	"github.com/pocketbook/backend/internal/domain/shared"
	"github.com/pocketbook/backend/internal/domain/store"
	"go.uber.org/zap"
)

// Service is the checklist of one user
type Service struct {
	store      store.DocumentStore
	dispatcher *dispatch.Dispatcher
	items      *view.OrderedCollection[checklist.Item]
	logger     *zap.Logger
}

// NewService creates the checklist of the session's user
func NewService(session shared.Session, s store.DocumentStore, d *dispatch.Dispatcher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("user_id", session.UserID))
	return &Service{
		store:      s,
		dispatcher: d,
		items:      view.NewOrderedCollection[checklist.Item](s, store.PathsFor(session).List, store.OrderField, view.WithLogger(logger)),
		logger:     logger,
	}
}

// Start subscribes to the list
func (s *Service) Start(ctx context.Context) error {
	return s.items.Start(ctx)
}

// Release stops the subscription
func (s *Service) Release() {
	s.items.Release()
}

// Loading reports whether the list is still loading
func (s *Service) Loading() bool {
	return s.items.Loading()
}

// Items returns the list in order
func (s *Service) Items() ([]checklist.Item, error) {
	return s.items.Ready()
}

// OnChange registers fn for every delivery
func (s *Service) OnChange(fn func([]checklist.Item)) func() {
	return s.items.OnChange(fn)
}

// Add appends an unchecked item with no = len(items)
func (s *Service) Add(ctx context.Context, name string) (*dispatch.Submission, error) {
	items, err := s.items.Ready()
	if err != nil {
		return nil, err
	}
	item, err := checklist.New(len(items), name)
	if err != nil {
		return nil, err
	}
	return s.dispatcher.Submit(ctx, dispatch.Add(s.store, s.items.Collection(), item.Fields())), nil
}

// Rename changes the name of items[index]
func (s *Service) Rename(ctx context.Context, index int, name string) (*dispatch.Submission, error) {
	if name == "" {
		return nil, shared.NewValidationError("itemName", "Please enter item name")
	}
	item, err := s.at(index)
	if err != nil {
		return nil, err
	}
	return s.dispatcher.Submit(ctx, dispatch.Update(s.store, s.ref(item), store.Fields{"itemName": name})), nil
}

// Toggle flips completed on items[index], from the value in the snapshot
func (s *Service) Toggle(ctx context.Context, index int) (*dispatch.Submission, error) {
	item, err := s.at(index)
	if err != nil {
		return nil, err
	}
	return s.dispatcher.Submit(ctx, dispatch.Update(s.store, s.ref(item), store.Fields{"completed": !item.Completed})), nil
}

// Delete removes items[index]
func (s *Service) Delete(ctx context.Context, index int) (*dispatch.Submission, error) {
	item, err := s.at(index)
	if err != nil {
		return nil, err
	}
	return s.dispatcher.Submit(ctx, dispatch.Delete(s.store, s.ref(item))), nil
}

// Clear deletes every item, one delete each
func (s *Service) Clear(ctx context.Context) (*dispatch.Submission, error) {
	items, err := s.items.Ready()
	if err != nil {
		return nil, err
	}
	ops := make([]dispatch.Op, len(items))
	for i, it := range items {
		ops[i] = dispatch.Delete(s.store, s.ref(it))
	}
	return s.dispatcher.Submit(ctx, ops...), nil
}

func (s *Service) at(index int) (checklist.Item, error) {
	items, err := s.items.Ready()
	if err != nil {
		return checklist.Item{}, err
	}
	return checklist.At(items, index)
}

func (s *Service) ref(item checklist.Item) store.DocumentRef {
	return s.items.Collection().Doc(item.ID)
}
