// Package itemlist implements the cart shape shared by the balance and
// express carts: a header document carrying the last-modified stamp and a
// sub-collection holding one document per line item.
package itemlist

import (
	"context"

	"github.com/pocketbook/backend/internal/application/dispatch"
	"github.com/pocketbook/backend/internal/application/view"
	"github.com/pocketbook/backend/internal/domain/cart"
	"github.com/pocketbook/backend/internal/domain/shared"
	"github.com/pocketbook/backend/internal/domain/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// List is one header-plus-items cart
type List struct {
	store      store.DocumentStore
	dispatcher *dispatch.Dispatcher
	stamper    *shared.Stamper
	header     store.DocumentRef
	items      *view.OrderedCollection[cart.Item]
	headerView *view.Document[view.Header]
	logger     *zap.Logger
}

// New creates an unstarted list
func New(
	s store.DocumentStore,
	d *dispatch.Dispatcher,
	stamper *shared.Stamper,
	header store.DocumentRef,
	logger *zap.Logger,
) *List {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("cart", header.Path()))
	return &List{
		store:      s,
		dispatcher: d,
		stamper:    stamper,
		header:     header,
		items:      view.NewOrderedCollection[cart.Item](s, header.Sub(store.ItemsCollection), store.OrderField, view.WithLogger(logger)),
		headerView: view.NewDocument[view.Header](s, header, view.WithLogger(logger)),
		logger:     logger,
	}
}

// Start subscribes to the items and the header
func (l *List) Start(ctx context.Context) error {
	if err := l.items.Start(ctx); err != nil {
		return err
	}
	if err := l.headerView.Start(ctx); err != nil {
		l.items.Release()
		return err
	}
	return nil
}

// Release stops both subscriptions
func (l *List) Release() {
	l.items.Release()
	l.headerView.Release()
}

// Loading reports whether the items have not been delivered yet
func (l *List) Loading() bool {
	return l.items.Loading()
}

// Items returns the materialized items in order
func (l *List) Items() ([]cart.Item, error) {
	return l.items.Ready()
}

// Stamp returns the header's last-modified stamp
func (l *List) Stamp() shared.Stamp {
	h, _ := l.headerView.Get()
	return h.Stamp()
}

// Total is sum(qty * price) over the materialized items
func (l *List) Total() (decimal.Decimal, error) {
	items, err := l.items.Ready()
	if err != nil {
		return decimal.Zero, err
	}
	return cart.Total(items), nil
}

// OnChange registers fn for every items delivery
func (l *List) OnChange(fn func([]cart.Item)) func() {
	return l.items.OnChange(fn)
}

func (l *List) stampOp() dispatch.Op {
	s := l.stamper.Now()
	return dispatch.Set(l.store, l.header, store.Fields{"date": s.Date, "time": s.Time})
}

// Add stamps the header and stores item with no = len(items)
func (l *List) Add(ctx context.Context, item cart.Item) (*dispatch.Submission, error) {
	if err := item.Validate(); err != nil {
		return nil, err
	}
	items, err := l.items.Ready()
	if err != nil {
		return nil, err
	}
	item.No = len(items)
	l.logger.Debug("adding item", zap.Int("no", item.No), zap.String("item", item.ItemName))
	return l.dispatcher.Submit(ctx,
		l.stampOp(),
		dispatch.Add(l.store, l.items.Collection(), item.Fields()),
	), nil
}

// Edit replaces name, quantity and price of items[index], keeping its no
func (l *List) Edit(ctx context.Context, index int, item cart.Item) (*dispatch.Submission, error) {
	if err := item.Validate(); err != nil {
		return nil, err
	}
	current, err := l.at(index)
	if err != nil {
		return nil, err
	}
	return l.dispatcher.Submit(ctx,
		l.stampOp(),
		dispatch.Update(l.store, l.items.Collection().Doc(current.ID), store.Fields{
			"itemName": item.ItemName,
			"qty":      item.Qty,
			"price":    item.Price,
		}),
	), nil
}

// Delete stamps the header and deletes the document at items[index]
func (l *List) Delete(ctx context.Context, index int) (*dispatch.Submission, error) {
	current, err := l.at(index)
	if err != nil {
		return nil, err
	}
	return l.dispatcher.Submit(ctx,
		l.stampOp(),
		dispatch.Delete(l.store, l.items.Collection().Doc(current.ID)),
	), nil
}

// Clear deletes every materialized item with one delete each.
// A failed delete leaves that item in place; the rest still go.
func (l *List) Clear(ctx context.Context) (*dispatch.Submission, error) {
	items, err := l.items.Ready()
	if err != nil {
		return nil, err
	}
	ops := make([]dispatch.Op, len(items))
	for i, it := range items {
		ops[i] = dispatch.Delete(l.store, l.items.Collection().Doc(it.ID))
	}
	return l.dispatcher.Submit(ctx, ops...), nil
}

// at resolves index against the current snapshot
func (l *List) at(index int) (cart.Item, error) {
	items, err := l.items.Ready()
	if err != nil {
		return cart.Item{}, err
	}
	if err := cart.CheckIndex(items, index); err != nil {
		return cart.Item{}, err
	}
	return items[index], nil
}
