package express

import (
	"context"
	"slices"

	"github.com/pocketbook/backend/internal/application/dispatch"
	"github.com/pocketbook/backend/internal/application/view"
	"github.com/pocketbook/backend/internal/domain/cart"
	"github.com/pocketbook/backend/internal/domain/shared"
	"github.com/pocketbook/backend/internal/domain/store"
	"go.uber.org/zap"
)

// ReceiptArchive is the numbered history of archived express carts
type ReceiptArchive struct {
	store      store.DocumentStore
	dispatcher *dispatch.Dispatcher
	coll       store.CollectionRef
	history    *view.OrderedCollection[cart.Receipt]
	logger     *zap.Logger
}

// NewReceiptArchive creates the archive of the session's user
func NewReceiptArchive(session shared.Session, s store.DocumentStore, d *dispatch.Dispatcher, opts ...Option) *ReceiptArchive {
	c := newConfig(opts)
	coll := store.PathsFor(session).Receipts
	logger := c.logger.With(zap.String("user_id", session.UserID))
	return &ReceiptArchive{
		store:      s,
		dispatcher: d,
		coll:       coll,
		history:    view.NewOrderedCollection[cart.Receipt](s, coll, store.OrderField, view.Descending(), view.WithLogger(logger)),
		logger:     logger,
	}
}

// Start subscribes to the receipts
func (a *ReceiptArchive) Start(ctx context.Context) error {
	return a.history.Start(ctx)
}

// Release stops the subscription
func (a *ReceiptArchive) Release() {
	a.history.Release()
}

// Loading reports whether the receipts are still loading
func (a *ReceiptArchive) Loading() bool {
	return a.history.Loading()
}

// History returns the receipts newest first
func (a *ReceiptArchive) History() ([]cart.Receipt, error) {
	return a.history.Ready()
}

// OnChange registers fn for every delivery, newest first
func (a *ReceiptArchive) OnChange(fn func([]cart.Receipt)) func() {
	return a.history.OnChange(fn)
}

// byStorageOrder returns the receipts in ascending sequence order
func (a *ReceiptArchive) byStorageOrder() ([]cart.Receipt, error) {
	receipts, err := a.history.Ready()
	if err != nil {
		return nil, err
	}
	slices.Reverse(receipts)
	return receipts, nil
}

// Get reads one receipt for display
func (a *ReceiptArchive) Get(ctx context.Context, id string) (cart.Receipt, bool, error) {
	doc, ok, err := a.store.Get(ctx, a.coll.Doc(id))
	if err != nil || !ok {
		return cart.Receipt{}, false, err
	}
	var r cart.Receipt
	if err := store.Decode(doc.Fields, &r); err != nil {
		return cart.Receipt{}, false, err
	}
	r.ID = id
	return r, true, nil
}

// Search filters the history by a case-insensitive substring of field
func (a *ReceiptArchive) Search(field cart.SearchField, text string) ([]cart.Receipt, error) {
	receipts, err := a.history.Ready()
	if err != nil {
		return nil, err
	}
	return cart.Search(receipts, field, text), nil
}

// Delete removes one receipt. The others keep their numbers; gaps close at the next archive.
func (a *ReceiptArchive) Delete(ctx context.Context, id string) (*dispatch.Submission, error) {
	if id == "" {
		return nil, shared.NewValidationError("id", "Receipt id is required")
	}
	return a.dispatcher.Submit(ctx, dispatch.Delete(a.store, a.coll.Doc(id))), nil
}

// Clear deletes every materialized receipt, one delete each
func (a *ReceiptArchive) Clear(ctx context.Context) (*dispatch.Submission, error) {
	receipts, err := a.history.Ready()
	if err != nil {
		return nil, err
	}
	ops := make([]dispatch.Op, len(receipts))
	for i, r := range receipts {
		ops[i] = dispatch.Delete(a.store, a.coll.Doc(r.ID))
	}
	return a.dispatcher.Submit(ctx, ops...), nil
}

// appendOps renumbers the current receipts 0..n-1 and adds r as number n
func (a *ReceiptArchive) appendOps(receipts []cart.Receipt, r cart.Receipt) ([]dispatch.Op, error) {
	fields, err := store.Encode(r)
	if err != nil {
		return nil, err
	}
	plan := cart.RenumberPlan(receipts)
	ops := make([]dispatch.Op, 0, len(plan)+1)
	for _, p := range plan {
		ops = append(ops, dispatch.Update(a.store, a.coll.Doc(p.ID), store.Fields{store.OrderField: p.No}))
	}
	return append(ops, dispatch.Add(a.store, a.coll, fields)), nil
}
