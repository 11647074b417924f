package express

import (
	"context"

	"github.com/pocketbook/backend/internal/application/dispatch"
	"github.com/pocketbook/backend/internal/application/itemlist"
	"github.com/pocketbook/backend/internal/domain/cart"
	"github.com/pocketbook/backend/internal/domain/shared"
	"github.com/pocketbook/backend/internal/domain/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Cart is the signed-in user's in-progress purchase
type Cart struct {
	list       *itemlist.List
	archive    *ReceiptArchive
	dispatcher *dispatch.Dispatcher
	stamper    *shared.Stamper
	logger     *zap.Logger
}

// NewCart creates the express cart; archive receives archived carts
func NewCart(session shared.Session, s store.DocumentStore, d *dispatch.Dispatcher, archive *ReceiptArchive, opts ...Option) *Cart {
	c := newConfig(opts)
	logger := c.logger.With(zap.String("user_id", session.UserID))
	return &Cart{
		list:       itemlist.New(s, d, c.stamper, store.PathsFor(session).ExpressDoc, logger),
		archive:    archive,
		dispatcher: d,
		stamper:    c.stamper,
		logger:     logger,
	}
}

// Start subscribes to the items and the header
func (c *Cart) Start(ctx context.Context) error {
	return c.list.Start(ctx)
}

// Release stops the subscriptions
func (c *Cart) Release() {
	c.list.Release()
}

// Loading reports whether the items are still loading
func (c *Cart) Loading() bool {
	return c.list.Loading()
}

// Items returns the cart lines in order
func (c *Cart) Items() ([]cart.Item, error) {
	return c.list.Items()
}

// Stamp returns when the cart was last modified
func (c *Cart) Stamp() shared.Stamp {
	return c.list.Stamp()
}

// Total is sum(qty * price)
func (c *Cart) Total() (decimal.Decimal, error) {
	return c.list.Total()
}

// OnChange registers fn for every delivery of the items
func (c *Cart) OnChange(fn func([]cart.Item)) func() {
	return c.list.OnChange(fn)
}

// Add appends a line and stamps the header
func (c *Cart) Add(ctx context.Context, item cart.Item) (*dispatch.Submission, error) {
	return c.list.Add(ctx, item)
}

// Edit changes one line in place
func (c *Cart) Edit(ctx context.Context, index int, item cart.Item) (*dispatch.Submission, error) {
	return c.list.Edit(ctx, index, item)
}

// Delete removes the line at index
func (c *Cart) Delete(ctx context.Context, index int) (*dispatch.Submission, error) {
	return c.list.Delete(ctx, index)
}

// Clear deletes every line, one delete per line
func (c *Cart) Clear(ctx context.Context) (*dispatch.Submission, error) {
	return c.list.Clear(ctx)
}

// Archive snapshots the cart as the newest receipt. Existing receipts are
// renumbered 0..n-1 by position and the new one takes n. The cart itself
// is left as it is. A cart totalling 0.00 is refused.
func (c *Cart) Archive(ctx context.Context) (*dispatch.Submission, error) {
	items, err := c.list.Items()
	if err != nil {
		return nil, err
	}
	receipts, err := c.archive.byStorageOrder()
	if err != nil {
		return nil, err
	}
	receipt, err := cart.NewReceipt(len(receipts), items, c.stamper.Now())
	if err != nil {
		return nil, err
	}
	ops, err := c.archive.appendOps(receipts, receipt)
	if err != nil {
		return nil, err
	}
	c.logger.Info("archiving express cart",
		zap.Int("receipt_no", receipt.No),
		zap.String("total_price", receipt.TotalPrice),
		zap.Int("items", len(items)),
	)
	return c.dispatcher.Submit(ctx, ops...), nil
}
