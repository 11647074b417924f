// Package balance tracks spending against a starting balance the caller
// derives from the budget ledger.
package balance

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

// Service is the balance consumption cart of one user
type Service struct {
	list   *itemlist.List
	logger *zap.Logger
}

// Option configures a Service
type Option func(*config)

type config struct {
	stamper *shared.Stamper
	logger  *zap.Logger
}

// WithStamper sets the clock and layouts used for the header stamp
func WithStamper(s *shared.Stamper) Option {
	return func(c *config) { c.stamper = s }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}

// NewService creates the cart stored under the session's balance document
func NewService(session shared.Session, s store.DocumentStore, d *dispatch.Dispatcher, opts ...Option) *Service {
	c := config{stamper: shared.NewStamper(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&c)
	}
	logger := c.logger.With(zap.String("user_id", session.UserID))
	return &Service{
		list:   itemlist.New(s, d, c.stamper, store.PathsFor(session).BalanceDoc, logger),
		logger: logger,
	}
}

// Start subscribes to the items and the header
func (s *Service) Start(ctx context.Context) error {
	return s.list.Start(ctx)
}

// Release stops the subscriptions
func (s *Service) Release() {
	s.list.Release()
}

// Loading reports whether the items are still loading
func (s *Service) Loading() bool {
	return s.list.Loading()
}

// Items returns the consumption lines in order
func (s *Service) Items() ([]cart.Item, error) {
	return s.list.Items()
}

// Stamp returns when the cart was last modified
func (s *Service) Stamp() shared.Stamp {
	return s.list.Stamp()
}

// OnChange registers fn for every delivery of the items
func (s *Service) OnChange(fn func([]cart.Item)) func() {
	return s.list.OnChange(fn)
}

// Consume appends a line and stamps the header
func (s *Service) Consume(ctx context.Context, item cart.Item) (*dispatch.Submission, error) {
	return s.list.Add(ctx, item)
}

// Edit changes one line in place, keeping its sequence number
func (s *Service) Edit(ctx context.Context, index int, item cart.Item) (*dispatch.Submission, error) {
	return s.list.Edit(ctx, index, item)
}

// Remove deletes the line at index and stamps the header
func (s *Service) Remove(ctx context.Context, index int) (*dispatch.Submission, error) {
	return s.list.Delete(ctx, index)
}

// ClearAll deletes every line, one delete per line
func (s *Service) ClearAll(ctx context.Context) (*dispatch.Submission, error) {
	return s.list.Clear(ctx)
}

// Remaining is start - sum(qty * price)
func (s *Service) Remaining(start decimal.Decimal) (decimal.Decimal, error) {
	spent, err := s.list.Total()
	if err != nil {
		return decimal.Zero, err
	}
	return start.Sub(spent), nil
}

// Exceeded reports whether spending went past start
func (s *Service) Exceeded(start decimal.Decimal) (bool, error) {
	remaining, err := s.Remaining(start)
	if err != nil {
		return false, err
	}
	return remaining.IsNegative(), nil
}
