// Package budget runs the income/expense ledger over its two sibling documents.
package budget

import (
	"context"

	"github.com/pocketbook/backend/internal/application/dispatch"
	"github.com/pocketbook/backend/internal/application/view"
	"github.com/pocketbook/backend/internal/domain/budget"
	"github.com/pocketbook/backend/internal/domain/shared"
	"github.com/pocketbook/backend/internal/domain/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service is the ledger of one user
type Service struct {
	store      store.DocumentStore
	dispatcher *dispatch.Dispatcher
	stamper    *shared.Stamper
	paths      store.UserPaths
	sections   *view.OrderedCollection[budget.Section]
	logger     *zap.Logger
}

// Option configures a Service
type Option func(*Service)

// WithStamper sets the clock and layouts used for stamps
func WithStamper(s *shared.Stamper) Option {
	return func(svc *Service) { svc.stamper = s }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(svc *Service) { svc.logger = l }
}

// NewService creates the ledger of the session's user
func NewService(session shared.Session, s store.DocumentStore, d *dispatch.Dispatcher, opts ...Option) *Service {
	svc := &Service{
		store:      s,
		dispatcher: d,
		stamper:    shared.NewStamper(),
		paths:      store.PathsFor(session),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	svc.logger = svc.logger.With(zap.String("user_id", session.UserID))
	svc.sections = view.NewOrderedCollection[budget.Section](s, svc.paths.Budget, store.OrderField, view.WithLogger(svc.logger))
	return svc
}

// Start subscribes to the two section documents
func (s *Service) Start(ctx context.Context) error {
	return s.sections.Start(ctx)
}

// Release stops the subscription
func (s *Service) Release() {
	s.sections.Release()
}

// Loading reports whether the sections are still loading
func (s *Service) Loading() bool {
	return s.sections.Loading()
}

// Ledger returns the current (income, expense) pair
func (s *Service) Ledger() (budget.Ledger, error) {
	sections, err := s.sections.Ready()
	if err != nil {
		return budget.Ledger{}, err
	}
	return budget.NewLedger(sections)
}

// Balance is sum(income) - sum(expense) of the current snapshot
func (s *Service) Balance() (decimal.Decimal, error) {
	l, err := s.Ledger()
	if err != nil {
		return decimal.Zero, err
	}
	return l.Balance(), nil
}

// Stamp is the ledger's last-modified stamp, kept on the income document
func (s *Service) Stamp() (shared.Stamp, error) {
	l, err := s.Ledger()
	if err != nil {
		return shared.Stamp{}, err
	}
	return l.Section(budget.Income).Stamp(), nil
}

// OnChange registers fn for every delivery that forms a valid ledger
func (s *Service) OnChange(fn func(budget.Ledger)) func() {
	return s.sections.OnChange(func(sections []budget.Section) {
		l, err := budget.NewLedger(sections)
		if err != nil {
			s.logger.Warn("budget delivery skipped", zap.Error(err))
			return
		}
		fn(l)
	})
}

func (s *Service) ref(section budget.SectionIndex) store.DocumentRef {
	if section == budget.Expense {
		return s.paths.Expense
	}
	return s.paths.Income
}

// ops turns changes into whole-array updates. stamped documents also get a
// fresh date/time; a stamped document with no change gets a stamp-only update.
func (s *Service) ops(changes []budget.Change, stamped ...budget.SectionIndex) []dispatch.Op {
	stamp := s.stamper.Now()
	fields := make(map[budget.SectionIndex]store.Fields)
	var order []budget.SectionIndex
	touch := func(section budget.SectionIndex) store.Fields {
		f, ok := fields[section]
		if !ok {
			f = store.Fields{}
			fields[section] = f
			order = append(order, section)
		}
		return f
	}
	for _, c := range changes {
		entries := c.Entries
		if entries == nil {
			entries = []budget.Entry{}
		}
		touch(c.Section)["data"] = entries
	}
	for _, section := range stamped {
		f := touch(section)
		f["date"] = stamp.Date
		f["time"] = stamp.Time
	}
	ops := make([]dispatch.Op, len(order))
	for i, section := range order {
		ops[i] = dispatch.Update(s.store, s.ref(section), fields[section])
	}
	return ops
}

// Add appends entry to the target section. The target document is stamped,
// and so is the income document, which holds the ledger's stamp.
func (s *Service) Add(ctx context.Context, target budget.SectionIndex, entry budget.Entry) (*dispatch.Submission, error) {
	l, err := s.Ledger()
	if err != nil {
		return nil, err
	}
	change, err := l.AddEntry(target, entry)
	if err != nil {
		return nil, err
	}
	stamped := []budget.SectionIndex{target}
	if target != budget.Income {
		stamped = append(stamped, budget.Income)
	}
	s.logger.Debug("adding budget entry", zap.String("section", target.Title()), zap.String("name", entry.Name))
	return s.dispatcher.Submit(ctx, s.ops([]budget.Change{change}, stamped...)...), nil
}

// Edit replaces entries[index] of from. When to differs the entry moves to
// the end of to. Every affected document is rewritten whole and the income
// document is stamped.
func (s *Service) Edit(ctx context.Context, from budget.SectionIndex, index int, entry budget.Entry, to budget.SectionIndex) (*dispatch.Submission, error) {
	l, err := s.Ledger()
	if err != nil {
		return nil, err
	}
	changes, err := l.EditEntry(from, index, entry, to)
	if err != nil {
		return nil, err
	}
	if from != to {
		s.logger.Debug("moving budget entry",
			zap.String("from", from.Title()),
			zap.String("to", to.Title()),
			zap.Int("index", index),
		)
	}
	return s.dispatcher.Submit(ctx, s.ops(changes, budget.Income)...), nil
}

// Delete splices entries[index] out of section and stamps the income document
func (s *Service) Delete(ctx context.Context, section budget.SectionIndex, index int) (*dispatch.Submission, error) {
	l, err := s.Ledger()
	if err != nil {
		return nil, err
	}
	change, err := l.DeleteEntry(section, index)
	if err != nil {
		return nil, err
	}
	return s.dispatcher.Submit(ctx, s.ops([]budget.Change{change}, budget.Income)...), nil
}

// Clear empties both sections with one independent update each
func (s *Service) Clear(ctx context.Context) (*dispatch.Submission, error) {
	sections, err := s.sections.Ready()
	if err != nil {
		return nil, err
	}
	ops := make([]dispatch.Op, len(sections))
	for i, sec := range sections {
		ops[i] = dispatch.Update(s.store, s.paths.Budget.Doc(sec.ID), store.Fields{"data": []budget.Entry{}})
	}
	return s.dispatcher.Submit(ctx, ops...), nil
}
