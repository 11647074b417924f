// Package account creates and removes the per-user document layout.
package account

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pocketbook/backend/internal/application/dispatch"
	"github.com/pocketbook/backend/internal/domain/budget"
	"github.com/pocketbook/backend/internal/domain/shared"
	"github.com/pocketbook/backend/internal/domain/store"
	"go.uber.org/zap"
)

// ProvisionRequest carries the sign-up details
type ProvisionRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// Service provisions and purges user documents
type Service struct {
	store      store.DocumentStore
	dispatcher *dispatch.Dispatcher
	validate   *validator.Validate
	logger     *zap.Logger
}

// NewService creates an account service
func NewService(s store.DocumentStore, d *dispatch.Dispatcher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:      s,
		dispatcher: d,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		logger:     logger,
	}
}

// Provision writes the profile and the empty headers and ledger sections a
// new user starts with
func (s *Service) Provision(ctx context.Context, session shared.Session, req ProvisionRequest) (*dispatch.Submission, error) {
	if !session.Valid() {
		return nil, shared.ErrUnauthorized
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.NewValidationError("name", "Please enter your name")
	}

	p := store.PathsFor(session)
	s.logger.Info("provisioning account", zap.String("user_id", session.UserID))
	return s.dispatcher.Submit(ctx,
		dispatch.Set(s.store, p.Profile, store.Fields{"name": req.Name, "phone": nil}),
		dispatch.Set(s.store, p.ExpressDoc, store.Fields{"date": nil, "time": nil}),
		dispatch.Set(s.store, p.Income, store.Fields{
			"no":    int(budget.Income),
			"title": budget.IncomeTitle,
			"date":  nil,
			"time":  nil,
			"data":  []any{},
		}),
		dispatch.Set(s.store, p.Expense, store.Fields{
			"no":    int(budget.Expense),
			"title": budget.ExpenseTitle,
			"data":  []any{},
		}),
		dispatch.Set(s.store, p.BalanceDoc, store.Fields{"date": nil, "time": nil}),
	), nil
}

// Purge deletes every document of the user, one delete each. Documents
// that fail to delete stay behind and are reported in the submission.
func (s *Service) Purge(ctx context.Context, session shared.Session) (*dispatch.Submission, error) {
	if !session.Valid() {
		return nil, shared.ErrUnauthorized
	}
	p := store.PathsFor(session)

	var ops []dispatch.Op
	for _, coll := range []store.CollectionRef{p.BalanceItems, p.ExpressItems, p.Receipts, p.List, p.Budget} {
		docs, err := s.store.Query(ctx, coll, store.OrderField)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", coll, err)
		}
		for _, d := range docs {
			ops = append(ops, dispatch.Delete(s.store, d.Ref))
		}
	}
	ops = append(ops,
		dispatch.Delete(s.store, p.BalanceDoc),
		dispatch.Delete(s.store, p.ExpressDoc),
		dispatch.Delete(s.store, p.Profile),
	)
	s.logger.Info("purging account",
		zap.String("user_id", session.UserID),
		zap.Int("documents", len(ops)),
	)
	return s.dispatcher.Submit(ctx, ops...), nil
}

// Exists reports whether the user has a profile document
func (s *Service) Exists(ctx context.Context, session shared.Session) (bool, error) {
	_, ok, err := s.store.Get(ctx, store.PathsFor(session).Profile)
	return ok, err
}
