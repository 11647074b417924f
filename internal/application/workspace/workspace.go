// Package workspace bundles the per-user services that share one session
// and keeps them open between requests.
package workspace

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pocketbook/backend/internal/application/balance"
	"github.com/pocketbook/backend/internal/application/budget"
	"github.com/pocketbook/backend/internal/application/checklist"
	"github.com/pocketbook/backend/internal/application/dispatch"
	"github.com/pocketbook/backend/internal/application/express"
	"github.com/pocketbook/backend/internal/domain/shared"
	"github.com/pocketbook/backend/internal/domain/store"
	"go.uber.org/zap"
)

// Deps are shared by every workspace
type Deps struct {
	Store      store.DocumentStore
	Dispatcher *dispatch.Dispatcher
	Stamper    *shared.Stamper
	Logger     *zap.Logger
}

// Workspace is one user's started services
type Workspace struct {
	Session   shared.Session
	Budget    *budget.Service
	Balance   *balance.Service
	Express   *express.Cart
	Receipts  *express.ReceiptArchive
	Checklist *checklist.Service
}

type startable interface {
	Start(ctx context.Context) error
	Release()
}

// Open builds the services for session and starts their subscriptions.
// Nothing stays subscribed when it fails.
func Open(ctx context.Context, session shared.Session, deps Deps) (*Workspace, error) {
	if !session.Valid() {
		return nil, shared.ErrUnauthorized
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	receipts := express.NewReceiptArchive(session, deps.Store, deps.Dispatcher,
		express.WithStamper(deps.Stamper), express.WithLogger(logger))
	w := &Workspace{
		Session: session,
		Budget: budget.NewService(session, deps.Store, deps.Dispatcher,
			budget.WithStamper(deps.Stamper), budget.WithLogger(logger)),
		Balance: balance.NewService(session, deps.Store, deps.Dispatcher,
			balance.WithStamper(deps.Stamper), balance.WithLogger(logger)),
		Express: express.NewCart(session, deps.Store, deps.Dispatcher, receipts,
			express.WithStamper(deps.Stamper), express.WithLogger(logger)),
		Receipts:  receipts,
		Checklist: checklist.NewService(session, deps.Store, deps.Dispatcher, logger),
	}

	var started []startable
	for _, svc := range w.services() {
		if err := svc.Start(ctx); err != nil {
			for _, s := range started {
				s.Release()
			}
			return nil, fmt.Errorf("open workspace for %s: %w", session.UserID, err)
		}
		started = append(started, svc)
	}
	return w, nil
}

func (w *Workspace) services() []startable {
	return []startable{w.Budget, w.Balance, w.Receipts, w.Express, w.Checklist}
}

// Release stops every subscription
func (w *Workspace) Release() {
	for _, svc := range w.services() {
		svc.Release()
	}
}

// Registry keeps one open workspace per user. With an idle timeout, a
// workspace nobody has asked for within it is released, unless a stream
// still holds it.
type Registry struct {
	deps Deps
	idle time.Duration
	now  func() time.Time

	mu   sync.Mutex
	open map[string]*entry
	stop chan struct{}
	once sync.Once
}

type entry struct {
	w        *Workspace
	lastUsed time.Time
	holds    int
}

// RegistryOption configures a Registry
type RegistryOption func(*Registry)

// WithIdleTimeout releases workspaces unused for d; zero keeps them until Drop or Close
func WithIdleTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		r.idle = d
	}
}

// NewRegistry creates an empty registry
func NewRegistry(deps Deps, opts ...RegistryOption) *Registry {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	r := &Registry{
		deps: deps,
		now:  time.Now,
		open: make(map[string]*entry),
		stop: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.idle > 0 {
		go r.sweep(r.idle / 2)
	}
	return r
}

// Get returns the user's workspace, opening it on first use
func (r *Registry) Get(ctx context.Context, session shared.Session) (*Workspace, error) {
	e, err := r.get(ctx, session)
	if err != nil {
		return nil, err
	}
	return e.w, nil
}

// Hold is Get for long-lived readers: the workspace is not evicted until
// the returned release is called.
func (r *Registry) Hold(ctx context.Context, session shared.Session) (*Workspace, func(), error) {
	e, err := r.get(ctx, session)
	if err != nil {
		return nil, nil, err
	}
	r.mu.Lock()
	e.holds++
	r.mu.Unlock()

	var once sync.Once
	return e.w, func() {
		once.Do(func() {
			r.mu.Lock()
			e.holds--
			e.lastUsed = r.now()
			r.mu.Unlock()
		})
	}, nil
}

func (r *Registry) get(ctx context.Context, session shared.Session) (*entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.open[session.UserID]; ok {
		e.lastUsed = r.now()
		return e, nil
	}
	w, err := Open(ctx, session, Deps{
		Store:      r.deps.Store,
		Dispatcher: r.deps.Dispatcher,
		Stamper:    r.deps.Stamper,
		Logger:     r.deps.Logger.With(zap.String("user_id", session.UserID)),
	})
	if err != nil {
		return nil, err
	}
	e := &entry{w: w, lastUsed: r.now()}
	r.open[session.UserID] = e
	r.deps.Logger.Debug("workspace opened", zap.String("user_id", session.UserID))
	return e, nil
}

// Drop releases the user's workspace if it is open
func (r *Registry) Drop(userID string) {
	r.mu.Lock()
	e, ok := r.open[userID]
	delete(r.open, userID)
	r.mu.Unlock()
	if ok {
		e.w.Release()
	}
}

// Len returns the number of open workspaces
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.open)
}

func (r *Registry) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.evictIdle()
		}
	}
}

// evictIdle releases unheld workspaces idle for longer than the timeout
func (r *Registry) evictIdle() int {
	r.mu.Lock()
	now := r.now()
	var idle []*Workspace
	for userID, e := range r.open {
		if e.holds == 0 && now.Sub(e.lastUsed) > r.idle {
			idle = append(idle, e.w)
			delete(r.open, userID)
		}
	}
	r.mu.Unlock()

	for _, w := range idle {
		w.Release()
		r.deps.Logger.Debug("idle workspace released", zap.String("user_id", w.Session.UserID))
	}
	return len(idle)
}

// Close stops the idle sweep and releases every workspace
func (r *Registry) Close() {
	r.once.Do(func() { close(r.stop) })
	r.mu.Lock()
	open := r.open
	r.open = make(map[string]*entry)
	r.mu.Unlock()
	for _, e := range open {
		e.w.Release()
	}
}
