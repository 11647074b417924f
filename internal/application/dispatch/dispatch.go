// Package dispatch submits store writes fire-and-forget and reports each
// document's outcome independently.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pocketbook/backend/internal/domain/shared"
	"github.com/pocketbook/backend/internal/domain/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Kind names the store primitive an Op performs
type Kind string

const (
	KindSet    Kind = "set"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// Op is one document write
type Op struct {
	Ref  store.DocumentRef
	Kind Kind
	Run  func(ctx context.Context) error
}

// Set replaces ref with fields
func Set(s store.DocumentStore, ref store.DocumentRef, fields store.Fields) Op {
	return Op{Ref: ref, Kind: KindSet, Run: func(ctx context.Context) error {
		return s.Set(ctx, ref, fields)
	}}
}

// Update merges fields into ref
func Update(s store.DocumentStore, ref store.DocumentRef, fields store.Fields) Op {
	return Op{Ref: ref, Kind: KindUpdate, Run: func(ctx context.Context) error {
		return s.Update(ctx, ref, fields)
	}}
}

// Delete removes ref
func Delete(s store.DocumentStore, ref store.DocumentRef) Op {
	return Op{Ref: ref, Kind: KindDelete, Run: func(ctx context.Context) error {
		return s.Delete(ctx, ref)
	}}
}

// Add creates a document with a fresh id inside coll. The id is chosen
// when the op is built so the outcome can name it.
func Add(s store.DocumentStore, coll store.CollectionRef, fields store.Fields) Op {
	return Set(s, coll.Doc(store.NewID()), fields)
}

// Outcome is the result of one op
type Outcome struct {
	Path string
	Op   Kind
	Err  error
}

// Submission tracks the ops handed to one Submit call
type Submission struct {
	ID uuid.UUID

	done     chan struct{}
	mu       sync.Mutex
	outcomes []Outcome
}

// Done is closed once every op has finished
func (s *Submission) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until every op finished or ctx ends. It returns the joined
// per-document errors; a ctx error only means the caller stopped waiting.
func (s *Submission) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err joins the errors of finished ops
func (s *Submission) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for _, o := range s.outcomes {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return errors.Join(errs...)
}

// Outcomes returns the results recorded so far in submission order
func (s *Submission) Outcomes() []Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Outcome, len(s.outcomes))
	copy(out, s.outcomes)
	return out
}

// Failed returns the paths whose write failed
func (s *Submission) Failed() []string {
	var paths []string
	for _, o := range s.Outcomes() {
		if o.Err != nil {
			paths = append(paths, o.Path)
		}
	}
	return paths
}

func (s *Submission) record(i int, o Outcome) {
	s.mu.Lock()
	s.outcomes[i] = o
	s.mu.Unlock()
}

// Dispatcher runs submitted ops concurrently, detached from the caller's
// cancellation so in-flight writes complete independently
type Dispatcher struct {
	logger   *zap.Logger
	tracer   trace.Tracer
	wg       sync.WaitGroup
	inFlight atomic.Int64
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithTracerProvider traces writes on tp instead of the global provider
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(d *Dispatcher) {
		d.tracer = tp.Tracer(tracerName)
	}
}

const tracerName = "github.com/pocketbook/backend/dispatch"

// New creates a dispatcher
func New(logger *zap.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{logger: logger, tracer: otel.Tracer(tracerName)}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Submit starts every op and returns immediately
func (d *Dispatcher) Submit(ctx context.Context, ops ...Op) *Submission {
	sub := &Submission{
		ID:       uuid.New(),
		done:     make(chan struct{}),
		outcomes: make([]Outcome, len(ops)),
	}
	for i, op := range ops {
		sub.outcomes[i] = Outcome{Path: op.Ref.Path(), Op: op.Kind}
	}
	if len(ops) == 0 {
		close(sub.done)
		return sub
	}

	detached := context.WithoutCancel(ctx)
	var pending sync.WaitGroup
	pending.Add(len(ops))
	d.wg.Add(len(ops))
	d.inFlight.Add(int64(len(ops)))
	for i, op := range ops {
		go func() {
			defer d.wg.Done()
			defer pending.Done()
			defer d.inFlight.Add(-1)
			err := d.run(detached, op)
			sub.record(i, Outcome{Path: op.Ref.Path(), Op: op.Kind, Err: err})
		}()
	}
	go func() {
		pending.Wait()
		close(sub.done)
	}()

	d.logger.Debug("writes submitted",
		zap.String("submission_id", sub.ID.String()),
		zap.Int("ops", len(ops)),
	)
	return sub
}

// run executes one op, converting a failure or panic into a BackendWriteError
func (d *Dispatcher) run(ctx context.Context, op Op) (err error) {
	ctx, span := d.tracer.Start(ctx, "document."+string(op.Kind),
		trace.WithAttributes(attribute.String("document.path", op.Ref.Path())))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("write panicked: %v", r)
		}
		if err != nil {
			err = &shared.BackendWriteError{Path: op.Ref.Path(), Op: string(op.Kind), Err: err}
			d.logger.Error("document write failed",
				zap.String("path", op.Ref.Path()),
				zap.String("op", string(op.Kind)),
				zap.Error(err),
			)
			span.RecordError(err)
			span.SetStatus(codes.Error, "write failed")
		}
	}()
	return op.Run(ctx)
}

// InFlight reports how many ops are still running
func (d *Dispatcher) InFlight() int64 {
	return d.inFlight.Load()
}

// Close waits for every in-flight write
func (d *Dispatcher) Close() {
	d.wg.Wait()
}
