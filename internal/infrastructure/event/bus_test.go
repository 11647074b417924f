package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/pocketbook/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEvent struct {
	shared.BaseDomainEvent
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "Document", "users/u1/list/a")}
}

type testHandler struct {
	eventTypes []string
	err        error
	mu         sync.Mutex
	handled    []shared.DomainEvent
}

func (h *testHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	require.NoError(t, bus.Start(context.Background()))

	changed := &testHandler{eventTypes: []string{"document.changed"}}
	all := &testHandler{}
	bus.Subscribe(changed)
	bus.Subscribe(all)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("document.changed"), newTestEvent("other")))
	assert.Equal(t, 1, changed.count())
	assert.Equal(t, 2, all.count())
}

func TestInMemoryEventBus_FailingHandlerDoesNotStopOthers(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	failing := &testHandler{eventTypes: []string{"x"}, err: errors.New("nope")}
	panicking := &shared.EventHandlerFunc{Types: []string{"x"}, Fn: func(ctx context.Context, e shared.DomainEvent) error {
		panic("boom")
	}}
	ok := &testHandler{eventTypes: []string{"x"}}
	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(ok)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("x")))
	assert.Equal(t, 1, failing.count())
	assert.Equal(t, 1, ok.count())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := &testHandler{eventTypes: []string{"x"}}
	bus.Subscribe(h)
	bus.Unsubscribe(h)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("x")))
	assert.Equal(t, 0, h.count())
}

func TestInMemoryEventBus_StopRejectsPublish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	require.NoError(t, bus.Stop(context.Background()))

	err := bus.Publish(context.Background(), newTestEvent("x"))
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	require.NoError(t, bus.Start(context.Background()))
	assert.NoError(t, bus.Publish(context.Background(), newTestEvent("x")))
}

func TestHandlerRegistry(t *testing.T) {
	r := NewHandlerRegistry()
	a := &testHandler{}
	b := &testHandler{}
	r.Register(a, "x", "y")
	r.Register(b)

	assert.Len(t, r.GetHandlers("x"), 2)
	assert.Len(t, r.GetHandlers("z"), 1)
	assert.Equal(t, 2, r.Len())

	r.Unregister(a)
	assert.Len(t, r.GetHandlers("x"), 1)
	assert.Equal(t, 1, r.Len())
}
