package docstore

import (
	"context"
	"time"

	"github.com/pocketbook/backend/internal/domain/shared"
	"github.com/pocketbook/backend/internal/domain/store"
)

// Action is the kind of write a notice reports
type Action string

const (
	ActionSet    Action = "set"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// ChangeNotice announces that one document changed
type ChangeNotice struct {
	Collection string `json:"collection"`
	Document   string `json:"document"`
	Action     Action `json:"action"`
	Origin     string `json:"origin"`
	Timestamp  int64  `json:"timestamp"`
}

// Ref returns the changed document's reference
func (n ChangeNotice) Ref() store.DocumentRef {
	return store.CollectionRef{Path: n.Collection}.Doc(n.Document)
}

func newNotice(ref store.DocumentRef, action Action, origin string) ChangeNotice {
	return ChangeNotice{
		Collection: ref.Collection.Path,
		Document:   ref.ID,
		Action:     action,
		Origin:     origin,
		Timestamp:  time.Now().UnixNano(),
	}
}

// Notifier carries change notices between store instances that share a database
type Notifier interface {
	Publish(ctx context.Context, notice ChangeNotice) error
	// Listen registers fn for every notice; the returned func unregisters it
	Listen(fn func(ChangeNotice)) (cancel func())
}

// DocumentChangedEventType is the event type EventBusNotifier publishes
const DocumentChangedEventType = "document.changed"

// DocumentChangedEvent wraps a notice as a domain event
type DocumentChangedEvent struct {
	shared.BaseDomainEvent
	Notice ChangeNotice `json:"notice"`
}

// EventBusNotifier delivers notices through an in-process event bus
type EventBusNotifier struct {
	bus shared.EventBus
}

// NewEventBusNotifier creates a notifier on bus
func NewEventBusNotifier(bus shared.EventBus) *EventBusNotifier {
	return &EventBusNotifier{bus: bus}
}

// Publish sends the notice to every listener
func (n *EventBusNotifier) Publish(ctx context.Context, notice ChangeNotice) error {
	event := &DocumentChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(DocumentChangedEventType, "Document", notice.Ref().Path()),
		Notice:          notice,
	}
	return n.bus.Publish(ctx, event)
}

// Listen subscribes fn to document change events
func (n *EventBusNotifier) Listen(fn func(ChangeNotice)) func() {
	handler := &shared.EventHandlerFunc{
		Types: []string{DocumentChangedEventType},
		Fn: func(ctx context.Context, event shared.DomainEvent) error {
			if e, ok := event.(*DocumentChangedEvent); ok {
				fn(e.Notice)
			}
			return nil
		},
	}
	n.bus.Subscribe(handler)
	return func() { n.bus.Unsubscribe(handler) }
}

var _ Notifier = (*EventBusNotifier)(nil)
