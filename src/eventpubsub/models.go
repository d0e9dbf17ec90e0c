package eventpubsub

import (
	"time"

	"github.com/google/uuid"

	"github.com/avinashpai/market-signals/src/eventmodels"
)

// Handler is implemented by every subscriber. Dispatch is a direct call
// through this interface rather than reflection.
type Handler interface {
	Handle(event eventmodels.Event) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(event eventmodels.Event) error

func (f HandlerFunc) Handle(event eventmodels.Event) error {
	return f(event)
}

// FilterFunc is an optional per-subscription predicate. A subscription
// whose filter returns false does not receive the event.
type FilterFunc func(event eventmodels.Event) bool

// Subscription is a registered interest in one event name. Read-mostly.
type Subscription struct {
	ID           uuid.UUID
	SubscriberID string
	EventName    eventmodels.EventName
	Priority     eventmodels.Priority
	handler      Handler
	filter       FilterFunc
	seq          uint64
}

type HandlerError struct {
	SubscriberID string
	Err          error
}

// DispatchResult summarizes one publish: how many subscriptions matched and
// how each handler fared. Handler failures never abort sibling handlers.
type DispatchResult struct {
	EventID   uuid.UUID
	Matched   int
	Succeeded int
	Failed    int
	Errors    []HandlerError
}

// DeadLetter records a failed handler execution together with the offending
// event, for inspection or replay.
type DeadLetter struct {
	Event        eventmodels.Event
	SubscriberID string
	Err          error
	Timestamp    time.Time
}

type Stats struct {
	EventsPublished  uint64
	EventsProcessed  uint64
	HandlersExecuted uint64
	HandlersFailed   uint64
}
