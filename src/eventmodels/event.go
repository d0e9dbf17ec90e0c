package eventmodels

import (
	"time"

	"github.com/google/uuid"
)

type EventName string

const (
	TickReceivedEvent    EventName = "TickReceived"
	CandleCompletedEvent EventName = "CandleCompleted"
	SignalGeneratedEvent EventName = "SignalGenerated"

	// Lifecycle events published back onto the bus by external execution
	// logic. The core only defines the names.
	SignalActivatedEvent EventName = "SignalActivated"
	SignalCompletedEvent EventName = "SignalCompleted"
	SignalStoppedEvent   EventName = "SignalStopped"
)

type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "LOW"
	case PriorityNormal:
		return "NORMAL"
	case PriorityHigh:
		return "HIGH"
	case PriorityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Event is an immutable message on the bus. Payloads must be fully
// self-describing: a subscriber never queries back into the core to act on
// an event.
type Event struct {
	ID        uuid.UUID
	Name      EventName
	Payload   interface{}
	Priority  Priority
	Timestamp time.Time
	Source    string
}

func NewEvent(name EventName, source string, payload interface{}) Event {
	return Event{
		ID:        uuid.New(),
		Name:      name,
		Payload:   payload,
		Priority:  PriorityNormal,
		Timestamp: time.Now().UTC(),
		Source:    source,
	}
}

func NewEventWithPriority(name EventName, source string, payload interface{}, priority Priority) Event {
	ev := NewEvent(name, source, payload)
	ev.Priority = priority
	return ev
}
