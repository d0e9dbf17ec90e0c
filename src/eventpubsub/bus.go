package eventpubsub

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/avinashpai/market-signals/src/eventmodels"
)

const (
	DefaultHistorySize    = 1000
	DefaultDeadLetterSize = 500
)

type BusConfig struct {
	HistorySize    int
	DeadLetterSize int

	// HandlerTimeout bounds each handler invocation. Zero disables the
	// deadline. A handler that overruns is recorded as failed; its
	// goroutine is abandoned rather than interrupted.
	HandlerTimeout time.Duration
}

// Bus is an explicit publish/subscribe hub. It is passed by reference to
// every component at construction; there is no package-level instance.
//
// Publish launches one goroutine per matching subscription and waits for
// all of them, so a slow or failing handler degrades only its own
// subscriber. All counters are incremented atomically.
type Bus struct {
	mu   sync.RWMutex
	subs map[eventmodels.EventName][]*Subscription
	seq  uint64

	history     *historyRing
	deadLetters *deadLetterSink
	timeout     time.Duration

	published        uint64
	processed        uint64
	handlersExecuted uint64
	handlersFailed   uint64
}

func NewBus(cfg BusConfig) *Bus {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultHistorySize
	}

	if cfg.DeadLetterSize <= 0 {
		cfg.DeadLetterSize = DefaultDeadLetterSize
	}

	return &Bus{
		subs:        make(map[eventmodels.EventName][]*Subscription),
		history:     newHistoryRing(cfg.HistorySize),
		deadLetters: newDeadLetterSink(cfg.DeadLetterSize),
		timeout:     cfg.HandlerTimeout,
	}
}

type SubscribeOption func(*Subscription)

func WithPriority(priority eventmodels.Priority) SubscribeOption {
	return func(s *Subscription) {
		s.Priority = priority
	}
}

func WithFilter(filter FilterFunc) SubscribeOption {
	return func(s *Subscription) {
		s.filter = filter
	}
}

func (b *Bus) Subscribe(name eventmodels.EventName, subscriberID string, handler Handler, opts ...SubscribeOption) *Subscription {
	sub := &Subscription{
		ID:           uuid.New(),
		SubscriberID: subscriberID,
		EventName:    name,
		Priority:     eventmodels.PriorityNormal,
		handler:      handler,
		seq:          atomic.AddUint64(&b.seq, 1),
	}

	for _, opt := range opts {
		opt(sub)
	}

	b.mu.Lock()
	b.subs[name] = append(b.subs[name], sub)
	b.mu.Unlock()

	log.Infof("[%v] subscribed to %s with priority %v", subscriberID, name, sub.Priority)

	return sub
}

func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[sub.EventName]
	for i, s := range subs {
		if s.ID == sub.ID {
			b.subs[sub.EventName] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Publish dispatches event to every matching subscription concurrently and
// waits for all handlers to finish. Handler errors are collected into the
// dead-letter sink; they never propagate to the publisher or to sibling
// handlers, and no retry is attempted.
func (b *Bus) Publish(event eventmodels.Event) DispatchResult {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	atomic.AddUint64(&b.published, 1)
	b.history.append(event)

	matched := b.matching(event)

	result := DispatchResult{
		EventID: event.ID,
		Matched: len(matched),
	}

	var wg sync.WaitGroup
	var resultMu sync.Mutex

	for _, sub := range matched {
		wg.Add(1)

		go func(sub *Subscription) {
			defer wg.Done()

			atomic.AddUint64(&b.handlersExecuted, 1)

			err := b.runHandler(sub, event)

			resultMu.Lock()
			defer resultMu.Unlock()

			if err != nil {
				atomic.AddUint64(&b.handlersFailed, 1)
				b.deadLetters.add(event, sub.SubscriberID, err)
				log.Errorf("[%v] handler failed for %s: %v", sub.SubscriberID, event.Name, err)

				result.Failed++
				result.Errors = append(result.Errors, HandlerError{SubscriberID: sub.SubscriberID, Err: err})
				return
			}

			result.Succeeded++
		}(sub)
	}

	wg.Wait()

	atomic.AddUint64(&b.processed, 1)

	return result
}

// matching snapshots the subscriptions for the event name, applies filter
// predicates, and orders by priority (CRITICAL first), stable by
// registration order within a tier.
func (b *Bus) matching(event eventmodels.Event) []*Subscription {
	b.mu.RLock()
	subs := b.subs[event.Name]
	matched := make([]*Subscription, 0, len(subs))
	for _, sub := range subs {
		if sub.filter != nil && !sub.filter(event) {
			continue
		}

		matched = append(matched, sub)
	}
	b.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Priority != matched[j].Priority {
			return matched[i].Priority > matched[j].Priority
		}

		return matched[i].seq < matched[j].seq
	})

	return matched
}

func (b *Bus) runHandler(sub *Subscription, event eventmodels.Event) (err error) {
	invoke := func() (handlerErr error) {
		defer func() {
			if r := recover(); r != nil {
				handlerErr = fmt.Errorf("handler panic: %v", r)
			}
		}()

		return sub.handler.Handle(event)
	}

	if b.timeout <= 0 {
		return invoke()
	}

	done := make(chan error, 1)
	go func() {
		done <- invoke()
	}()

	select {
	case err = <-done:
		return err
	case <-time.After(b.timeout):
		return fmt.Errorf("handler exceeded deadline of %v", b.timeout)
	}
}

func (b *Bus) GetStats() Stats {
	return Stats{
		EventsPublished:  atomic.LoadUint64(&b.published),
		EventsProcessed:  atomic.LoadUint64(&b.processed),
		HandlersExecuted: atomic.LoadUint64(&b.handlersExecuted),
		HandlersFailed:   atomic.LoadUint64(&b.handlersFailed),
	}
}

// GetHistory returns up to limit retained events, oldest first. An empty
// name matches all events.
func (b *Bus) GetHistory(name eventmodels.EventName, limit int) []eventmodels.Event {
	return b.history.snapshot(name, limit)
}

func (b *Bus) GetDeadLetters(limit int) []DeadLetter {
	return b.deadLetters.snapshot(limit)
}
