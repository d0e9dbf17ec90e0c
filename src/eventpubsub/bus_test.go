package eventpubsub

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avinashpai/market-signals/src/eventmodels"
)

func TestPublish(t *testing.T) {
	t.Run("fan-out with one failing handler isolates the failure", func(t *testing.T) {
		bus := NewBus(BusConfig{})

		var succeeded uint64
		okHandler := HandlerFunc(func(event eventmodels.Event) error {
			atomic.AddUint64(&succeeded, 1)
			return nil
		})

		for i := 0; i < 4; i++ {
			bus.Subscribe(eventmodels.SignalGeneratedEvent, fmt.Sprintf("ok-%d", i), okHandler)
		}

		bus.Subscribe(eventmodels.SignalGeneratedEvent, "always-fails", HandlerFunc(func(event eventmodels.Event) error {
			return fmt.Errorf("boom")
		}))

		result := bus.Publish(eventmodels.NewEvent(eventmodels.SignalGeneratedEvent, "test", nil))

		assert.Equal(t, 5, result.Matched)
		assert.Equal(t, 4, result.Succeeded)
		assert.Equal(t, 1, result.Failed)
		assert.Equal(t, uint64(4), atomic.LoadUint64(&succeeded))

		stats := bus.GetStats()
		assert.Equal(t, uint64(5), stats.HandlersExecuted)
		assert.Equal(t, uint64(1), stats.HandlersFailed)
		assert.Equal(t, uint64(1), stats.EventsPublished)
		assert.Equal(t, uint64(1), stats.EventsProcessed)

		letters := bus.GetDeadLetters(0)
		require.Len(t, letters, 1)
		assert.Equal(t, "always-fails", letters[0].SubscriberID)
		assert.Equal(t, eventmodels.SignalGeneratedEvent, letters[0].Event.Name)
	})

	t.Run("handler panic is captured as a dead letter", func(t *testing.T) {
		bus := NewBus(BusConfig{})

		bus.Subscribe(eventmodels.CandleCompletedEvent, "panics", HandlerFunc(func(event eventmodels.Event) error {
			panic("unexpected payload")
		}))

		result := bus.Publish(eventmodels.NewEvent(eventmodels.CandleCompletedEvent, "test", nil))

		assert.Equal(t, 1, result.Failed)
		require.Len(t, bus.GetDeadLetters(0), 1)
	})

	t.Run("filter predicate excludes non-matching events", func(t *testing.T) {
		bus := NewBus(BusConfig{})

		var received uint64
		bus.Subscribe(eventmodels.CandleCompletedEvent, "sbin-only", HandlerFunc(func(event eventmodels.Event) error {
			atomic.AddUint64(&received, 1)
			return nil
		}), WithFilter(func(event eventmodels.Event) bool {
			candle, ok := event.Payload.(eventmodels.Candle)
			return ok && candle.Symbol == "SBIN"
		}))

		bus.Publish(eventmodels.NewEvent(eventmodels.CandleCompletedEvent, "test", eventmodels.Candle{Symbol: "TCS"}))
		result := bus.Publish(eventmodels.NewEvent(eventmodels.CandleCompletedEvent, "test", eventmodels.Candle{Symbol: "SBIN"}))

		assert.Equal(t, 1, result.Matched)
		assert.Equal(t, uint64(1), atomic.LoadUint64(&received))
	})

	t.Run("no subscribers still records history", func(t *testing.T) {
		bus := NewBus(BusConfig{})

		result := bus.Publish(eventmodels.NewEvent(eventmodels.TickReceivedEvent, "test", nil))

		assert.Equal(t, 0, result.Matched)
		assert.Len(t, bus.GetHistory("", 0), 1)
	})

	t.Run("handler exceeding the deadline is recorded as failed", func(t *testing.T) {
		bus := NewBus(BusConfig{HandlerTimeout: 10 * time.Millisecond})

		bus.Subscribe(eventmodels.SignalGeneratedEvent, "slow", HandlerFunc(func(event eventmodels.Event) error {
			time.Sleep(200 * time.Millisecond)
			return nil
		}))

		result := bus.Publish(eventmodels.NewEvent(eventmodels.SignalGeneratedEvent, "test", nil))

		assert.Equal(t, 1, result.Failed)
		require.Len(t, bus.GetDeadLetters(0), 1)
		assert.Contains(t, bus.GetDeadLetters(0)[0].Err.Error(), "deadline")
	})
}

func TestSubscriptionOrdering(t *testing.T) {
	t.Run("matching orders by priority then registration", func(t *testing.T) {
		bus := NewBus(BusConfig{})

		noop := HandlerFunc(func(event eventmodels.Event) error { return nil })

		bus.Subscribe(eventmodels.SignalGeneratedEvent, "normal-1", noop)
		bus.Subscribe(eventmodels.SignalGeneratedEvent, "critical", noop, WithPriority(eventmodels.PriorityCritical))
		bus.Subscribe(eventmodels.SignalGeneratedEvent, "normal-2", noop)
		bus.Subscribe(eventmodels.SignalGeneratedEvent, "high", noop, WithPriority(eventmodels.PriorityHigh))
		bus.Subscribe(eventmodels.SignalGeneratedEvent, "low", noop, WithPriority(eventmodels.PriorityLow))

		matched := bus.matching(eventmodels.NewEvent(eventmodels.SignalGeneratedEvent, "test", nil))

		require.Len(t, matched, 5)

		var order []string
		for _, sub := range matched {
			order = append(order, sub.SubscriberID)
		}

		assert.Equal(t, []string{"critical", "high", "normal-1", "normal-2", "low"}, order)
	})
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus(BusConfig{})

	var received uint64
	sub := bus.Subscribe(eventmodels.SignalGeneratedEvent, "temp", HandlerFunc(func(event eventmodels.Event) error {
		atomic.AddUint64(&received, 1)
		return nil
	}))

	bus.Publish(eventmodels.NewEvent(eventmodels.SignalGeneratedEvent, "test", nil))
	bus.Unsubscribe(sub)
	bus.Publish(eventmodels.NewEvent(eventmodels.SignalGeneratedEvent, "test", nil))

	assert.Equal(t, uint64(1), atomic.LoadUint64(&received))
}

func TestGetHistory(t *testing.T) {
	t.Run("history is bounded and oldest is overwritten", func(t *testing.T) {
		bus := NewBus(BusConfig{HistorySize: 3})

		for i := 0; i < 5; i++ {
			bus.Publish(eventmodels.NewEvent(eventmodels.TickReceivedEvent, "test", i))
		}

		history := bus.GetHistory("", 0)
		require.Len(t, history, 3)
		assert.Equal(t, 2, history[0].Payload)
		assert.Equal(t, 4, history[2].Payload)
	})

	t.Run("history filters by event name and honors limit", func(t *testing.T) {
		bus := NewBus(BusConfig{})

		bus.Publish(eventmodels.NewEvent(eventmodels.TickReceivedEvent, "test", nil))
		bus.Publish(eventmodels.NewEvent(eventmodels.CandleCompletedEvent, "test", 1))
		bus.Publish(eventmodels.NewEvent(eventmodels.CandleCompletedEvent, "test", 2))

		history := bus.GetHistory(eventmodels.CandleCompletedEvent, 1)
		require.Len(t, history, 1)
		assert.Equal(t, 2, history[0].Payload)
	})
}
