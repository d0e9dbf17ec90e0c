package eventproducers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avinashpai/market-signals/src/eventmodels"
	"github.com/avinashpai/market-signals/src/eventpubsub"
	"github.com/avinashpai/market-signals/src/eventstore"
)

// brokenStore fails every dedup lookup.
type brokenStore struct {
	*eventstore.MemoryStore
}

func (s *brokenStore) GetLastSignal(ctx context.Context, symbol string, strategy string, since time.Time) (*eventmodels.Signal, error) {
	return nil, fmt.Errorf("connection refused: %w", eventmodels.StoreUnavailableErr)
}

func newManager(store eventstore.TimeSeriesStore, now time.Time) (*SignalManager, *eventpubsub.Bus) {
	bus := eventpubsub.NewBus(eventpubsub.BusConfig{})
	manager := NewSignalManager(store, bus, time.UTC)
	manager.now = func() time.Time { return now }
	return manager, bus
}

func TestEmitSignal(t *testing.T) {
	now := time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC)

	buyRequest := EmitRequest{
		Symbol:     "SBIN",
		Strategy:   "ma_crossover",
		Action:     eventmodels.SignalActionBuy,
		EntryPrice: 100,
		StopLoss:   95,
		Target:     110,
	}

	t.Run("first signal of the session is emitted", func(t *testing.T) {
		store := eventstore.NewMemoryStore()
		manager, bus := newManager(store, now)

		result, err := manager.EmitSignal(context.Background(), buyRequest)
		require.NoError(t, err)

		assert.True(t, result.Emitted)
		assert.Equal(t, "first signal of session", result.Reason)
		require.NotNil(t, result.Signal)

		// Persisted and published with the full payload.
		require.Len(t, store.Signals(), 1)
		history := bus.GetHistory(eventmodels.SignalGeneratedEvent, 0)
		require.Len(t, history, 1)

		published, ok := history[0].Payload.(eventmodels.Signal)
		require.True(t, ok)
		assert.Equal(t, result.Signal.ID, published.ID)
		assert.Equal(t, eventmodels.PriorityHigh, history[0].Priority)

		assert.Equal(t, uint64(1), manager.Stats().Generated)
	})

	t.Run("same direction inside the previous range is a duplicate", func(t *testing.T) {
		store := eventstore.NewMemoryStore()
		manager, _ := newManager(store, now)

		_, err := manager.EmitSignal(context.Background(), EmitRequest{
			Symbol:     "SBIN",
			Strategy:   "ma_crossover",
			Action:     eventmodels.SignalActionBuy,
			EntryPrice: 1505,
			StopLoss:   1490,
			Target:     1520,
		})
		require.NoError(t, err)

		result, err := manager.EmitSignal(context.Background(), EmitRequest{
			Symbol:     "SBIN",
			Strategy:   "ma_crossover",
			Action:     eventmodels.SignalActionBuy,
			EntryPrice: 1505,
			StopLoss:   1491,
			Target:     1521,
		})
		require.NoError(t, err)

		assert.False(t, result.Emitted)
		assert.Contains(t, result.Reason, "price still in range: 1490.00 - 1520.00")
		require.Len(t, store.Signals(), 1)
		assert.Equal(t, uint64(1), manager.Stats().SkippedDuplicate)
	})

	t.Run("same direction outside the range invalidates the previous signal", func(t *testing.T) {
		store := eventstore.NewMemoryStore()
		manager, _ := newManager(store, now)

		_, err := manager.EmitSignal(context.Background(), EmitRequest{
			Symbol:     "SBIN",
			Strategy:   "ma_crossover",
			Action:     eventmodels.SignalActionBuy,
			EntryPrice: 1505,
			StopLoss:   1490,
			Target:     1520,
		})
		require.NoError(t, err)

		result, err := manager.EmitSignal(context.Background(), EmitRequest{
			Symbol:     "SBIN",
			Strategy:   "ma_crossover",
			Action:     eventmodels.SignalActionBuy,
			EntryPrice: 1525,
			StopLoss:   1510,
			Target:     1540,
		})
		require.NoError(t, err)

		assert.True(t, result.Emitted)
		assert.Equal(t, "previous signal invalidated", result.Reason)
		require.Len(t, store.Signals(), 2)
	})

	t.Run("opposite direction is a reversal at any price", func(t *testing.T) {
		store := eventstore.NewMemoryStore()
		manager, _ := newManager(store, now)

		_, err := manager.EmitSignal(context.Background(), EmitRequest{
			Symbol:     "SBIN",
			Strategy:   "ma_crossover",
			Action:     eventmodels.SignalActionBuy,
			EntryPrice: 1505,
			StopLoss:   1490,
			Target:     1520,
		})
		require.NoError(t, err)

		result, err := manager.EmitSignal(context.Background(), EmitRequest{
			Symbol:     "SBIN",
			Strategy:   "ma_crossover",
			Action:     eventmodels.SignalActionSell,
			EntryPrice: 1505,
			StopLoss:   1515,
			Target:     1495,
		})
		require.NoError(t, err)

		assert.True(t, result.Emitted)
		assert.Contains(t, result.Reason, "reversal")
	})

	t.Run("signals before the session start are ignored", func(t *testing.T) {
		store := eventstore.NewMemoryStore()

		yesterday := eventmodels.NewSignal("SBIN", "ma_crossover", eventmodels.SignalActionBuy, 100, 95, 110, now.AddDate(0, 0, -1))
		require.NoError(t, store.StoreSignal(context.Background(), yesterday))

		manager, _ := newManager(store, now)

		result, err := manager.EmitSignal(context.Background(), buyRequest)
		require.NoError(t, err)

		assert.True(t, result.Emitted)
		assert.Equal(t, "first signal of session", result.Reason)
	})

	t.Run("different strategies are deduplicated independently", func(t *testing.T) {
		store := eventstore.NewMemoryStore()
		manager, _ := newManager(store, now)

		_, err := manager.EmitSignal(context.Background(), buyRequest)
		require.NoError(t, err)

		other := buyRequest
		other.Strategy = "bollinger_revert"

		result, err := manager.EmitSignal(context.Background(), other)
		require.NoError(t, err)

		assert.True(t, result.Emitted)
		assert.Equal(t, "first signal of session", result.Reason)
	})

	t.Run("store outage on lookup fails open", func(t *testing.T) {
		store := &brokenStore{MemoryStore: eventstore.NewMemoryStore()}
		manager, _ := newManager(store, now)

		result, err := manager.EmitSignal(context.Background(), buyRequest)
		require.NoError(t, err)

		assert.True(t, result.Emitted)
		assert.Equal(t, "first signal of session", result.Reason)
		assert.Equal(t, uint64(1), manager.Stats().StoreFailures)
	})

	t.Run("stale candidate is dropped silently", func(t *testing.T) {
		store := eventstore.NewMemoryStore()
		manager, _ := newManager(store, now)

		stale := buyRequest
		stale.Timestamp = now.Add(-MaxSignalAge - time.Minute)

		result, err := manager.EmitSignal(context.Background(), stale)
		require.NoError(t, err)

		assert.False(t, result.Emitted)
		assert.Equal(t, "stale signal", result.Reason)
		assert.Empty(t, store.Signals())
		assert.Equal(t, uint64(1), manager.Stats().SkippedStale)
	})

	t.Run("malformed candidate is rejected and never persisted", func(t *testing.T) {
		store := eventstore.NewMemoryStore()
		manager, bus := newManager(store, now)

		invalid := buyRequest
		invalid.StopLoss = 0

		result, err := manager.EmitSignal(context.Background(), invalid)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, eventmodels.ValidationErr)
		assert.Empty(t, store.Signals())
		assert.Empty(t, bus.GetHistory(eventmodels.SignalGeneratedEvent, 0))
	})
}
