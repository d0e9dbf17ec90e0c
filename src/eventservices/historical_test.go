package eventservices

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avinashpai/market-signals/src/eventmodels"
	"github.com/avinashpai/market-signals/src/eventstore"
)

// countingStore wraps a MemoryStore and counts fetches, so TTL behavior is
// observable.
type countingStore struct {
	*eventstore.MemoryStore
	fetches int
	failErr error
}

func (s *countingStore) FetchCandles(ctx context.Context, symbol string, timeframe eventmodels.Timeframe, from time.Time, to time.Time) ([]eventmodels.Candle, error) {
	s.fetches++
	if s.failErr != nil {
		return nil, s.failErr
	}

	return s.MemoryStore.FetchCandles(ctx, symbol, timeframe, from, to)
}

func seedMinuteCandles(t *testing.T, store eventstore.TimeSeriesStore, symbol string, start time.Time, count int) {
	t.Helper()

	candles := make([]eventmodels.Candle, 0, count)
	for i := 0; i < count; i++ {
		ts := start.Add(time.Duration(i) * time.Minute)
		price := 500 + float64(i%10)
		candles = append(candles, eventmodels.Candle{
			Symbol:     symbol,
			Timeframe:  eventmodels.Timeframe1M,
			Timestamp:  ts,
			Open:       price,
			High:       price + 1,
			Low:        price - 1,
			Close:      price + 0.5,
			Volume:     100,
			IsComplete: true,
		})
	}

	require.NoError(t, store.StoreCandles(context.Background(), candles))
}

func TestGetHistorical(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("query inside the TTL is served from cache", func(t *testing.T) {
		store := &countingStore{MemoryStore: eventstore.NewMemoryStore()}
		seedMinuteCandles(t, store, "SBIN", now.Add(-5*time.Hour), 300)

		cache := NewHistoricalCache(store, 5*time.Minute, eventmodels.Timeframe1M)
		cache.now = func() time.Time { return now }

		first, err := cache.GetHistorical(context.Background(), "SBIN", eventmodels.Timeframe15M, 10, 5)
		require.NoError(t, err)

		second, err := cache.GetHistorical(context.Background(), "SBIN", eventmodels.Timeframe15M, 10, 5)
		require.NoError(t, err)

		assert.Equal(t, 1, store.fetches)
		assert.Equal(t, first, second)
	})

	t.Run("resamples native granularity to the target timeframe", func(t *testing.T) {
		store := &countingStore{MemoryStore: eventstore.NewMemoryStore()}
		seedMinuteCandles(t, store, "SBIN", now.Add(-time.Hour), 60)

		cache := NewHistoricalCache(store, 5*time.Minute, eventmodels.Timeframe1M)
		cache.now = func() time.Time { return now }

		result, err := cache.GetHistorical(context.Background(), "SBIN", eventmodels.Timeframe15M, 10, 2)
		require.NoError(t, err)

		require.NotEmpty(t, result.Candles)
		for _, c := range result.Candles {
			assert.Equal(t, eventmodels.Timeframe15M, c.Timeframe)
			assert.Equal(t, c.Timestamp, eventmodels.Timeframe15M.Truncate(c.Timestamp))
		}

		for i := 0; i < len(result.Candles)-1; i++ {
			assert.True(t, result.Candles[i].Timestamp.Before(result.Candles[i+1].Timestamp))
		}
	})

	t.Run("insufficient only below half of requested periods", func(t *testing.T) {
		store := &countingStore{MemoryStore: eventstore.NewMemoryStore()}
		seedMinuteCandles(t, store, "SBIN", now.Add(-time.Hour), 60)

		cache := NewHistoricalCache(store, 5*time.Minute, eventmodels.Timeframe1M)
		cache.now = func() time.Time { return now }

		// ~4 bars of 15m available against 6 requested: above 50%.
		acceptable, err := cache.GetHistorical(context.Background(), "SBIN", eventmodels.Timeframe15M, 6, 2)
		require.NoError(t, err)
		assert.False(t, acceptable.Insufficient)

		// Fresh cache, 100 requested against ~4 available: below 50%.
		cache2 := NewHistoricalCache(store, 5*time.Minute, eventmodels.Timeframe1M)
		cache2.now = func() time.Time { return now }

		insufficient, err := cache2.GetHistorical(context.Background(), "SBIN", eventmodels.Timeframe15M, 100, 2)
		require.NoError(t, err)
		assert.True(t, insufficient.Insufficient)
	})

	t.Run("store error propagates without fabricating data", func(t *testing.T) {
		store := &countingStore{
			MemoryStore: eventstore.NewMemoryStore(),
			failErr:     fmt.Errorf("connection refused: %w", eventmodels.StoreUnavailableErr),
		}

		cache := NewHistoricalCache(store, 5*time.Minute, eventmodels.Timeframe1M)
		cache.now = func() time.Time { return now }

		result, err := cache.GetHistorical(context.Background(), "SBIN", eventmodels.Timeframe15M, 10, 5)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, eventmodels.StoreUnavailableErr)
	})
}

func TestResample(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	rows := []eventmodels.Candle{
		{Symbol: "SBIN", Timestamp: base, Open: 10, High: 12, Low: 9, Close: 11, Volume: 5},
		{Symbol: "SBIN", Timestamp: base.Add(5 * time.Minute), Open: 11, High: 15, Low: 10, Close: 14, Volume: 3},
		{Symbol: "SBIN", Timestamp: base.Add(10 * time.Minute), Open: 14, High: 14, Low: 8, Close: 9, Volume: 2},
		{Symbol: "SBIN", Timestamp: base.Add(15 * time.Minute), Open: 9, High: 10, Low: 9, Close: 10, Volume: 1},
	}

	out := Resample(rows, eventmodels.Timeframe15M)

	require.Len(t, out, 2)

	assert.Equal(t, base, out[0].Timestamp)
	assert.Equal(t, 10.0, out[0].Open)
	assert.Equal(t, 15.0, out[0].High)
	assert.Equal(t, 8.0, out[0].Low)
	assert.Equal(t, 9.0, out[0].Close)
	assert.Equal(t, 10.0, out[0].Volume)

	assert.Equal(t, base.Add(15*time.Minute), out[1].Timestamp)
	assert.Equal(t, 9.0, out[1].Open)
}
