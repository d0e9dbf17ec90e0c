package eventstore

import (
	"context"
	"time"

	"github.com/avinashpai/market-signals/src/eventmodels"
)

// TimeSeriesStore is the narrow interface the pipeline needs from the
// persistent time-series store. The store's internal engine is not our
// concern; candle writes are append-only and signals are immutable once
// stored.
type TimeSeriesStore interface {
	// FetchCandles returns bars for symbol at the store's native
	// granularity, ascending by timestamp, within [from, to].
	FetchCandles(ctx context.Context, symbol string, timeframe eventmodels.Timeframe, from time.Time, to time.Time) ([]eventmodels.Candle, error)

	// StoreCandles appends completed bars.
	StoreCandles(ctx context.Context, candles []eventmodels.Candle) error

	// GetLastSignal returns the most recent signal for (symbol, strategy)
	// timestamped at or after since, or nil when none exists.
	GetLastSignal(ctx context.Context, symbol string, strategy string, since time.Time) (*eventmodels.Signal, error)

	// StoreSignal appends a signal.
	StoreSignal(ctx context.Context, signal *eventmodels.Signal) error
}
