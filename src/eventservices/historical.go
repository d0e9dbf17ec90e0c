package eventservices

import (
	"context"
	"fmt"
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"

	"github.com/avinashpai/market-signals/src/eventmodels"
	"github.com/avinashpai/market-signals/src/eventstore"
)

// HistoricalResult carries a fetched series plus completeness metadata.
// Insufficient is only set when the store returned less than half of the
// requested periods; anything above that is acceptable and not an anomaly.
type HistoricalResult struct {
	Symbol       string
	Timeframe    eventmodels.Timeframe
	Candles      []eventmodels.Candle
	Requested    int
	FetchedAt    time.Time
	Insufficient bool
}

// HistoricalCache fronts the time-series store with a TTL cache keyed by
// (symbol, timeframe). The lookback window is trading-calendar aware: a
// request for N bars fetches enough calendar days of raw history that
// weekends and holidays cannot starve it.
type HistoricalCache struct {
	store           eventstore.TimeSeriesStore
	cache           *gocache.Cache
	ttl             time.Duration
	nativeTimeframe eventmodels.Timeframe

	// now is swappable for tests.
	now func() time.Time
}

func NewHistoricalCache(store eventstore.TimeSeriesStore, ttl time.Duration, nativeTimeframe eventmodels.Timeframe) *HistoricalCache {
	return &HistoricalCache{
		store:           store,
		cache:           gocache.New(ttl, 2*ttl),
		ttl:             ttl,
		nativeTimeframe: nativeTimeframe,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

func cacheKey(symbol string, timeframe eventmodels.Timeframe) string {
	return fmt.Sprintf("%s:%s", symbol, timeframe)
}

// GetHistorical returns up to periods bars at the target timeframe. A query
// inside the TTL is served from cache without touching the store. Store
// errors propagate to the caller; no data is ever fabricated.
func (h *HistoricalCache) GetHistorical(ctx context.Context, symbol string, timeframe eventmodels.Timeframe, periods int, minPeriods int) (*HistoricalResult, error) {
	key := cacheKey(symbol, timeframe)

	if cached, found := h.cache.Get(key); found {
		return cached.(*HistoricalResult), nil
	}

	now := h.now()
	days := eventmodels.LookbackDays(periods, timeframe)
	from := now.AddDate(0, 0, -days)

	rows, err := h.store.FetchCandles(ctx, symbol, h.nativeTimeframe, from, now)
	if err != nil {
		return nil, fmt.Errorf("HistoricalCache.GetHistorical: fetch failed for %s: %w", symbol, err)
	}

	candles := rows
	if h.nativeTimeframe != timeframe {
		candles = Resample(rows, timeframe)
	}

	if len(candles) > periods {
		candles = candles[len(candles)-periods:]
	}

	result := &HistoricalResult{
		Symbol:       symbol,
		Timeframe:    timeframe,
		Candles:      candles,
		Requested:    periods,
		FetchedAt:    now,
		Insufficient: len(candles)*2 < periods,
	}

	if result.Insufficient {
		log.Warnf("HistoricalCache: %s returned %d of %d requested bars over %d days", symbol, len(candles), periods, days)
	}

	h.cache.Set(key, result, h.ttl)

	return result, nil
}

// Resample aggregates bars to a coarser timeframe by grouping on the target
// interval boundary: open from the first row, close from the last, extreme
// high/low, summed volume.
func Resample(rows []eventmodels.Candle, timeframe eventmodels.Timeframe) []eventmodels.Candle {
	if len(rows) == 0 {
		return nil
	}

	groups := make(map[time.Time]*eventmodels.Candle)
	for _, row := range rows {
		boundary := timeframe.Truncate(row.Timestamp)

		c, found := groups[boundary]
		if !found {
			groups[boundary] = &eventmodels.Candle{
				Symbol:     row.Symbol,
				Timeframe:  timeframe,
				Timestamp:  boundary,
				Open:       row.Open,
				High:       row.High,
				Low:        row.Low,
				Close:      row.Close,
				Volume:     row.Volume,
				IsComplete: true,
			}
			continue
		}

		if row.High > c.High {
			c.High = row.High
		}

		if row.Low < c.Low {
			c.Low = row.Low
		}

		c.Close = row.Close
		c.Volume += row.Volume
	}

	out := make([]eventmodels.Candle, 0, len(groups))
	for _, c := range groups {
		out = append(out, *c)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})

	return out
}
