package eventservices

import (
	"context"
	"fmt"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/avinashpai/market-signals/src/eventmodels"
	"github.com/avinashpai/market-signals/src/utils"
)

// CandleSource provides the aggregator's recent bars, including the
// currently building one when requested.
type CandleSource interface {
	GetRecent(symbol string, count int, includeBuilding bool) []eventmodels.Candle
}

type StrategyDataConfig struct {
	Timeframe  eventmodels.Timeframe
	Periods    int
	MinPeriods int
}

// MergedSeries is the fused historical+live dataset handed to strategy
// logic. Timestamps are strictly increasing and unique. Sufficient=false is
// a verdict, not an error: the strategy must abstain this cycle.
type MergedSeries struct {
	Symbol     string
	Timeframe  eventmodels.Timeframe
	Candles    []eventmodels.Candle
	Sufficient bool
}

// StrategyDataManager merges the cached historical series with the
// aggregator's live bars into one continuous, duplicate-free series.
type StrategyDataManager struct {
	historical *HistoricalCache
	live       CandleSource
}

func NewStrategyDataManager(historical *HistoricalCache, live CandleSource) *StrategyDataManager {
	return &StrategyDataManager{
		historical: historical,
		live:       live,
	}
}

// GetStrategyData returns the tail of cfg.Periods merged bars for symbol.
// Store unavailability during the historical fetch degrades to an
// insufficiency verdict rather than failing the cycle.
func (m *StrategyDataManager) GetStrategyData(ctx context.Context, symbol string, cfg StrategyDataConfig) (*MergedSeries, error) {
	if err := cfg.Timeframe.Validate(); err != nil {
		return nil, fmt.Errorf("StrategyDataManager.GetStrategyData: %w", err)
	}

	var historical []eventmodels.Candle

	result, err := m.historical.GetHistorical(ctx, symbol, cfg.Timeframe, cfg.Periods, cfg.MinPeriods)
	if err != nil {
		log.Warnf("StrategyDataManager: historical fetch failed for %s, continuing with live bars only: %v", symbol, err)
	} else {
		historical = result.Candles
	}

	live := m.live.GetRecent(symbol, cfg.Periods, true)

	merged := mergeSeries(historical, live, cfg.Timeframe)

	if len(merged) > cfg.Periods {
		merged = merged[len(merged)-cfg.Periods:]
	}

	return &MergedSeries{
		Symbol:     symbol,
		Timeframe:  cfg.Timeframe,
		Candles:    merged,
		Sufficient: len(merged) >= cfg.MinPeriods,
	}, nil
}

// mergeSeries fuses the historical series with live bars. Live rows at or
// before the historical cutoff are discarded so bars the fetch already
// covers are not re-introduced; where timestamps still collide, the
// later-arriving (real-time) value wins.
func mergeSeries(historical []eventmodels.Candle, live []eventmodels.Candle, timeframe eventmodels.Timeframe) []eventmodels.Candle {
	var cutoff time.Time
	for _, c := range historical {
		cutoff = utils.GetMaxTime(cutoff, c.Timestamp)
	}

	byTimestamp := make(map[time.Time]eventmodels.Candle, len(historical)+len(live))
	for _, c := range historical {
		byTimestamp[c.Timestamp] = c
	}

	for _, c := range live {
		if !c.Timestamp.After(cutoff) {
			continue
		}

		byTimestamp[c.Timestamp] = c
	}

	merged := make([]eventmodels.Candle, 0, len(byTimestamp))
	for _, c := range byTimestamp {
		merged = append(merged, c)
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})

	// Interval gaps are expected across session boundaries; anything else
	// is worth a warning.
	for i := 0; i < len(merged)-1; i++ {
		if merged[i].Timestamp.Add(timeframe.Duration()).Before(merged[i+1].Timestamp) {
			log.Debugf("mergeSeries: gap between %v and %v", merged[i].Timestamp, merged[i+1].Timestamp)
		}
	}

	return merged
}
