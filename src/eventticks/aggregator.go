package eventticks

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/avinashpai/market-signals/src/eventmodels"
	"github.com/avinashpai/market-signals/src/eventpubsub"
)

// CandleAggregator converts per-symbol ticks into fixed-timeframe OHLCV
// bars. Exactly one building candle exists per symbol at any instant; its
// start time is monotonically non-decreasing. State is partitioned by
// symbol, so cross-symbol ingestion is unconstrained, and a slow event
// handler never delays ingestion for other symbols.
type CandleAggregator struct {
	timeframe  eventmodels.Timeframe
	maxHistory int
	bus        *eventpubsub.Bus

	mu      sync.RWMutex
	symbols map[string]*symbolCandles
}

type symbolCandles struct {
	mu        sync.Mutex
	building  *eventmodels.Candle
	completed []*eventmodels.Candle
}

func NewCandleAggregator(bus *eventpubsub.Bus, timeframe eventmodels.Timeframe, maxHistory int) *CandleAggregator {
	if maxHistory <= 0 {
		maxHistory = 100
	}

	return &CandleAggregator{
		timeframe:  timeframe,
		maxHistory: maxHistory,
		bus:        bus,
		symbols:    make(map[string]*symbolCandles),
	}
}

func (a *CandleAggregator) state(symbol string) *symbolCandles {
	a.mu.RLock()
	s, found := a.symbols[symbol]
	a.mu.RUnlock()

	if found {
		return s
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if s, found = a.symbols[symbol]; found {
		return s
	}

	s = &symbolCandles{}
	a.symbols[symbol] = s
	return s
}

// Ingest folds one tick into the symbol's building candle. Crossing an
// interval boundary seals the previous candle, pushes it onto the bounded
// history ring, and publishes CandleCompleted with the full bar as payload.
func (a *CandleAggregator) Ingest(tick eventmodels.Tick) {
	boundary := a.timeframe.Truncate(tick.Timestamp)

	s := a.state(tick.Symbol)

	var sealed *eventmodels.Candle

	s.mu.Lock()

	switch {
	case s.building == nil:
		s.building = eventmodels.NewCandle(tick.Symbol, a.timeframe, boundary, tick.Price, tick.Volume)

	case boundary.After(s.building.Timestamp):
		sealed = s.building
		sealed.Seal()

		s.completed = append(s.completed, sealed)
		if len(s.completed) > a.maxHistory {
			s.completed = s.completed[len(s.completed)-a.maxHistory:]
		}

		s.building = eventmodels.NewCandle(tick.Symbol, a.timeframe, boundary, tick.Price, tick.Volume)

	case boundary.Equal(s.building.Timestamp):
		s.building.Update(tick.Price, tick.Volume)

	default:
		// Tick from before the current interval: the building candle's
		// start time must never move backwards.
		log.Debugf("CandleAggregator: dropping stale tick for %v at %v, current interval starts %v", tick.Symbol, tick.Timestamp, s.building.Timestamp)
	}

	s.mu.Unlock()

	// Published outside the symbol lock so handlers cannot stall ingestion.
	if sealed != nil {
		a.bus.Publish(eventmodels.NewEvent(eventmodels.CandleCompletedEvent, "candle_aggregator", *sealed))
	}
}

// GetRecent returns up to count bars for symbol in ascending order,
// optionally including the currently building (incomplete) candle. The
// returned candles are copies.
func (a *CandleAggregator) GetRecent(symbol string, count int, includeBuilding bool) []eventmodels.Candle {
	a.mu.RLock()
	s, found := a.symbols[symbol]
	a.mu.RUnlock()

	if !found {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	candles := make([]eventmodels.Candle, 0, len(s.completed)+1)
	for _, c := range s.completed {
		candles = append(candles, *c)
	}

	if includeBuilding && s.building != nil {
		candles = append(candles, *s.building)
	}

	if count > 0 && len(candles) > count {
		candles = candles[len(candles)-count:]
	}

	return candles
}
