package eventstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/avinashpai/market-signals/src/eventmodels"
)

// MemoryStore is an in-process TimeSeriesStore used by tests and tick
// replays.
type MemoryStore struct {
	mu      sync.RWMutex
	candles map[string][]eventmodels.Candle
	signals []eventmodels.Signal
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		candles: make(map[string][]eventmodels.Candle),
	}
}

func (s *MemoryStore) FetchCandles(ctx context.Context, symbol string, timeframe eventmodels.Timeframe, from time.Time, to time.Time) ([]eventmodels.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []eventmodels.Candle
	for _, c := range s.candles[symbol] {
		if c.Timeframe != timeframe {
			continue
		}

		if c.Timestamp.Before(from) || c.Timestamp.After(to) {
			continue
		}

		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})

	return out, nil
}

func (s *MemoryStore) StoreCandles(ctx context.Context, candles []eventmodels.Candle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range candles {
		s.candles[c.Symbol] = append(s.candles[c.Symbol], c)
	}

	return nil
}

func (s *MemoryStore) GetLastSignal(ctx context.Context, symbol string, strategy string, since time.Time) (*eventmodels.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last *eventmodels.Signal
	for i := range s.signals {
		sig := s.signals[i]
		if sig.Symbol != symbol || sig.Strategy != strategy {
			continue
		}

		if sig.Timestamp.Before(since) {
			continue
		}

		if last == nil || sig.Timestamp.After(last.Timestamp) {
			copied := sig
			last = &copied
		}
	}

	return last, nil
}

func (s *MemoryStore) StoreSignal(ctx context.Context, signal *eventmodels.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.signals = append(s.signals, *signal)
	return nil
}

// Signals returns a copy of every stored signal, oldest first.
func (s *MemoryStore) Signals() []eventmodels.Signal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]eventmodels.Signal, len(s.signals))
	copy(out, s.signals)
	return out
}
