package eventproducers

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/avinashpai/market-signals/src/eventmodels"
	"github.com/avinashpai/market-signals/src/eventpubsub"
	"github.com/avinashpai/market-signals/src/eventstore"
)

const lockShards = 64

// MaxSignalAge is the staleness threshold: a candidate older than this is
// dropped silently rather than evaluated.
const MaxSignalAge = 5 * time.Minute

type EmitRequest struct {
	Symbol     string
	Strategy   string
	Action     eventmodels.SignalAction
	EntryPrice float64
	StopLoss   float64
	Target     float64

	// Timestamp defaults to now when zero.
	Timestamp time.Time
}

type EmitResult struct {
	Emitted bool
	Reason  string
	Signal  *eventmodels.Signal
}

type SignalStats struct {
	Generated        uint64
	SkippedDuplicate uint64
	SkippedStale     uint64
	StoreFailures    uint64
}

// SignalManager wraps strategy output into Signal entities and applies the
// per-(symbol, strategy, session) deduplication decision engine before
// persisting and publishing.
//
// The check-then-persist sequence is serialized per key with a sharded
// mutex, which closes the race within one process. Two processes evaluating
// the same key concurrently can still both emit; making that safe would
// need a conditional write in the store, which is deliberately left open.
type SignalManager struct {
	store    eventstore.TimeSeriesStore
	bus      *eventpubsub.Bus
	location *time.Location

	locks [lockShards]sync.Mutex

	generated        uint64
	skippedDuplicate uint64
	skippedStale     uint64
	storeFailures    uint64

	// now is swappable for tests.
	now func() time.Time
}

func NewSignalManager(store eventstore.TimeSeriesStore, bus *eventpubsub.Bus, location *time.Location) *SignalManager {
	if location == nil {
		location = time.UTC
	}

	return &SignalManager{
		store:    store,
		bus:      bus,
		location: location,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (m *SignalManager) shard(symbol string, strategy string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	h.Write([]byte{0})
	h.Write([]byte(strategy))
	return &m.locks[h.Sum32()%lockShards]
}

// EmitSignal runs the deduplication decision table for the candidate and,
// when it passes, persists the signal and publishes SignalGenerated with
// the full signal as payload. The returned reason explains either decision.
//
// If the store is unreachable during the dedup lookup the manager fails
// open: a possible duplicate beats a silently suppressed trading signal.
func (m *SignalManager) EmitSignal(ctx context.Context, req EmitRequest) (*EmitResult, error) {
	now := m.now()

	if req.Timestamp.IsZero() {
		req.Timestamp = now
	}

	candidate := eventmodels.NewSignal(req.Symbol, req.Strategy, req.Action, req.EntryPrice, req.StopLoss, req.Target, req.Timestamp)

	if err := candidate.Validate(); err != nil {
		return nil, fmt.Errorf("SignalManager.EmitSignal: %w", err)
	}

	if now.Sub(req.Timestamp) > MaxSignalAge {
		atomic.AddUint64(&m.skippedStale, 1)
		log.Debugf("SignalManager: dropping stale %s candidate for %s, aged %v", req.Strategy, req.Symbol, now.Sub(req.Timestamp))
		return &EmitResult{Emitted: false, Reason: "stale signal"}, nil
	}

	lock := m.shard(req.Symbol, req.Strategy)
	lock.Lock()
	defer lock.Unlock()

	sessionStart := eventmodels.SessionStart(now, m.location)

	previous, err := m.store.GetLastSignal(ctx, req.Symbol, req.Strategy, sessionStart)
	if err != nil {
		atomic.AddUint64(&m.storeFailures, 1)
		log.Warnf("SignalManager: dedup lookup failed for %s/%s, failing open: %v", req.Symbol, req.Strategy, err)
		previous = nil
	}

	emit, reason := decide(previous, candidate)
	if !emit {
		atomic.AddUint64(&m.skippedDuplicate, 1)
		log.Debugf("SignalManager: skipping %s signal for %s: %s", req.Strategy, req.Symbol, reason)
		return &EmitResult{Emitted: false, Reason: reason}, nil
	}

	if err := m.store.StoreSignal(ctx, candidate); err != nil {
		// Persistence failed but the trading opportunity is still real:
		// publish anyway and surface the degraded mode in the logs.
		atomic.AddUint64(&m.storeFailures, 1)
		log.Errorf("SignalManager: failed to persist signal %v: %v", candidate.ID, err)
	}

	atomic.AddUint64(&m.generated, 1)

	m.bus.Publish(eventmodels.NewEventWithPriority(eventmodels.SignalGeneratedEvent, "signal_manager", *candidate, eventmodels.PriorityHigh))

	log.Infof("SignalManager: emitted %s %s for %s at %.2f (%s)", req.Strategy, req.Action, req.Symbol, req.EntryPrice, reason)

	return &EmitResult{Emitted: true, Reason: reason, Signal: candidate}, nil
}

// decide applies the deduplication decision table for a candidate against
// the previous signal of the same (symbol, strategy, session).
func decide(previous *eventmodels.Signal, candidate *eventmodels.Signal) (bool, string) {
	if previous == nil {
		return true, "first signal of session"
	}

	if previous.Action != candidate.Action {
		return true, fmt.Sprintf("reversal: %s follows %s", candidate.Action, previous.Action)
	}

	if previous.PriceInRange(candidate.EntryPrice) {
		low, high := previous.RangeBounds()
		return false, fmt.Sprintf("duplicate signal, price still in range: %.2f - %.2f", low, high)
	}

	return true, "previous signal invalidated"
}

func (m *SignalManager) Stats() SignalStats {
	return SignalStats{
		Generated:        atomic.LoadUint64(&m.generated),
		SkippedDuplicate: atomic.LoadUint64(&m.skippedDuplicate),
		SkippedStale:     atomic.LoadUint64(&m.skippedStale),
		StoreFailures:    atomic.LoadUint64(&m.storeFailures),
	}
}
