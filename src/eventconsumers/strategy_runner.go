package eventconsumers

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/avinashpai/market-signals/src/eventmodels"
	"github.com/avinashpai/market-signals/src/eventproducers"
	"github.com/avinashpai/market-signals/src/eventpubsub"
	"github.com/avinashpai/market-signals/src/eventservices"
	"github.com/avinashpai/market-signals/src/strategy"
)

// StrategyRunner consumes CandleCompleted events: it pulls the merged
// historical+live series for the sealed candle's symbol, evaluates the
// strategy, and routes any proposal through the signal manager. An
// insufficient series means abstain, never error.
type StrategyRunner struct {
	data     *eventservices.StrategyDataManager
	signals  *eventproducers.SignalManager
	strategy strategy.Strategy
	cfg      eventservices.StrategyDataConfig
}

func NewStrategyRunner(data *eventservices.StrategyDataManager, signals *eventproducers.SignalManager, strat strategy.Strategy, cfg eventservices.StrategyDataConfig) *StrategyRunner {
	return &StrategyRunner{
		data:     data,
		signals:  signals,
		strategy: strat,
		cfg:      cfg,
	}
}

// Start registers the runner on the bus. Candle evaluation is on the hot
// path of dispatch, so it runs at high priority.
func (r *StrategyRunner) Start(bus *eventpubsub.Bus) *eventpubsub.Subscription {
	return bus.Subscribe(eventmodels.CandleCompletedEvent, "strategy_runner", r, eventpubsub.WithPriority(eventmodels.PriorityHigh))
}

func (r *StrategyRunner) Handle(event eventmodels.Event) error {
	candle, ok := event.Payload.(eventmodels.Candle)
	if !ok {
		return fmt.Errorf("StrategyRunner.Handle: unexpected payload type %T", event.Payload)
	}

	ctx := context.Background()

	series, err := r.data.GetStrategyData(ctx, candle.Symbol, r.cfg)
	if err != nil {
		return fmt.Errorf("StrategyRunner.Handle: failed to get strategy data for %s: %w", candle.Symbol, err)
	}

	if !series.Sufficient {
		log.Debugf("StrategyRunner: %s has %d of %d required bars, abstaining", candle.Symbol, len(series.Candles), r.cfg.MinPeriods)
		return nil
	}

	proposal, err := r.strategy.Evaluate(series)
	if err != nil {
		return fmt.Errorf("StrategyRunner.Handle: strategy %s failed for %s: %w", r.strategy.Name(), candle.Symbol, err)
	}

	if proposal == nil {
		return nil
	}

	result, err := r.signals.EmitSignal(ctx, eventproducers.EmitRequest{
		Symbol:     candle.Symbol,
		Strategy:   r.strategy.Name(),
		Action:     proposal.Action,
		EntryPrice: proposal.EntryPrice,
		StopLoss:   proposal.StopLoss,
		Target:     proposal.Target,
	})
	if err != nil {
		return fmt.Errorf("StrategyRunner.Handle: emit failed for %s: %w", candle.Symbol, err)
	}

	if !result.Emitted {
		log.Debugf("StrategyRunner: %s signal for %s not emitted: %s", r.strategy.Name(), candle.Symbol, result.Reason)
	}

	return nil
}
