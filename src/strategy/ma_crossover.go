package strategy

import (
	"fmt"

	"github.com/avinashpai/market-signals/src/eventmodels"
	"github.com/avinashpai/market-signals/src/eventservices"
	"github.com/avinashpai/market-signals/src/indicators"
)

// MACrossover proposes a BUY when the fast SMA crosses above the slow SMA
// on the latest bar and a SELL on the opposite cross. Stop and target are
// fixed percentage offsets from the close.
type MACrossover struct {
	FastPeriod      int
	SlowPeriod      int
	StopLossPercent float64
	TargetPercent   float64
}

func NewMACrossover(fastPeriod int, slowPeriod int, stopLossPercent float64, targetPercent float64) *MACrossover {
	return &MACrossover{
		FastPeriod:      fastPeriod,
		SlowPeriod:      slowPeriod,
		StopLossPercent: stopLossPercent,
		TargetPercent:   targetPercent,
	}
}

func (s *MACrossover) Name() string {
	return "ma_crossover"
}

func (s *MACrossover) Evaluate(series *eventservices.MergedSeries) (*Proposal, error) {
	if !series.Sufficient {
		return nil, nil
	}

	closes := make([]float64, 0, len(series.Candles))
	for _, c := range series.Candles {
		closes = append(closes, c.Close)
	}

	if len(closes) < s.SlowPeriod+1 {
		return nil, nil
	}

	fastNow, ok, err := indicators.SMA(closes, s.FastPeriod)
	if err != nil || !ok {
		return nil, err
	}

	slowNow, ok, err := indicators.SMA(closes, s.SlowPeriod)
	if err != nil || !ok {
		return nil, err
	}

	prev := closes[:len(closes)-1]

	fastPrev, ok, err := indicators.SMA(prev, s.FastPeriod)
	if err != nil || !ok {
		return nil, err
	}

	slowPrev, ok, err := indicators.SMA(prev, s.SlowPeriod)
	if err != nil || !ok {
		return nil, err
	}

	price := closes[len(closes)-1]

	switch {
	case fastPrev <= slowPrev && fastNow > slowNow:
		return &Proposal{
			Action:     eventmodels.SignalActionBuy,
			EntryPrice: price,
			StopLoss:   price * (1 - s.StopLossPercent),
			Target:     price * (1 + s.TargetPercent),
		}, nil

	case fastPrev >= slowPrev && fastNow < slowNow:
		return &Proposal{
			Action:     eventmodels.SignalActionSell,
			EntryPrice: price,
			StopLoss:   price * (1 + s.StopLossPercent),
			Target:     price * (1 - s.TargetPercent),
		}, nil
	}

	return nil, nil
}

var _ Strategy = (*MACrossover)(nil)

func (s *MACrossover) String() string {
	return fmt.Sprintf("ma_crossover(fast=%d, slow=%d)", s.FastPeriod, s.SlowPeriod)
}
