package strategy

import (
	"fmt"

	"github.com/avinashpai/market-signals/src/eventmodels"
	"github.com/avinashpai/market-signals/src/eventservices"
	"github.com/avinashpai/market-signals/src/indicators"
)

// BollingerRevert is a mean-reversion strategy: a close below the lower
// Bollinger band proposes a BUY back toward the mean, a close above the
// upper band proposes a SELL. Stop and target are fixed percentage offsets
// from the close.
type BollingerRevert struct {
	Period          int
	BandWidth       float64
	StopLossPercent float64
	TargetPercent   float64
}

func NewBollingerRevert(period int, bandWidth float64, stopLossPercent float64, targetPercent float64) *BollingerRevert {
	return &BollingerRevert{
		Period:          period,
		BandWidth:       bandWidth,
		StopLossPercent: stopLossPercent,
		TargetPercent:   targetPercent,
	}
}

func (s *BollingerRevert) Name() string {
	return "bollinger_revert"
}

func (s *BollingerRevert) Evaluate(series *eventservices.MergedSeries) (*Proposal, error) {
	if !series.Sufficient {
		return nil, nil
	}

	bands := indicators.NewBollingerBands(s.Period, s.BandWidth)

	var ready bool
	var bandStats indicators.BollingerBandsStats

	for _, c := range series.Candles {
		var err error
		ready, bandStats, err = bands.Update(c)
		if err != nil {
			return nil, fmt.Errorf("BollingerRevert.Evaluate: %w", err)
		}
	}

	if !ready {
		return nil, nil
	}

	price := series.Candles[len(series.Candles)-1].Close

	switch {
	case price < bandStats.Lower:
		return &Proposal{
			Action:     eventmodels.SignalActionBuy,
			EntryPrice: price,
			StopLoss:   price * (1 - s.StopLossPercent),
			Target:     price * (1 + s.TargetPercent),
		}, nil

	case price > bandStats.Upper:
		return &Proposal{
			Action:     eventmodels.SignalActionSell,
			EntryPrice: price,
			StopLoss:   price * (1 + s.StopLossPercent),
			Target:     price * (1 - s.TargetPercent),
		}, nil
	}

	return nil, nil
}

var _ Strategy = (*BollingerRevert)(nil)

func (s *BollingerRevert) String() string {
	return fmt.Sprintf("bollinger_revert(period=%d, width=%.1f)", s.Period, s.BandWidth)
}
