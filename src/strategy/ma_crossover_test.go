package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avinashpai/market-signals/src/eventmodels"
	"github.com/avinashpai/market-signals/src/eventservices"
)

func seriesFromCloses(closes []float64) *eventservices.MergedSeries {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	candles := make([]eventmodels.Candle, 0, len(closes))
	for i, c := range closes {
		candles = append(candles, eventmodels.Candle{
			Symbol:    "SBIN",
			Timeframe: eventmodels.Timeframe15M,
			Timestamp: base.Add(time.Duration(i) * 15 * time.Minute),
			Close:     c,
		})
	}

	return &eventservices.MergedSeries{
		Symbol:     "SBIN",
		Timeframe:  eventmodels.Timeframe15M,
		Candles:    candles,
		Sufficient: true,
	}
}

func TestMACrossoverEvaluate(t *testing.T) {
	strat := NewMACrossover(2, 3, 0.01, 0.02)

	t.Run("fast crossing above slow proposes a buy", func(t *testing.T) {
		// Declining series keeps fast under slow, then a sharp rally
		// pushes the fast average through.
		proposal, err := strat.Evaluate(seriesFromCloses([]float64{110, 108, 106, 104, 102, 100, 120}))
		require.NoError(t, err)

		require.NotNil(t, proposal)
		assert.Equal(t, eventmodels.SignalActionBuy, proposal.Action)
		assert.Equal(t, 120.0, proposal.EntryPrice)
		assert.InDelta(t, 118.8, proposal.StopLoss, 0.0001)
		assert.InDelta(t, 122.4, proposal.Target, 0.0001)
	})

	t.Run("fast crossing below slow proposes a sell", func(t *testing.T) {
		proposal, err := strat.Evaluate(seriesFromCloses([]float64{100, 102, 104, 106, 108, 110, 90}))
		require.NoError(t, err)

		require.NotNil(t, proposal)
		assert.Equal(t, eventmodels.SignalActionSell, proposal.Action)
	})

	t.Run("no cross proposes nothing", func(t *testing.T) {
		proposal, err := strat.Evaluate(seriesFromCloses([]float64{100, 101, 102, 103, 104, 105, 106}))
		require.NoError(t, err)
		assert.Nil(t, proposal)
	})

	t.Run("insufficient series abstains", func(t *testing.T) {
		series := seriesFromCloses([]float64{100, 101, 102, 103, 104, 105, 106})
		series.Sufficient = false

		proposal, err := strat.Evaluate(series)
		require.NoError(t, err)
		assert.Nil(t, proposal)
	})
}
