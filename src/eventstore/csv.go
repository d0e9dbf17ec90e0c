package eventstore

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/avinashpai/market-signals/src/eventmodels"
)

type csvCandleDTO struct {
	Timestamp string  `csv:"timestamp"`
	Open      float64 `csv:"open"`
	High      float64 `csv:"high"`
	Low       float64 `csv:"low"`
	Close     float64 `csv:"close"`
	Volume    float64 `csv:"volume"`
}

// ImportCandlesCSV backfills historical bars from a CSV export into the
// store. Timestamps must be RFC3339. Returns the number of imported rows.
func ImportCandlesCSV(ctx context.Context, r io.Reader, symbol string, timeframe eventmodels.Timeframe, store TimeSeriesStore) (int, error) {
	var dtos []csvCandleDTO
	if err := gocsv.Unmarshal(r, &dtos); err != nil {
		return 0, fmt.Errorf("ImportCandlesCSV: failed to parse csv: %w", err)
	}

	candles := make([]eventmodels.Candle, 0, len(dtos))
	for i, dto := range dtos {
		timestamp, err := time.Parse(time.RFC3339, dto.Timestamp)
		if err != nil {
			return 0, fmt.Errorf("ImportCandlesCSV: row %d: invalid timestamp %q: %w", i+1, dto.Timestamp, err)
		}

		candles = append(candles, eventmodels.Candle{
			Symbol:     symbol,
			Timeframe:  timeframe,
			Timestamp:  timestamp.UTC(),
			Open:       dto.Open,
			High:       dto.High,
			Low:        dto.Low,
			Close:      dto.Close,
			Volume:     dto.Volume,
			IsComplete: true,
		})
	}

	if err := store.StoreCandles(ctx, candles); err != nil {
		return 0, fmt.Errorf("ImportCandlesCSV: failed to store candles: %w", err)
	}

	return len(candles), nil
}
