package eventmodels

import "time"

// Tick is a single market data update. Ticks are consumed once by the
// candle aggregator and are not retained.
type Tick struct {
	Symbol    string
	Price     float64
	Volume    float64
	Timestamp time.Time
}
