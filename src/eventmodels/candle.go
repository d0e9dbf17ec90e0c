package eventmodels

import "time"

// Candle is one OHLCV bar. Timestamp marks the start of the interval. A
// candle is mutated in place while its interval is open and sealed
// (IsComplete=true) once the interval elapses.
type Candle struct {
	Symbol      string
	Timeframe   Timeframe
	Timestamp   time.Time
	LastUpdated time.Time
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
	IsComplete  bool
}

func NewCandle(symbol string, timeframe Timeframe, start time.Time, price float64, volume float64) *Candle {
	return &Candle{
		Symbol:      symbol,
		Timeframe:   timeframe,
		Timestamp:   start,
		LastUpdated: start,
		Open:        price,
		High:        price,
		Low:         price,
		Close:       price,
		Volume:      volume,
	}
}

func (c *Candle) Update(price float64, volume float64) {
	if price > c.High {
		c.High = price
	}

	if price < c.Low {
		c.Low = price
	}

	c.Close = price
	c.Volume += volume
	c.LastUpdated = time.Now().UTC()
}

func (c *Candle) Seal() {
	c.IsComplete = true
}
