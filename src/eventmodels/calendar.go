package eventmodels

import (
	"math"
	"time"
)

// TradingMinutesPerDay bounds the active trading window of one session
// (6.5 hours for a regular equities session).
const TradingMinutesPerDay = 390

// SessionStart returns the start of the trading day containing t. Signals
// timestamped before the session start are ignored for deduplication.
func SessionStart(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// LookbackDays converts a requested number of bars at a timeframe into the
// calendar window that must be fetched from storage. The 1.5 multiplier
// absorbs weekends and holidays; the +10 is a fixed safety margin.
func LookbackDays(periods int, timeframe Timeframe) int {
	tradingDays := float64(periods*timeframe.Minutes()) / float64(TradingMinutesPerDay)
	return int(math.Ceil(tradingDays*1.5)) + 10
}
