package eventmodels

import (
	"fmt"
	"time"
)

type Timeframe string

const (
	Timeframe1M  Timeframe = "1m"
	Timeframe5M  Timeframe = "5m"
	Timeframe15M Timeframe = "15m"
	Timeframe1H  Timeframe = "1h"
	Timeframe1D  Timeframe = "1d"
)

var timeframeDurations = map[Timeframe]time.Duration{
	Timeframe1M:  1 * time.Minute,
	Timeframe5M:  5 * time.Minute,
	Timeframe15M: 15 * time.Minute,
	Timeframe1H:  1 * time.Hour,
	Timeframe1D:  24 * time.Hour,
}

func ParseTimeframe(value string) (Timeframe, error) {
	tf := Timeframe(value)
	if _, found := timeframeDurations[tf]; !found {
		return "", fmt.Errorf("ParseTimeframe: unknown timeframe %q", value)
	}

	return tf, nil
}

func (tf Timeframe) Validate() error {
	if _, found := timeframeDurations[tf]; !found {
		return fmt.Errorf("Timeframe.Validate: unknown timeframe %q", string(tf))
	}

	return nil
}

func (tf Timeframe) Duration() time.Duration {
	return timeframeDurations[tf]
}

func (tf Timeframe) Minutes() int {
	return int(timeframeDurations[tf] / time.Minute)
}

// Truncate floors t to the start of the interval containing it.
func (tf Timeframe) Truncate(t time.Time) time.Time {
	return t.Truncate(timeframeDurations[tf])
}
