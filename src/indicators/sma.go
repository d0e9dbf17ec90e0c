package indicators

import (
	"fmt"

	"github.com/montanaflynn/stats"
)

// SMA returns the simple moving average of the last period values. The
// second return is false until enough values exist.
func SMA(values []float64, period int) (float64, bool, error) {
	if period <= 0 {
		return 0, false, fmt.Errorf("SMA: period must be positive, got %d", period)
	}

	if len(values) < period {
		return 0, false, nil
	}

	mean, err := stats.Mean(values[len(values)-period:])
	if err != nil {
		return 0, false, fmt.Errorf("SMA: failed to calculate mean: %v", err)
	}

	return mean, true, nil
}
