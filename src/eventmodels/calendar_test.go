package eventmodels

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookbackDays(t *testing.T) {
	t.Run("1000 bars of 15m need 68 calendar days", func(t *testing.T) {
		// 1000 x 15 / 390 x 1.5 = 57.7 -> 58, plus the 10 day margin.
		assert.Equal(t, 68, LookbackDays(1000, Timeframe15M))
	})

	t.Run("small requests still carry the safety margin", func(t *testing.T) {
		assert.Equal(t, 11, LookbackDays(10, Timeframe15M))
	})

	t.Run("daily bars scale with the full day", func(t *testing.T) {
		// 20 x 1440 / 390 x 1.5 = 110.8 -> 111, plus 10.
		assert.Equal(t, 121, LookbackDays(20, Timeframe1D))
	})
}

func TestSessionStart(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	t.Run("session starts at local midnight", func(t *testing.T) {
		ts := time.Date(2025, 3, 10, 11, 30, 0, 0, loc)
		assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, loc), SessionStart(ts, loc))
	})

	t.Run("utc timestamps resolve to the local trading day", func(t *testing.T) {
		// 20:00 UTC on March 10 is already March 11 in Kolkata.
		ts := time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2025, 3, 11, 0, 0, 0, 0, loc), SessionStart(ts, loc))
	})
}
