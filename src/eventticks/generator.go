package eventticks

import (
	"context"
	"math/rand"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/avinashpai/market-signals/src/eventmodels"
)

// TickGenerator emits random-walk ticks for a set of symbols, rate limited
// so a replay cannot outrun the pipeline. Used by the tick_generator
// command and in local development.
type TickGenerator struct {
	symbols    []string
	prices     map[string]float64
	step       float64
	limiter    *rate.Limiter
	clockStart time.Time
	clockTick  time.Duration
}

// NewTickGenerator starts each symbol at startPrice and moves it by at most
// step per tick. ticksPerSecond bounds the emission rate. If clockTick is
// non-zero, tick timestamps advance by clockTick per emission starting at
// clockStart instead of using wall time, which lets replays cross interval
// boundaries quickly.
func NewTickGenerator(symbols []string, startPrice float64, step float64, ticksPerSecond float64, clockStart time.Time, clockTick time.Duration) *TickGenerator {
	prices := make(map[string]float64, len(symbols))
	for _, symbol := range symbols {
		prices[symbol] = startPrice
	}

	return &TickGenerator{
		symbols:    symbols,
		prices:     prices,
		step:       step,
		limiter:    rate.NewLimiter(rate.Limit(ticksPerSecond), 1),
		clockStart: clockStart,
		clockTick:  clockTick,
	}
}

// Run pushes ticks into sink until ctx is cancelled or count ticks have
// been emitted (count <= 0 means run until cancelled).
func (g *TickGenerator) Run(ctx context.Context, count int, sink func(eventmodels.Tick)) error {
	emitted := 0
	now := g.clockStart

	for count <= 0 || emitted < count {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}

		for _, symbol := range g.symbols {
			price := g.prices[symbol] + (rand.Float64()*2-1)*g.step
			if price <= 0 {
				price = g.step
			}
			g.prices[symbol] = price

			timestamp := time.Now().UTC()
			if g.clockTick > 0 {
				timestamp = now
			}

			sink(eventmodels.Tick{
				Symbol:    symbol,
				Price:     price,
				Volume:    float64(rand.Intn(100) + 1),
				Timestamp: timestamp,
			})
		}

		if g.clockTick > 0 {
			now = now.Add(g.clockTick)
		}

		emitted++
	}

	log.Infof("TickGenerator: emitted %d ticks per symbol", emitted)

	return nil
}
