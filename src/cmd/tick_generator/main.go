package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/avinashpai/market-signals/src/eventconsumers"
	"github.com/avinashpai/market-signals/src/eventmodels"
	"github.com/avinashpai/market-signals/src/eventproducers"
	"github.com/avinashpai/market-signals/src/eventpubsub"
	"github.com/avinashpai/market-signals/src/eventservices"
	"github.com/avinashpai/market-signals/src/eventstore"
	"github.com/avinashpai/market-signals/src/eventticks"
	"github.com/avinashpai/market-signals/src/strategy"
)

type RunArgs struct {
	Symbols        []string
	Timeframe      string
	Ticks          int
	TicksPerSecond float64
	StartPrice     float64
	Step           float64
}

var runCmd = &cobra.Command{
	Use:   "go run src/cmd/tick_generator/main.go --symbols SBIN --ticks 5000",
	Short: "Replay random-walk ticks through the full pipeline and print the emitted signals",
	Run: func(cmd *cobra.Command, args []string) {
		symbols, err := cmd.Flags().GetStringSlice("symbols")
		if err != nil {
			log.Fatalf("error getting symbols: %v", err)
		}

		timeframe, err := cmd.Flags().GetString("timeframe")
		if err != nil {
			log.Fatalf("error getting timeframe: %v", err)
		}

		ticks, err := cmd.Flags().GetInt("ticks")
		if err != nil {
			log.Fatalf("error getting ticks: %v", err)
		}

		rate, err := cmd.Flags().GetFloat64("rate")
		if err != nil {
			log.Fatalf("error getting rate: %v", err)
		}

		startPrice, err := cmd.Flags().GetFloat64("start-price")
		if err != nil {
			log.Fatalf("error getting start-price: %v", err)
		}

		step, err := cmd.Flags().GetFloat64("step")
		if err != nil {
			log.Fatalf("error getting step: %v", err)
		}

		if err := Run(RunArgs{
			Symbols:        symbols,
			Timeframe:      timeframe,
			Ticks:          ticks,
			TicksPerSecond: rate,
			StartPrice:     startPrice,
			Step:           step,
		}); err != nil {
			log.Fatalf("Error: %v", err)
		}
	},
}

func Run(args RunArgs) error {
	timeframe, err := eventmodels.ParseTimeframe(args.Timeframe)
	if err != nil {
		return fmt.Errorf("Run: %w", err)
	}

	store := eventstore.NewMemoryStore()
	bus := eventpubsub.NewBus(eventpubsub.BusConfig{})

	aggregator := eventticks.NewCandleAggregator(bus, timeframe, 1000)
	historical := eventservices.NewHistoricalCache(store, 5*time.Minute, eventmodels.Timeframe1M)
	dataManager := eventservices.NewStrategyDataManager(historical, aggregator)
	signalManager := eventproducers.NewSignalManager(store, bus, time.UTC)

	runner := eventconsumers.NewStrategyRunner(
		dataManager,
		signalManager,
		strategy.NewMACrossover(9, 21, 0.01, 0.02),
		eventservices.StrategyDataConfig{
			Timeframe:  timeframe,
			Periods:    200,
			MinPeriods: 30,
		},
	)
	runner.Start(bus)

	// The synthetic clock advances one minute per emission so interval
	// boundaries are crossed quickly.
	clockStart := timeframe.Truncate(time.Now().UTC().Add(-time.Duration(args.Ticks) * time.Minute))
	generator := eventticks.NewTickGenerator(args.Symbols, args.StartPrice, args.Step, args.TicksPerSecond, clockStart, time.Minute)

	if err := generator.Run(context.Background(), args.Ticks, aggregator.Ingest); err != nil {
		return fmt.Errorf("Run: generator failed: %w", err)
	}

	printSummary(store, bus, signalManager)

	return nil
}

func printSummary(store *eventstore.MemoryStore, bus *eventpubsub.Bus, signalManager *eventproducers.SignalManager) {
	signals := store.Signals()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Time", "Symbol", "Strategy", "Action", "Entry", "Stop", "Target"})

	for _, s := range signals {
		table.Append([]string{
			s.Timestamp.Format("15:04:05"),
			s.Symbol,
			s.Strategy,
			string(s.Action),
			fmt.Sprintf("%.2f", s.EntryPrice),
			fmt.Sprintf("%.2f", s.StopLoss),
			fmt.Sprintf("%.2f", s.Target),
		})
	}

	table.Render()

	busStats := bus.GetStats()
	signalStats := signalManager.Stats()

	fmt.Printf("events published: %d, handlers executed: %d, handlers failed: %d\n", busStats.EventsPublished, busStats.HandlersExecuted, busStats.HandlersFailed)
	fmt.Printf("signals generated: %d, duplicates skipped: %d\n", signalStats.Generated, signalStats.SkippedDuplicate)
}

func main() {
	runCmd.Flags().StringSlice("symbols", []string{"SBIN"}, "symbols to generate ticks for")
	runCmd.Flags().String("timeframe", "15m", "candle timeframe")
	runCmd.Flags().Int("ticks", 5000, "number of ticks per symbol")
	runCmd.Flags().Float64("rate", 1000, "ticks per second")
	runCmd.Flags().Float64("start-price", 500, "starting price for the random walk")
	runCmd.Flags().Float64("step", 0.5, "maximum price move per tick")

	if err := runCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
