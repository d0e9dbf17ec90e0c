package main

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/avinashpai/market-signals/src/eventmodels"
	"github.com/avinashpai/market-signals/src/eventstore"
	"github.com/avinashpai/market-signals/src/utils"
)

var runCmd = &cobra.Command{
	Use:   "go run src/cmd/import_candles/main.go --csv data.csv --symbol SBIN --timeframe 1m",
	Short: "Backfill historical candles from a CSV export into the time-series store",
	Run: func(cmd *cobra.Command, args []string) {
		csvPath, err := cmd.Flags().GetString("csv")
		if err != nil {
			log.Fatalf("error getting csv: %v", err)
		}

		symbol, err := cmd.Flags().GetString("symbol")
		if err != nil {
			log.Fatalf("error getting symbol: %v", err)
		}

		timeframeStr, err := cmd.Flags().GetString("timeframe")
		if err != nil {
			log.Fatalf("error getting timeframe: %v", err)
		}

		if err := Run(csvPath, symbol, timeframeStr); err != nil {
			log.Fatalf("Error: %v", err)
		}
	},
}

func Run(csvPath string, symbol string, timeframeStr string) error {
	if err := utils.InitEnvironmentVariables(); err != nil {
		return fmt.Errorf("Run: %w", err)
	}

	timeframe, err := eventmodels.ParseTimeframe(timeframeStr)
	if err != nil {
		return fmt.Errorf("Run: %w", err)
	}

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		return fmt.Errorf("Run: missing POSTGRES_DSN environment variable")
	}

	store, err := eventstore.NewPostgresStore(dsn)
	if err != nil {
		return fmt.Errorf("Run: %w", err)
	}

	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("Run: failed to open %s: %w", csvPath, err)
	}

	defer f.Close()

	count, err := eventstore.ImportCandlesCSV(context.Background(), f, symbol, timeframe, store)
	if err != nil {
		return fmt.Errorf("Run: %w", err)
	}

	log.Infof("imported %d candles for %s", count, symbol)

	return nil
}

func main() {
	runCmd.Flags().String("csv", "", "path to the csv file")
	runCmd.Flags().String("symbol", "", "symbol the rows belong to")
	runCmd.Flags().String("timeframe", "1m", "timeframe of the csv rows")
	runCmd.MarkFlagRequired("csv")
	runCmd.MarkFlagRequired("symbol")

	if err := runCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
