package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/avinashpai/market-signals/src/eventconsumers"
	"github.com/avinashpai/market-signals/src/eventmodels"
	"github.com/avinashpai/market-signals/src/eventproducers"
	"github.com/avinashpai/market-signals/src/eventpubsub"
	"github.com/avinashpai/market-signals/src/eventservices"
	"github.com/avinashpai/market-signals/src/eventstore"
	"github.com/avinashpai/market-signals/src/eventticks"
	"github.com/avinashpai/market-signals/src/handler"
	"github.com/avinashpai/market-signals/src/logger"
	"github.com/avinashpai/market-signals/src/strategy"
	"github.com/avinashpai/market-signals/src/utils"
)

func buildStrategy(cfg utils.Config) (strategy.Strategy, error) {
	switch cfg.StrategyName {
	case "ma_crossover":
		return strategy.NewMACrossover(cfg.StrategyFastSMA, cfg.StrategySlowSMA, cfg.StopLossPercent, cfg.TargetPercent), nil
	case "bollinger_revert":
		return strategy.NewBollingerRevert(cfg.BollingerPeriod, cfg.BollingerBandWidth, cfg.StopLossPercent, cfg.TargetPercent), nil
	default:
		return nil, fmt.Errorf("buildStrategy: unknown strategy %q", cfg.StrategyName)
	}
}

func main() {
	configPath := flag.String("config", "", "path to yaml config file")
	flag.Parse()

	if err := utils.InitEnvironmentVariables(); err != nil {
		log.Fatalf("failed to init environment: %v", err)
	}

	cfg, err := utils.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger.Setup(cfg.LogLevel)

	timeframe, err := eventmodels.ParseTimeframe(cfg.Timeframe)
	if err != nil {
		log.Fatalf("invalid timeframe: %v", err)
	}

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatalf("invalid timezone %q: %v", cfg.Timezone, err)
	}

	var store eventstore.TimeSeriesStore
	if cfg.PostgresDSN != "" {
		pg, err := eventstore.NewPostgresStore(cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		store = pg
	} else {
		log.Warn("no postgres dsn configured, using in-memory store")
		store = eventstore.NewMemoryStore()
	}

	// The bus is constructed once and handed to every component: no
	// package-level singleton.
	bus := eventpubsub.NewBus(eventpubsub.BusConfig{
		HistorySize:    cfg.MaxEventHistory,
		HandlerTimeout: time.Duration(cfg.HandlerTimeoutSec) * time.Second,
	})

	aggregator := eventticks.NewCandleAggregator(bus, timeframe, cfg.MaxHistory)
	historical := eventservices.NewHistoricalCache(store, time.Duration(cfg.CacheTTLSeconds)*time.Second, eventmodels.Timeframe1M)
	dataManager := eventservices.NewStrategyDataManager(historical, aggregator)
	signalManager := eventproducers.NewSignalManager(store, bus, location)

	strat, err := buildStrategy(cfg)
	if err != nil {
		log.Fatalf("failed to build strategy: %v", err)
	}

	runner := eventconsumers.NewStrategyRunner(
		dataManager,
		signalManager,
		strat,
		eventservices.StrategyDataConfig{
			Timeframe:  timeframe,
			Periods:    cfg.Periods,
			MinPeriods: cfg.MinPeriods,
		},
	)
	runner.Start(bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.TickWebsocketURL != "" {
		source := eventticks.NewWebsocketTickSource(cfg.TickWebsocketURL)
		go func() {
			if err := source.Run(ctx, aggregator.Ingest); err != nil && ctx.Err() == nil {
				log.Errorf("tick source stopped: %v", err)
			}
		}()
	} else {
		log.Warn("no tick websocket configured, ingestion must be driven externally")
	}

	statusHandler := handler.NewStatusHandler(bus, aggregator, signalManager)
	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: statusHandler.Router(),
	}

	go func() {
		log.Infof("status api listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("http shutdown failed: %v", err)
	}
}
