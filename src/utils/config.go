package utils

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the plain key/value configuration surface of the pipeline.
type Config struct {
	Symbols            []string `yaml:"symbols"`
	Timeframe          string   `yaml:"timeframe"`
	Periods            int      `yaml:"periods"`
	MinPeriods         int      `yaml:"min_periods"`
	CacheTTLSeconds    int      `yaml:"cache_ttl_seconds"`
	MaxHistory         int      `yaml:"max_history"`
	MaxEventHistory    int      `yaml:"max_event_history"`
	Timezone           string   `yaml:"timezone"`
	ListenAddr         string   `yaml:"listen_addr"`
	PostgresDSN        string   `yaml:"postgres_dsn"`
	TickWebsocketURL   string   `yaml:"tick_websocket_url"`
	LogLevel           string   `yaml:"log_level"`
	StrategyName       string   `yaml:"strategy_name"`
	StrategyFastSMA    int      `yaml:"strategy_fast_sma"`
	StrategySlowSMA    int      `yaml:"strategy_slow_sma"`
	BollingerPeriod    int      `yaml:"bollinger_period"`
	BollingerBandWidth float64  `yaml:"bollinger_band_width"`
	StopLossPercent    float64  `yaml:"stop_loss_percent"`
	TargetPercent      float64  `yaml:"target_percent"`
	HandlerTimeoutSec  int      `yaml:"handler_timeout_seconds"`
}

func DefaultConfig() Config {
	return Config{
		Symbols:            []string{"SBIN"},
		Timeframe:          "15m",
		Periods:            200,
		MinPeriods:         50,
		CacheTTLSeconds:    300,
		MaxHistory:         500,
		MaxEventHistory:    1000,
		Timezone:           "UTC",
		ListenAddr:         ":8080",
		LogLevel:           "info",
		StrategyName:       "ma_crossover",
		StrategyFastSMA:    9,
		StrategySlowSMA:    21,
		BollingerPeriod:    20,
		BollingerBandWidth: 2.0,
		StopLossPercent:    0.01,
		TargetPercent:      0.02,
	}
}

// LoadConfig reads a yaml config file over the defaults. A missing path
// returns the defaults unchanged; env var POSTGRES_DSN overrides the file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("LoadConfig: failed to read %s: %w", path, err)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("LoadConfig: failed to parse %s: %w", path, err)
		}
	}

	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		cfg.PostgresDSN = dsn
	}

	return cfg, nil
}
