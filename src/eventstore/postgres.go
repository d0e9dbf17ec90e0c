package eventstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/avinashpai/market-signals/src/eventmodels"
	"github.com/avinashpai/market-signals/src/logger"
)

type CandleRecord struct {
	ID        uint      `gorm:"primaryKey"`
	Symbol    string    `gorm:"column:symbol;type:text;not null;index:idx_candles_symbol_tf_ts,priority:1"`
	Timeframe string    `gorm:"column:timeframe;type:text;not null;index:idx_candles_symbol_tf_ts,priority:2"`
	Timestamp time.Time `gorm:"column:timestamp;type:timestamptz;not null;index:idx_candles_symbol_tf_ts,priority:3"`
	Open      float64   `gorm:"column:open;type:numeric;not null"`
	High      float64   `gorm:"column:high;type:numeric;not null"`
	Low       float64   `gorm:"column:low;type:numeric;not null"`
	Close     float64   `gorm:"column:close;type:numeric;not null"`
	Volume    float64   `gorm:"column:volume;type:numeric;not null"`
}

func (CandleRecord) TableName() string {
	return "candles"
}

type SignalRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Symbol     string    `gorm:"column:symbol;type:text;not null;index:idx_signals_symbol_strategy_ts,priority:1"`
	Strategy   string    `gorm:"column:strategy;type:text;not null;index:idx_signals_symbol_strategy_ts,priority:2"`
	Action     string    `gorm:"column:action;type:text;not null"`
	EntryPrice float64   `gorm:"column:entry_price;type:numeric;not null"`
	StopLoss   float64   `gorm:"column:stop_loss;type:numeric;not null"`
	Target     float64   `gorm:"column:target;type:numeric;not null"`
	Timestamp  time.Time `gorm:"column:timestamp;type:timestamptz;not null;index:idx_signals_symbol_strategy_ts,priority:3"`
	Status     string    `gorm:"column:status;type:text;not null"`
	CreatedAt  time.Time
}

func (SignalRecord) TableName() string {
	return "signals"
}

// PostgresStore implements TimeSeriesStore on Postgres via gorm. Errors are
// wrapped with StoreUnavailableErr so callers can apply their fail-open or
// insufficiency policies without inspecting driver errors.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.NewLogrusLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("NewPostgresStore: failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&CandleRecord{}, &SignalRecord{}); err != nil {
		return nil, fmt.Errorf("NewPostgresStore: failed to migrate schema: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) FetchCandles(ctx context.Context, symbol string, timeframe eventmodels.Timeframe, from time.Time, to time.Time) ([]eventmodels.Candle, error) {
	var records []CandleRecord

	tx := s.db.WithContext(ctx).
		Where("symbol = ? AND timeframe = ? AND timestamp >= ? AND timestamp <= ?", symbol, string(timeframe), from, to).
		Order("timestamp asc").
		Find(&records)

	if tx.Error != nil {
		return nil, fmt.Errorf("PostgresStore.FetchCandles: %v: %w", tx.Error, eventmodels.StoreUnavailableErr)
	}

	candles := make([]eventmodels.Candle, 0, len(records))
	for _, r := range records {
		candles = append(candles, eventmodels.Candle{
			Symbol:     r.Symbol,
			Timeframe:  eventmodels.Timeframe(r.Timeframe),
			Timestamp:  r.Timestamp,
			Open:       r.Open,
			High:       r.High,
			Low:        r.Low,
			Close:      r.Close,
			Volume:     r.Volume,
			IsComplete: true,
		})
	}

	return candles, nil
}

func (s *PostgresStore) StoreCandles(ctx context.Context, candles []eventmodels.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	records := make([]CandleRecord, 0, len(candles))
	for _, c := range candles {
		records = append(records, CandleRecord{
			Symbol:    c.Symbol,
			Timeframe: string(c.Timeframe),
			Timestamp: c.Timestamp,
			Open:      c.Open,
			High:      c.High,
			Low:       c.Low,
			Close:     c.Close,
			Volume:    c.Volume,
		})
	}

	if tx := s.db.WithContext(ctx).Create(&records); tx.Error != nil {
		return fmt.Errorf("PostgresStore.StoreCandles: %v: %w", tx.Error, eventmodels.StoreUnavailableErr)
	}

	return nil
}

func (s *PostgresStore) GetLastSignal(ctx context.Context, symbol string, strategy string, since time.Time) (*eventmodels.Signal, error) {
	var record SignalRecord

	tx := s.db.WithContext(ctx).
		Where("symbol = ? AND strategy = ? AND timestamp >= ?", symbol, strategy, since).
		Order("timestamp desc").
		First(&record)

	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("PostgresStore.GetLastSignal: %v: %w", tx.Error, eventmodels.StoreUnavailableErr)
	}

	return &eventmodels.Signal{
		ID:         record.ID,
		Symbol:     record.Symbol,
		Strategy:   record.Strategy,
		Action:     eventmodels.SignalAction(record.Action),
		EntryPrice: record.EntryPrice,
		StopLoss:   record.StopLoss,
		Target:     record.Target,
		Timestamp:  record.Timestamp,
		Status:     eventmodels.SignalStatus(record.Status),
	}, nil
}

func (s *PostgresStore) StoreSignal(ctx context.Context, signal *eventmodels.Signal) error {
	record := SignalRecord{
		ID:         signal.ID,
		Symbol:     signal.Symbol,
		Strategy:   signal.Strategy,
		Action:     string(signal.Action),
		EntryPrice: signal.EntryPrice,
		StopLoss:   signal.StopLoss,
		Target:     signal.Target,
		Timestamp:  signal.Timestamp,
		Status:     string(signal.Status),
	}

	if tx := s.db.WithContext(ctx).Create(&record); tx.Error != nil {
		return fmt.Errorf("PostgresStore.StoreSignal: %v: %w", tx.Error, eventmodels.StoreUnavailableErr)
	}

	return nil
}
