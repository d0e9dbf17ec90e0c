package eventmodels

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type SignalAction string

const (
	SignalActionBuy  SignalAction = "BUY"
	SignalActionSell SignalAction = "SELL"
)

func (a SignalAction) Validate() error {
	if a != SignalActionBuy && a != SignalActionSell {
		return fmt.Errorf("SignalAction.Validate: unknown action %q", string(a))
	}

	return nil
}

func (a SignalAction) Opposite() SignalAction {
	if a == SignalActionBuy {
		return SignalActionSell
	}

	return SignalActionBuy
}

type SignalStatus string

const (
	SignalStatusPending   SignalStatus = "pending"
	SignalStatusActive    SignalStatus = "active"
	SignalStatusCompleted SignalStatus = "completed"
	SignalStatusStopped   SignalStatus = "stopped"
)

// Signal is a strategy's trading instruction. It is immutable after
// creation; status transitions are owned by external position logic.
type Signal struct {
	ID         uuid.UUID
	Symbol     string
	Strategy   string
	Action     SignalAction
	EntryPrice float64
	StopLoss   float64
	Target     float64
	Timestamp  time.Time
	Status     SignalStatus
}

func NewSignal(symbol string, strategy string, action SignalAction, entryPrice float64, stopLoss float64, target float64, timestamp time.Time) *Signal {
	return &Signal{
		ID:         uuid.New(),
		Symbol:     symbol,
		Strategy:   strategy,
		Action:     action,
		EntryPrice: entryPrice,
		StopLoss:   stopLoss,
		Target:     target,
		Timestamp:  timestamp,
		Status:     SignalStatusPending,
	}
}

func (s *Signal) Validate() error {
	if s.Symbol == "" {
		return fmt.Errorf("Signal.Validate: missing symbol: %w", ValidationErr)
	}

	if s.Strategy == "" {
		return fmt.Errorf("Signal.Validate: missing strategy: %w", ValidationErr)
	}

	if err := s.Action.Validate(); err != nil {
		return fmt.Errorf("Signal.Validate: %v: %w", err, ValidationErr)
	}

	if s.EntryPrice <= 0 || s.StopLoss <= 0 || s.Target <= 0 {
		return fmt.Errorf("Signal.Validate: entry price, stop loss and target must all be positive: %w", ValidationErr)
	}

	switch s.Action {
	case SignalActionBuy:
		if s.StopLoss >= s.EntryPrice || s.EntryPrice >= s.Target {
			return fmt.Errorf("Signal.Validate: BUY requires stop loss < entry < target, got %.2f / %.2f / %.2f: %w", s.StopLoss, s.EntryPrice, s.Target, ValidationErr)
		}
	case SignalActionSell:
		if s.Target >= s.EntryPrice || s.EntryPrice >= s.StopLoss {
			return fmt.Errorf("Signal.Validate: SELL requires target < entry < stop loss, got %.2f / %.2f / %.2f: %w", s.Target, s.EntryPrice, s.StopLoss, ValidationErr)
		}
	}

	return nil
}

// PriceInRange reports whether price sits strictly inside the signal's
// stop-loss/target band. While true, the signal is still considered active
// for deduplication purposes.
func (s *Signal) PriceInRange(price float64) bool {
	switch s.Action {
	case SignalActionBuy:
		return s.StopLoss < price && price < s.Target
	case SignalActionSell:
		return s.Target < price && price < s.StopLoss
	default:
		return false
	}
}

// RangeBounds returns the stop-loss/target band in ascending order.
func (s *Signal) RangeBounds() (float64, float64) {
	if s.StopLoss < s.Target {
		return s.StopLoss, s.Target
	}

	return s.Target, s.StopLoss
}
