package strategy

import (
	"github.com/avinashpai/market-signals/src/eventmodels"
	"github.com/avinashpai/market-signals/src/eventservices"
)

// Proposal is a strategy's candidate action. Nil means no trade this cycle.
type Proposal struct {
	Action     eventmodels.SignalAction
	EntryPrice float64
	StopLoss   float64
	Target     float64
}

// Strategy is the pluggable decision logic fed by the merged series. The
// pipeline only requires this minimal surface; richer strategy frameworks
// live outside the core.
type Strategy interface {
	Name() string
	Evaluate(series *eventservices.MergedSeries) (*Proposal, error)
}
