package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkuzmin/repricer-worker/internal/models"
)

// ErrUnknownStrategy means a pool item references a strategy type no
// calculator is registered for.
var ErrUnknownStrategy = errors.New("unknown pricing strategy")

// Options carries the per-item strategy configuration. All prices are minor
// units; nil pointers mean the bound is not configured.
type Options struct {
	Step             int64
	MinimumThreshold *int64
	MaximumThreshold *int64
	Discount         *int64 // percent, applied downstream when building the sku payload
}

// Result is a proposed price change. A nil *Result from Calculate means the
// current price should stand.
type Result struct {
	NewPrice     int64
	CompetitorID string // id of the competitor link that drove the decision
}

// Strategy computes a new price for one pool item, or nil when no change is
// warranted.
type Strategy interface {
	Calculate(ctx context.Context, shopItemID string, currentPrice int64, opts Options) (*Result, error)
}

// Registry maps a pool item's configured strategy type to its calculator.
// StrategyQuantityDependent is intentionally absent: the type exists in the
// data model but has no calculator yet, and selecting it is an error.
type Registry struct {
	strategies map[models.StrategyType]Strategy
}

func NewRegistry(selector *CompetitorSelector) *Registry {
	return &Registry{
		strategies: map[models.StrategyType]Strategy{
			models.StrategyCloseToMinimal: NewCloseToMinimal(selector),
			models.StrategyEqual:          NewEqual(selector),
		},
	}
}

func (r *Registry) Get(strategyType models.StrategyType) (Strategy, error) {
	strategy, ok := r.strategies[strategyType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategyType)
	}
	return strategy, nil
}
