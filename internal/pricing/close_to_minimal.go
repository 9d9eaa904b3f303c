package pricing

import (
	"context"
)

// CloseToMinimal undercuts the cheapest in-stock competitor by the configured
// step, then clamps the candidate into the item's threshold range. The
// minimum clamp takes precedence: when it fires, the maximum is not applied.
type CloseToMinimal struct {
	selector *CompetitorSelector
}

func NewCloseToMinimal(selector *CompetitorSelector) *CloseToMinimal {
	return &CloseToMinimal{selector: selector}
}

func (s *CloseToMinimal) Calculate(ctx context.Context, shopItemID string, currentPrice int64, opts Options) (*Result, error) {
	competitor, err := s.selector.SelectMinimal(ctx, shopItemID)
	if err != nil {
		return nil, err
	}
	if competitor == nil {
		return nil, nil
	}

	candidate := competitor.Price - opts.Step
	if opts.MinimumThreshold != nil && candidate < *opts.MinimumThreshold {
		candidate = *opts.MinimumThreshold
	} else if opts.MaximumThreshold != nil && candidate > *opts.MaximumThreshold {
		candidate = *opts.MaximumThreshold
	}

	if candidate == currentPrice {
		return nil, nil
	}
	return &Result{NewPrice: candidate, CompetitorID: competitor.CompetitorID}, nil
}
