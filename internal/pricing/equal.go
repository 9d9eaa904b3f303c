package pricing

import (
	"context"
)

// Equal matches the cheapest in-stock competitor exactly instead of
// undercutting it. With both thresholds configured the competitor price is
// clamped into the range; with a partial configuration the strategy only
// moves in the direction the missing bound leaves open.
type Equal struct {
	selector *CompetitorSelector
}

func NewEqual(selector *CompetitorSelector) *Equal {
	return &Equal{selector: selector}
}

func (s *Equal) Calculate(ctx context.Context, shopItemID string, currentPrice int64, opts Options) (*Result, error) {
	competitor, err := s.selector.SelectMinimal(ctx, shopItemID)
	if err != nil {
		return nil, err
	}
	if competitor == nil {
		return nil, nil
	}

	candidate, ok := equalCandidate(competitor.Price, currentPrice, opts)
	if !ok || candidate == currentPrice {
		return nil, nil
	}
	return &Result{NewPrice: candidate, CompetitorID: competitor.CompetitorID}, nil
}

func equalCandidate(competitorPrice, currentPrice int64, opts Options) (int64, bool) {
	if opts.MinimumThreshold != nil && opts.MaximumThreshold != nil {
		switch {
		case competitorPrice < *opts.MinimumThreshold:
			return *opts.MinimumThreshold, true
		case competitorPrice > *opts.MaximumThreshold:
			return *opts.MaximumThreshold, true
		default:
			return competitorPrice, true
		}
	}
	if opts.MinimumThreshold != nil {
		// Only a floor is configured: the strategy may only move upward.
		// Lowering is what the missing maximum would have bounded.
		if competitorPrice <= currentPrice {
			return 0, false
		}
		if competitorPrice < *opts.MinimumThreshold {
			return *opts.MinimumThreshold, true
		}
		return competitorPrice, true
	}
	if opts.MaximumThreshold != nil {
		// Only a ceiling is configured: downward moves only.
		if competitorPrice >= currentPrice {
			return 0, false
		}
		if competitorPrice > *opts.MaximumThreshold {
			return *opts.MaximumThreshold, true
		}
		return competitorPrice, true
	}
	return competitorPrice, true
}
