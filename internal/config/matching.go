package config

import (
	"fmt"
	"math"
)

// MatchingConfig holds the scoring policy for one tenant: decision
// thresholds, amount/date tolerances and the sub-score weights.
type MatchingConfig struct {
	// AutoThreshold is the minimum composite score at which a match is
	// committed without human review.
	AutoThreshold float64
	// ReviewThreshold is the floor below which a candidate is rejected
	// outright instead of being flagged.
	ReviewThreshold float64
	// AmountTolerance is the maximum relative amount difference that still
	// contributes a non-zero amount sub-score (0.02 = 2%).
	AmountTolerance float64
	// DateWindowDays is the span over which the date sub-score decays
	// linearly to zero.
	DateWindowDays int
	// TieEpsilon is the composite-score band within which two candidates
	// count as tied and fall through to the deterministic tie-breaks.
	TieEpsilon float64

	TextWeight   float64
	AmountWeight float64
	DateWeight   float64
}

func DefaultMatchingConfig() MatchingConfig {
	return MatchingConfig{
		AutoThreshold:   0.70,
		ReviewThreshold: 0.40,
		AmountTolerance: 0.02,
		DateWindowDays:  10,
		TieEpsilon:      0.01,
		TextWeight:      0.6,
		AmountWeight:    0.3,
		DateWeight:      0.1,
	}
}

func (c MatchingConfig) Validate() error {
	if c.AutoThreshold <= 0 || c.AutoThreshold > 1 {
		return fmt.Errorf("auto_threshold must be in (0,1], got %v", c.AutoThreshold)
	}
	if c.ReviewThreshold < 0 || c.ReviewThreshold >= c.AutoThreshold {
		return fmt.Errorf("review_threshold must be in [0, auto_threshold), got %v", c.ReviewThreshold)
	}
	if c.AmountTolerance <= 0 || c.AmountTolerance > 1 {
		return fmt.Errorf("amount_tolerance must be in (0,1], got %v", c.AmountTolerance)
	}
	if c.DateWindowDays <= 0 {
		return fmt.Errorf("date_window_days must be positive, got %d", c.DateWindowDays)
	}
	if c.TextWeight < 0 || c.AmountWeight < 0 || c.DateWeight < 0 {
		return fmt.Errorf("score weights must be non-negative")
	}
	if sum := c.TextWeight + c.AmountWeight + c.DateWeight; math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("score weights must sum to 1.0, got %v", sum)
	}
	return nil
}
