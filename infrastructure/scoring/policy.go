package scoring

import (
	"math"

	"github.com/ahrav/go-tender/internal/domain"
)

// ShouldAutoShortlist reports whether a freshly evaluated bid qualifies for
// automatic promotion: automation must be enabled and the total must reach
// the threshold. It never returns true when enabled is false.
func ShouldAutoShortlist(totalScore, threshold float64, enabled bool) bool {
	return enabled && totalScore >= threshold
}

// ValidateThreshold rejects thresholds outside [0,100] and non-numbers.
func ValidateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold < MinScore || threshold > MaxScore {
		return domain.Invalid("shortlist_threshold", "threshold %v must be between 0 and 100", threshold)
	}
	return nil
}

// AutoShortlistDecision returns the status a bid should move to after an
// evaluation with the given total, and whether a move is needed. Only
// promotable bids are promoted; everything else is left as is.
func AutoShortlistDecision(current domain.BidStatus, totalScore float64, policy domain.ShortlistPolicy) (domain.BidStatus, bool) {
	if !domain.Promotable(current) {
		return current, false
	}
	if !ShouldAutoShortlist(totalScore, policy.Threshold, policy.Enabled) {
		return current, false
	}
	return domain.StatusShortlisted, true
}
