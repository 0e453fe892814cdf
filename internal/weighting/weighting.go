// Package weighting computes the influence multiplier applied to a review
// before it enters a reputation average. The engine is pure: risk-level
// penalties are applied by callers, never here.
package weighting

import "time"

const (
	// MinWeight and MaxWeight bound every computed weight.
	MinWeight = 0.1
	MaxWeight = 2.0

	highValueThreshold = 1000.0
	lowValueThreshold  = 10.0

	trustedMinRating  = 4.5
	trustedMinReviews = 50

	newReviewerMaxAge = 7 * 24 * time.Hour
	decayYoungAge     = 30 * 24 * time.Hour
	decayMidAge       = 90 * 24 * time.Hour

	verifiedBusinessMultiplier    = 1.2
	unverifiedAccountMultiplier   = 0.5
	highValueMultiplier           = 1.5
	lowValueMultiplier            = 0.5
	trustedReviewerMultiplier     = 1.3
	newReviewerMultiplier         = 0.6
	verifiedTransactionMultiplier = 1.4

	decayYoungMultiplier = 0.6
	decayMidMultiplier   = 0.8
)

// Input carries everything ComputeWeight needs about the reviewer and the
// transaction the review is attached to.
type Input struct {
	ReviewerVerified      bool          // identity verification passed
	VerifiedBusiness      bool          // business account with completed verification
	ReviewerAccountAge    time.Duration // age at submission time
	ReviewerAvgRating     float64
	ReviewerReviewCount   int
	TransactionValue      *float64 // nil when the parties did not declare one
	IsVerifiedTransaction bool     // both parties confirmed location at handoff
}

// Breakdown reports which modifiers fired, for audit surfaces.
type Breakdown struct {
	Weight    float64            `json:"weight"`
	Modifiers map[string]float64 `json:"modifiers"`
}

// ComputeWeight multiplies the applicable modifiers onto a base of 1.0 and
// clamps the result to [MinWeight, MaxWeight].
func ComputeWeight(in Input) float64 {
	return ComputeWeightBreakdown(in).Weight
}

// ComputeWeightBreakdown is ComputeWeight plus the per-modifier trace.
func ComputeWeightBreakdown(in Input) Breakdown {
	weight := 1.0
	mods := make(map[string]float64)

	apply := func(name string, m float64) {
		weight *= m
		mods[name] = m
	}

	if in.VerifiedBusiness {
		apply("verified_business", verifiedBusinessMultiplier)
	}
	if !in.ReviewerVerified {
		apply("unverified_account", unverifiedAccountMultiplier)
	}

	if in.TransactionValue != nil {
		switch v := *in.TransactionValue; {
		case v > highValueThreshold:
			apply("high_value", highValueMultiplier)
		case v < lowValueThreshold:
			apply("low_value", lowValueMultiplier)
		}
	}

	if in.ReviewerAvgRating >= trustedMinRating && in.ReviewerReviewCount >= trustedMinReviews {
		apply("trusted_reviewer", trustedReviewerMultiplier)
	}

	newReviewer := in.ReviewerAccountAge < newReviewerMaxAge
	if newReviewer {
		apply("new_reviewer", newReviewerMultiplier)
	}

	if in.IsVerifiedTransaction {
		apply("verified_transaction", verifiedTransactionMultiplier)
	}

	// Account-age decay. The new-reviewer modifier already prices in a
	// brand-new account, so the two never stack.
	if !newReviewer {
		switch {
		case in.ReviewerAccountAge < decayYoungAge:
			apply("age_decay", decayYoungMultiplier)
		case in.ReviewerAccountAge < decayMidAge:
			apply("age_decay", decayMidMultiplier)
		}
	}

	if weight < MinWeight {
		weight = MinWeight
	}
	if weight > MaxWeight {
		weight = MaxWeight
	}
	return Breakdown{Weight: weight, Modifiers: mods}
}
