package reputation

import (
	"github.com/swapgrid/trust-engine/internal/identity"
	"github.com/swapgrid/trust-engine/internal/reviews"
)

// Trust tier thresholds.
const (
	verifiedMinReviews    = 100
	verifiedMinDiversity  = 0.7
	establishedMinReviews = 20
	emergingMinReviews    = 5
)

// diversityScore buckets the unique-counterparty ratio. Trading the same
// few partners over and over scores low no matter the volume.
func diversityScore(stats TradeStats) float64 {
	if stats.CompletedTrades == 0 {
		return 0
	}
	ratio := float64(stats.UniqueCounterparts) / float64(stats.CompletedTrades)
	switch {
	case ratio > 0.8:
		return 1.0
	case ratio > 0.5:
		return 0.8
	case ratio > 0.3:
		return 0.5
	default:
		return 0.2
	}
}

// trustLevel picks the highest tier the inputs qualify for.
func trustLevel(totalReviews int, diversity float64, identityVerified bool) TrustLevel {
	switch {
	case totalReviews >= verifiedMinReviews && diversity > verifiedMinDiversity && identityVerified:
		return TrustLevelVerified
	case totalReviews >= verifiedMinReviews && diversity > verifiedMinDiversity:
		return TrustLevelTrusted
	case totalReviews >= establishedMinReviews:
		return TrustLevelEstablished
	case totalReviews >= emergingMinReviews:
		return TrustLevelEmerging
	default:
		return TrustLevelNew
	}
}

// Calculate derives a reputation score from visible reviews, trade history
// and the profile. Pure; persistence and events happen in the service.
func Calculate(profile *identity.Profile, visible []*reviews.Review, stats TradeStats) *Score {
	var weightSum, ratingSum float64
	verified := 0
	for _, rv := range visible {
		ratingSum += rv.WeightedRating()
		weightSum += rv.Weight
		if rv.IsVerified {
			verified++
		}
	}

	avg := 0.0
	if weightSum > 0 {
		avg = ratingSum / weightSum
	}

	diversity := diversityScore(stats)
	score := &Score{
		UserID:              profile.ID,
		AverageRating:       avg,
		TotalReviews:        len(visible),
		VerifiedReviews:     verified,
		TradeDiversityScore: diversity,
		TrustLevel:          trustLevel(len(visible), diversity, profile.IdentityVerified),
		Badges:              evaluateBadges(profile, avg, len(visible), stats),
	}
	return score
}
