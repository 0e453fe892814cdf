package reputation

import "github.com/swapgrid/trust-engine/internal/identity"

// Badge identifiers.
const (
	BadgeVerifiedIdentity = "verified_identity"
	BadgeVerifiedBusiness = "verified_business"
	BadgeTopRated         = "top_rated"
	BadgeVeteranTrader    = "veteran_trader"
	BadgeFastCloser       = "fast_closer"
	BadgeDisputeFree      = "dispute_free"
)

const (
	topRatedMinRating    = 4.8
	topRatedMinReviews   = 25
	veteranMinTrades     = 100
	fastCloserMaxHours   = 48.0
	fastCloserMinTrades  = 10
	disputeFreeMinTrades = 20
)

type badgePredicate func(profile *identity.Profile, avgRating float64, totalReviews int, stats TradeStats) bool

// Badges are independent pure predicates, re-evaluated on every recompute.
// A user who stops qualifying loses the badge on the next pass.
var badgePredicates = []struct {
	name string
	test badgePredicate
}{
	{BadgeVerifiedIdentity, func(p *identity.Profile, _ float64, _ int, _ TradeStats) bool {
		return p.IdentityVerified
	}},
	{BadgeVerifiedBusiness, func(p *identity.Profile, _ float64, _ int, _ TradeStats) bool {
		return p.AccountType == identity.AccountTypeBusiness && p.BusinessVerified
	}},
	{BadgeTopRated, func(_ *identity.Profile, avg float64, total int, _ TradeStats) bool {
		return avg >= topRatedMinRating && total >= topRatedMinReviews
	}},
	{BadgeVeteranTrader, func(_ *identity.Profile, _ float64, _ int, stats TradeStats) bool {
		return stats.CompletedTrades >= veteranMinTrades
	}},
	{BadgeFastCloser, func(_ *identity.Profile, _ float64, _ int, stats TradeStats) bool {
		return stats.CompletedTrades >= fastCloserMinTrades && stats.AvgCompletionHours > 0 &&
			stats.AvgCompletionHours <= fastCloserMaxHours
	}},
	{BadgeDisputeFree, func(_ *identity.Profile, _ float64, _ int, stats TradeStats) bool {
		return stats.CompletedTrades >= disputeFreeMinTrades && stats.DisputedTrades == 0
	}},
}

func evaluateBadges(profile *identity.Profile, avgRating float64, totalReviews int, stats TradeStats) []string {
	badges := make([]string, 0, len(badgePredicates))
	for _, b := range badgePredicates {
		if b.test(profile, avgRating, totalReviews, stats) {
			badges = append(badges, b.name)
		}
	}
	return badges
}
