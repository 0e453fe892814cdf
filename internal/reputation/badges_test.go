package reputation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/swapgrid/trust-engine/internal/identity"
)

func TestBadges_VerificationFlags(t *testing.T) {
	p := &identity.Profile{IdentityVerified: true}
	badges := evaluateBadges(p, 0, 0, TradeStats{})
	assert.Contains(t, badges, BadgeVerifiedIdentity)
	assert.NotContains(t, badges, BadgeVerifiedBusiness)

	p.AccountType = identity.AccountTypeBusiness
	p.BusinessVerified = true
	badges = evaluateBadges(p, 0, 0, TradeStats{})
	assert.Contains(t, badges, BadgeVerifiedBusiness)
}

func TestBadges_BusinessFlagRequiresBusinessAccount(t *testing.T) {
	p := &identity.Profile{AccountType: identity.AccountTypeStandard, BusinessVerified: true}
	badges := evaluateBadges(p, 0, 0, TradeStats{})
	assert.NotContains(t, badges, BadgeVerifiedBusiness)
}

func TestBadges_TopRated(t *testing.T) {
	p := &identity.Profile{}
	assert.Contains(t, evaluateBadges(p, 4.8, 25, TradeStats{}), BadgeTopRated)
	assert.NotContains(t, evaluateBadges(p, 4.8, 24, TradeStats{}), BadgeTopRated)
	assert.NotContains(t, evaluateBadges(p, 4.7, 100, TradeStats{}), BadgeTopRated)
}

func TestBadges_TradeHistory(t *testing.T) {
	p := &identity.Profile{}

	stats := TradeStats{CompletedTrades: 100, AvgCompletionHours: 12}
	badges := evaluateBadges(p, 0, 0, stats)
	assert.Contains(t, badges, BadgeVeteranTrader)
	assert.Contains(t, badges, BadgeFastCloser)
	assert.Contains(t, badges, BadgeDisputeFree)

	stats.DisputedTrades = 1
	badges = evaluateBadges(p, 0, 0, stats)
	assert.NotContains(t, badges, BadgeDisputeFree)

	stats.AvgCompletionHours = 72
	badges = evaluateBadges(p, 0, 0, stats)
	assert.NotContains(t, badges, BadgeFastCloser)
}

// Badges are recomputed from scratch each pass, so losing a qualification
// drops the badge instead of keeping it forever.
func TestBadges_Revocable(t *testing.T) {
	p := &identity.Profile{}

	first := evaluateBadges(p, 4.9, 30, TradeStats{})
	assert.Contains(t, first, BadgeTopRated)

	second := evaluateBadges(p, 4.5, 40, TradeStats{})
	assert.NotContains(t, second, BadgeTopRated)
}
