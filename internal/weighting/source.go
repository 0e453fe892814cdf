package weighting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/swapgrid/trust-engine/internal/identity"
	"github.com/swapgrid/trust-engine/internal/transactions"
)

// ProfileSource resolves the reviewer's profile flags.
type ProfileSource interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*identity.Profile, error)
}

// StatsSource returns the reviewer's received-rating average and count.
type StatsSource interface {
	ReviewerStats(ctx context.Context, reviewerID uuid.UUID) (float64, int, error)
}

// RepoSource assembles a weight Input from the profile and review stores.
type RepoSource struct {
	profiles ProfileSource
	stats    StatsSource
	now      func() time.Time
}

// NewRepoSource creates a repository-backed weight input source.
func NewRepoSource(profiles ProfileSource, stats StatsSource) *RepoSource {
	return &RepoSource{
		profiles: profiles,
		stats:    stats,
		now:      time.Now,
	}
}

// WeightInput gathers everything ComputeWeight needs about a reviewer and
// the transaction their review is attached to.
func (s *RepoSource) WeightInput(ctx context.Context, reviewerID uuid.UUID, txn *transactions.Transaction) (Input, error) {
	profile, err := s.profiles.GetProfile(ctx, reviewerID)
	if err != nil {
		return Input{}, fmt.Errorf("load reviewer profile: %w", err)
	}

	avgRating, reviewCount, err := s.stats.ReviewerStats(ctx, reviewerID)
	if err != nil {
		return Input{}, fmt.Errorf("load reviewer stats: %w", err)
	}

	return Input{
		ReviewerVerified:      profile.IdentityVerified,
		VerifiedBusiness:      profile.AccountType == identity.AccountTypeBusiness && profile.BusinessVerified,
		ReviewerAccountAge:    profile.AccountAge(s.now()),
		ReviewerAvgRating:     avgRating,
		ReviewerReviewCount:   reviewCount,
		TransactionValue:      txn.EstimatedValue,
		IsVerifiedTransaction: txn.LocationConfirmed,
	}, nil
}
