// Package eligibility decides who may review whom for a given transaction.
// The checker is pure and reads through injected lookups only.
package eligibility

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/swapgrid/trust-engine/internal/transactions"
)

// Result is the outcome of an eligibility check. A denial is a normal
// result, not an error.
type Result struct {
	Allowed              bool   `json:"allowed"`
	Reason               string `json:"reason,omitempty"`
	RequiresVerification bool   `json:"requires_verification"`
}

// TransactionLookup resolves the transaction under review.
type TransactionLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*transactions.Transaction, error)
}

// ReviewLookup answers the two review-history questions the checker asks.
type ReviewLookup interface {
	HasReview(ctx context.Context, reviewerID, transactionID uuid.UUID) (bool, error)
	CountByReviewerSince(ctx context.Context, reviewerID uuid.UUID, since time.Time) (int, error)
}

// AccountLookup resolves when the reviewer's account was created.
type AccountLookup interface {
	GetAccountCreatedAt(ctx context.Context, userID uuid.UUID) (time.Time, error)
}

// Config holds the eligibility tunables.
type Config struct {
	ReviewWindowDays  int // max days after completion a review is accepted
	MinAccountAgeDays int
	DailyReviewLimit  int
}

// Checker runs the eligibility decision chain.
type Checker struct {
	txns     TransactionLookup
	reviews  ReviewLookup
	accounts AccountLookup
	cfg      Config
	now      func() time.Time
}

// NewChecker creates an eligibility checker.
func NewChecker(txns TransactionLookup, reviews ReviewLookup, accounts AccountLookup, cfg Config) *Checker {
	return &Checker{
		txns:     txns,
		reviews:  reviews,
		accounts: accounts,
		cfg:      cfg,
		now:      time.Now,
	}
}

func denied(reason string) *Result {
	return &Result{Allowed: false, Reason: reason}
}

// CheckEligibility validates a reviewer against a transaction, short-
// circuiting on the first failed check.
func (c *Checker) CheckEligibility(ctx context.Context, reviewerID, targetUserID, transactionID uuid.UUID) (*Result, error) {
	if reviewerID == targetUserID {
		return denied("cannot review yourself"), nil
	}

	txn, err := c.txns.GetByID(ctx, transactionID)
	if err != nil {
		if err == transactions.ErrNotFound {
			return denied("transaction not found"), nil
		}
		return nil, fmt.Errorf("lookup transaction: %w", err)
	}
	if !txn.Status.Reviewable() {
		return denied(fmt.Sprintf("transaction status %q does not allow reviews", txn.Status)), nil
	}
	if !txn.Involves(reviewerID) || txn.Counterparty(reviewerID) != targetUserID {
		return denied("reviewer and target must be the transaction parties"), nil
	}

	exists, err := c.reviews.HasReview(ctx, reviewerID, transactionID)
	if err != nil {
		return nil, fmt.Errorf("lookup prior review: %w", err)
	}
	if exists {
		return denied("review already submitted for this transaction"), nil
	}

	now := c.now()
	if txn.CompletedAt != nil {
		window := time.Duration(c.cfg.ReviewWindowDays) * 24 * time.Hour
		if now.Sub(*txn.CompletedAt) > window {
			return denied(fmt.Sprintf("review window of %d days has passed", c.cfg.ReviewWindowDays)), nil
		}
	}

	createdAt, err := c.accounts.GetAccountCreatedAt(ctx, reviewerID)
	if err != nil {
		return nil, fmt.Errorf("lookup account age: %w", err)
	}
	minAge := time.Duration(c.cfg.MinAccountAgeDays) * 24 * time.Hour
	if now.Sub(createdAt) < minAge {
		return denied(fmt.Sprintf("account must be at least %d days old", c.cfg.MinAccountAgeDays)), nil
	}

	recent, err := c.reviews.CountByReviewerSince(ctx, reviewerID, now.Add(-24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("count recent reviews: %w", err)
	}
	if recent >= c.cfg.DailyReviewLimit {
		// Soft boundary: the caller may lift it after extra verification.
		return &Result{
			Allowed:              false,
			Reason:               "daily review limit reached",
			RequiresVerification: true,
		}, nil
	}

	return &Result{Allowed: true}, nil
}
