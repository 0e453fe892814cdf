package eligibility

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swapgrid/trust-engine/internal/transactions"
)

type stubTxns struct {
	txn *transactions.Transaction
	err error
}

func (s *stubTxns) GetByID(_ context.Context, _ uuid.UUID) (*transactions.Transaction, error) {
	return s.txn, s.err
}

type stubReviews struct {
	hasReview   bool
	recentCount int
}

func (s *stubReviews) HasReview(_ context.Context, _, _ uuid.UUID) (bool, error) {
	return s.hasReview, nil
}

func (s *stubReviews) CountByReviewerSince(_ context.Context, _ uuid.UUID, _ time.Time) (int, error) {
	return s.recentCount, nil
}

type stubAccounts struct {
	createdAt time.Time
}

func (s *stubAccounts) GetAccountCreatedAt(_ context.Context, _ uuid.UUID) (time.Time, error) {
	return s.createdAt, nil
}

func testConfig() Config {
	return Config{ReviewWindowDays: 90, MinAccountAgeDays: 14, DailyReviewLimit: 5}
}

type checkerFixture struct {
	checker  *Checker
	txns     *stubTxns
	reviews  *stubReviews
	accounts *stubAccounts
	reviewer uuid.UUID
	target   uuid.UUID
	txnID    uuid.UUID
	now      time.Time
}

func newFixture(t *testing.T) *checkerFixture {
	t.Helper()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	reviewer := uuid.New()
	target := uuid.New()
	txnID := uuid.New()
	completed := now.Add(-48 * time.Hour)

	f := &checkerFixture{
		txns: &stubTxns{txn: &transactions.Transaction{
			ID:          txnID,
			PartyA:      reviewer,
			PartyB:      target,
			Status:      transactions.StatusDone,
			CompletedAt: &completed,
		}},
		reviews:  &stubReviews{},
		accounts: &stubAccounts{createdAt: now.Add(-60 * 24 * time.Hour)},
		reviewer: reviewer,
		target:   target,
		txnID:    txnID,
		now:      now,
	}
	f.checker = NewChecker(f.txns, f.reviews, f.accounts, testConfig())
	f.checker.now = func() time.Time { return now }
	return f
}

func (f *checkerFixture) check(t *testing.T) *Result {
	t.Helper()
	res, err := f.checker.CheckEligibility(context.Background(), f.reviewer, f.target, f.txnID)
	require.NoError(t, err)
	return res
}

func TestCheckEligibility_Allowed(t *testing.T) {
	f := newFixture(t)

	res := f.check(t)

	assert.True(t, res.Allowed)
	assert.Empty(t, res.Reason)
	assert.False(t, res.RequiresVerification)
}

func TestCheckEligibility_SelfReview(t *testing.T) {
	f := newFixture(t)
	f.target = f.reviewer

	res := f.check(t)

	assert.False(t, res.Allowed)
	assert.Equal(t, "cannot review yourself", res.Reason)
}

func TestCheckEligibility_TransactionNotFound(t *testing.T) {
	f := newFixture(t)
	f.txns.txn = nil
	f.txns.err = transactions.ErrNotFound

	res := f.check(t)

	assert.False(t, res.Allowed)
	assert.Equal(t, "transaction not found", res.Reason)
}

func TestCheckEligibility_StatusGate(t *testing.T) {
	tests := []struct {
		status  transactions.Status
		allowed bool
	}{
		{transactions.StatusDone, true},
		{transactions.StatusScam, true},
		{transactions.StatusPending, false},
		{transactions.StatusCancelled, false},
		{transactions.StatusExpired, false},
		{transactions.StatusNoDeal, false},
		{transactions.StatusDisputed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			f := newFixture(t)
			f.txns.txn.Status = tt.status

			res := f.check(t)

			assert.Equal(t, tt.allowed, res.Allowed)
		})
	}
}

func TestCheckEligibility_ReviewerNotAParty(t *testing.T) {
	f := newFixture(t)
	f.txns.txn.PartyA = uuid.New()

	res := f.check(t)

	assert.False(t, res.Allowed)
	assert.Equal(t, "reviewer and target must be the transaction parties", res.Reason)
}

func TestCheckEligibility_WrongTarget(t *testing.T) {
	f := newFixture(t)
	f.target = uuid.New()

	res := f.check(t)

	assert.False(t, res.Allowed)
}

func TestCheckEligibility_DuplicateReview(t *testing.T) {
	f := newFixture(t)
	f.reviews.hasReview = true

	res := f.check(t)

	assert.False(t, res.Allowed)
	assert.Equal(t, "review already submitted for this transaction", res.Reason)
}

func TestCheckEligibility_WindowExpired(t *testing.T) {
	f := newFixture(t)
	completed := f.now.Add(-91 * 24 * time.Hour)
	f.txns.txn.CompletedAt = &completed

	res := f.check(t)

	assert.False(t, res.Allowed)
	assert.Contains(t, res.Reason, "90 days")
}

func TestCheckEligibility_WindowBoundary(t *testing.T) {
	f := newFixture(t)
	completed := f.now.Add(-90 * 24 * time.Hour)
	f.txns.txn.CompletedAt = &completed

	res := f.check(t)

	assert.True(t, res.Allowed, "exactly 90 days should still be accepted")
}

func TestCheckEligibility_AccountTooNew(t *testing.T) {
	f := newFixture(t)
	f.accounts.createdAt = f.now.Add(-10 * 24 * time.Hour)

	res := f.check(t)

	assert.False(t, res.Allowed)
	assert.Contains(t, res.Reason, "14 days")
	assert.False(t, res.RequiresVerification)
}

func TestCheckEligibility_DailyLimit(t *testing.T) {
	f := newFixture(t)
	f.reviews.recentCount = 5

	res := f.check(t)

	assert.False(t, res.Allowed)
	assert.Equal(t, "daily review limit reached", res.Reason)
	assert.True(t, res.RequiresVerification)
}

func TestCheckEligibility_UnderDailyLimit(t *testing.T) {
	f := newFixture(t)
	f.reviews.recentCount = 4

	res := f.check(t)

	assert.True(t, res.Allowed)
}
