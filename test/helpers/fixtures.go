package helpers

import (
	"time"

	"github.com/google/uuid"

	"github.com/swapgrid/trust-engine/internal/identity"
	"github.com/swapgrid/trust-engine/internal/reviews"
	"github.com/swapgrid/trust-engine/internal/transactions"
)

// CreateTestProfile returns a verified standard account old enough to pass
// every eligibility gate.
func CreateTestProfile() *identity.Profile {
	id := uuid.New()
	return &identity.Profile{
		ID:               id,
		Email:            id.String()[:8] + "@example.com",
		DisplayName:      "Test User",
		AccountType:      identity.AccountTypeStandard,
		IdentityVerified: true,
		CreatedAt:        time.Now().Add(-365 * 24 * time.Hour),
	}
}

// CreateTestTransaction returns a pending transaction between the two
// parties, ready to be moved to done by the test.
func CreateTestTransaction(partyA, partyB uuid.UUID) *transactions.Transaction {
	value := 150.0
	return &transactions.Transaction{
		ID:             uuid.New(),
		PartyA:         partyA,
		PartyB:         partyB,
		Status:         transactions.StatusPending,
		EstimatedValue: &value,
		InitiatedAt:    time.Now().Add(-3 * time.Hour),
	}
}

// CreateTestReview returns a revealed, visible review on the transaction.
func CreateTestReview(txn *transactions.Transaction, reviewerID uuid.UUID) *reviews.Review {
	revealed := time.Now()
	return &reviews.Review{
		ID:            uuid.New(),
		TransactionID: txn.ID,
		ReviewerID:    reviewerID,
		TargetUserID:  txn.Counterparty(reviewerID),
		Rating:        5,
		ReviewText:    "smooth trade",
		Weight:        1.0,
		IsVisible:     true,
		SubmittedAt:   revealed.Add(-time.Minute),
		RevealedAt:    &revealed,
	}
}
