package transactions

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a transaction.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDone      Status = "done"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
	StatusNoDeal    Status = "no_deal"
	StatusScam      Status = "scam"
	StatusDisputed  Status = "disputed"
)

// Terminal reports whether a transaction in this status can no longer move.
func (s Status) Terminal() bool {
	switch s {
	case StatusDone, StatusCancelled, StatusExpired, StatusNoDeal, StatusScam:
		return true
	}
	return false
}

// Reviewable reports whether reviews may be attached to a transaction in
// this status. Scam reports are allowed without full completion so fraud
// can still be flagged.
func (s Status) Reviewable() bool {
	return s == StatusDone || s == StatusScam
}

// Transaction is a one-off exchange between two parties. Immutable once
// done except for linked reviews.
type Transaction struct {
	ID                uuid.UUID  `json:"id"`
	PartyA            uuid.UUID  `json:"party_a"`
	PartyB            uuid.UUID  `json:"party_b"`
	Status            Status     `json:"status"`
	EstimatedValue    *float64   `json:"estimated_value,omitempty"`
	LocationConfirmed bool       `json:"location_confirmed"`
	RiskScore         *float64   `json:"risk_score,omitempty"`
	InitiatedAt       time.Time  `json:"initiated_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

// Involves reports whether userID is one of the two parties.
func (t *Transaction) Involves(userID uuid.UUID) bool {
	return t.PartyA == userID || t.PartyB == userID
}

// Counterparty returns the other party for userID, or uuid.Nil when userID
// is not a party.
func (t *Transaction) Counterparty(userID uuid.UUID) uuid.UUID {
	switch userID {
	case t.PartyA:
		return t.PartyB
	case t.PartyB:
		return t.PartyA
	}
	return uuid.Nil
}

// CreateTransactionRequest is the payload for opening a transaction.
type CreateTransactionRequest struct {
	PartyA         uuid.UUID `json:"party_a" binding:"required"`
	PartyB         uuid.UUID `json:"party_b" binding:"required"`
	EstimatedValue *float64  `json:"estimated_value,omitempty" validate:"omitempty,gte=0"`
}

// UpdateStatusRequest moves a transaction to a new status.
type UpdateStatusRequest struct {
	Status Status `json:"status" binding:"required" validate:"transaction_status"`
}

// Edge is one completed-transaction link in the trading graph.
type Edge struct {
	From  uuid.UUID
	To    uuid.UUID
	Count int
}
