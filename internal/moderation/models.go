package moderation

import (
	"time"

	"github.com/google/uuid"
)

// Status of a moderation case.
type Status string

const (
	StatusOpen          Status = "open"
	StatusInvestigating Status = "investigating"
	StatusResolved      Status = "resolved"
)

// Item is one case awaiting a human decision.
type Item struct {
	ID              uuid.UUID              `json:"id"`
	Priority        int                    `json:"priority"`
	Reason          string                 `json:"reason"`
	Evidence        map[string]interface{} `json:"evidence"`
	RelatedAccounts []uuid.UUID            `json:"related_accounts"`
	Status          Status                 `json:"status"`
	ResolvedBy      *uuid.UUID             `json:"resolved_by,omitempty"`
	Resolution      string                 `json:"resolution,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	ResolvedAt      *time.Time             `json:"resolved_at,omitempty"`
}

// ResolveRequest closes a case.
type ResolveRequest struct {
	ResolvedBy uuid.UUID `json:"resolved_by" binding:"required"`
	Resolution string    `json:"resolution" binding:"required"`
}
