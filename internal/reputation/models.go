package reputation

import (
	"time"

	"github.com/google/uuid"
)

// TrustLevel is the coarse tier shown next to a user.
type TrustLevel string

const (
	TrustLevelNew         TrustLevel = "NEW"
	TrustLevelEmerging    TrustLevel = "EMERGING"
	TrustLevelEstablished TrustLevel = "ESTABLISHED"
	TrustLevelTrusted     TrustLevel = "TRUSTED"
	TrustLevelVerified    TrustLevel = "VERIFIED"
)

// Score is a user's computed reputation.
type Score struct {
	UserID              uuid.UUID  `json:"user_id"`
	AverageRating       float64    `json:"average_rating"`
	TotalReviews        int        `json:"total_reviews"`
	VerifiedReviews     int        `json:"verified_reviews"`
	TradeDiversityScore float64    `json:"trade_diversity_score"`
	TrustLevel          TrustLevel `json:"trust_level"`
	Badges              []string   `json:"badges"`
	LastUpdated         time.Time  `json:"last_updated"`
}

// TradeStats summarizes a user's transaction history for the calculator
// and the badge predicates.
type TradeStats struct {
	CompletedTrades    int
	UniqueCounterparts int
	DisputedTrades     int
	AvgCompletionHours float64
}
