package risk

import (
	"time"

	"github.com/google/uuid"
)

// Level buckets an overall risk score.
type Level string

const (
	LevelMinimal  Level = "MINIMAL"
	LevelLow      Level = "LOW"
	LevelMedium   Level = "MEDIUM"
	LevelHigh     Level = "HIGH"
	LevelCritical Level = "CRITICAL"
)

// LevelForScore maps a clamped score onto its level.
func LevelForScore(score float64) Level {
	switch {
	case score < 0.2:
		return LevelMinimal
	case score < 0.4:
		return LevelLow
	case score < 0.6:
		return LevelMedium
	case score < 0.8:
		return LevelHigh
	default:
		return LevelCritical
	}
}

// ReviewWeightMultiplier is the penalty callers apply to reviews tied to a
// transaction at this risk level.
func (l Level) ReviewWeightMultiplier() float64 {
	switch l {
	case LevelMedium:
		return 0.75
	case LevelHigh:
		return 0.5
	default:
		return 1.0
	}
}

// Blocked reports whether the transaction and its reviews must be blocked.
func (l Level) Blocked() bool {
	return l == LevelCritical
}

// Components are the weighted inputs of the overall score.
type Components struct {
	Device   float64 `json:"device"`
	IP       float64 `json:"ip"`
	Location float64 `json:"location"`
	Behavior float64 `json:"behavior"`
}

// Report is the outcome of analyzing one transaction.
type Report struct {
	TransactionID   uuid.UUID  `json:"transaction_id"`
	UserA           uuid.UUID  `json:"user_a"`
	UserB           uuid.UUID  `json:"user_b"`
	OverallScore    float64    `json:"overall_score"`
	Level           Level      `json:"level"`
	Components      Components `json:"components"`
	BehaviorSignals []string   `json:"behavior_signals,omitempty"`
	Recommendations []string   `json:"recommendations"`
	GeneratedAt     time.Time  `json:"generated_at"`
}
