package patterns

import (
	"time"

	"github.com/google/uuid"
)

// Severity classifies how alarming a detected pattern is.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// severityWeights is the single numeric mapping every detector scores with.
var severityWeights = map[Severity]float64{
	SeverityInfo:     0.1,
	SeverityLow:      0.2,
	SeverityMedium:   0.4,
	SeverityHigh:     0.6,
	SeverityCritical: 0.9,
}

// Weight returns the numeric weight of a severity, 0 for unknown values.
func (s Severity) Weight() float64 {
	return severityWeights[s]
}

// Pattern type identifiers.
const (
	TypeMultipleAccounts     = "MULTIPLE_ACCOUNTS"
	TypeDeviceSharing        = "DEVICE_SHARING"
	TypeRapidAccountCreation = "RAPID_ACCOUNT_CREATION"
	TypeVPNUsage             = "VPN_USAGE"
	TypeIPSharing            = "IP_SHARING"
	TypeCoordinatedAttack    = "COORDINATED_ATTACK"
	TypeImpossibleMovement   = "IMPOSSIBLE_MOVEMENT"
	TypeLocationHopping      = "LOCATION_HOPPING"
	TypeFrequentChanges      = "FREQUENT_LOCATION_CHANGES"
	TypeCoordinatedChange    = "COORDINATED_LOCATION_CHANGE"
	TypeProximityCollusion   = "PROXIMITY_COLLUSION"
	TypePatternSimilarity    = "LOCATION_PATTERN_SIMILARITY"
	TypeTradingRing          = "TRADING_RING"
)

// SuspiciousPattern is one detector finding. Append-only once stored.
type SuspiciousPattern struct {
	ID            uuid.UUID              `json:"id"`
	Type          string                 `json:"type"`
	Description   string                 `json:"description"`
	Severity      Severity               `json:"severity"`
	AffectedUsers []uuid.UUID            `json:"affected_users"`
	Evidence      map[string]interface{} `json:"evidence"`
	DetectedAt    time.Time              `json:"detected_at"`
}

// WeightedScore is the severity-weighted mean of a pattern set, clamped to
// [0, 1]. An empty set scores 0.
func WeightedScore(found []SuspiciousPattern) float64 {
	if len(found) == 0 {
		return 0
	}
	var sum float64
	for _, p := range found {
		sum += p.Severity.Weight()
	}
	score := sum / float64(len(found))
	return clamp01(score)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
