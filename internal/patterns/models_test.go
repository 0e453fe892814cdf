package patterns

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeverityWeights(t *testing.T) {
	assert.InDelta(t, 0.1, SeverityInfo.Weight(), 1e-9)
	assert.InDelta(t, 0.2, SeverityLow.Weight(), 1e-9)
	assert.InDelta(t, 0.4, SeverityMedium.Weight(), 1e-9)
	assert.InDelta(t, 0.6, SeverityHigh.Weight(), 1e-9)
	assert.InDelta(t, 0.9, SeverityCritical.Weight(), 1e-9)
	assert.Zero(t, Severity("BOGUS").Weight())
}

func TestWeightedScore(t *testing.T) {
	assert.Zero(t, WeightedScore(nil))

	found := []SuspiciousPattern{
		{Severity: SeverityMedium},
		{Severity: SeverityHigh},
	}
	assert.InDelta(t, 0.5, WeightedScore(found), 1e-9)

	critical := []SuspiciousPattern{
		{Severity: SeverityCritical},
		{Severity: SeverityCritical},
	}
	assert.InDelta(t, 0.9, WeightedScore(critical), 1e-9)
}
