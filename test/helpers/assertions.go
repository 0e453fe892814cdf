package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/swapgrid/trust-engine/internal/reputation"
	"github.com/swapgrid/trust-engine/internal/reviews"
)

// AssertReviewEqual compares the identity and content of two reviews,
// ignoring timestamps.
func AssertReviewEqual(t *testing.T, expected, actual *reviews.Review) {
	t.Helper()
	assert.Equal(t, expected.TransactionID, actual.TransactionID)
	assert.Equal(t, expected.ReviewerID, actual.ReviewerID)
	assert.Equal(t, expected.TargetUserID, actual.TargetUserID)
	assert.Equal(t, expected.Rating, actual.Rating)
	assert.Equal(t, expected.ReviewText, actual.ReviewText)
	assert.InDelta(t, expected.Weight, actual.Weight, 0.001)
}

// AssertScoreInRange checks the invariants every reputation score must
// satisfy regardless of inputs.
func AssertScoreInRange(t *testing.T, score *reputation.Score) {
	t.Helper()
	if score.TotalReviews > 0 {
		assert.GreaterOrEqual(t, score.AverageRating, 1.0)
		assert.LessOrEqual(t, score.AverageRating, 5.0)
	}
	assert.GreaterOrEqual(t, score.TradeDiversityScore, 0.0)
	assert.LessOrEqual(t, score.TradeDiversityScore, 1.0)
	assert.NotEmpty(t, score.TrustLevel)
}
