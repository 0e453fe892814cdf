package reputation

import (
	"context"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swapgrid/trust-engine/internal/identity"
	"github.com/swapgrid/trust-engine/internal/reviews"
)

type memScoreStore struct {
	users  []uuid.UUID
	scores map[uuid.UUID]*Score
	stats  map[uuid.UUID]TradeStats
}

func newMemScoreStore(users []uuid.UUID) *memScoreStore {
	sorted := append([]uuid.UUID(nil), users...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].String() < sorted[j].String() })
	return &memScoreStore{
		users:  sorted,
		scores: make(map[uuid.UUID]*Score),
		stats:  make(map[uuid.UUID]TradeStats),
	}
}

func (m *memScoreStore) Upsert(_ context.Context, score *Score) error {
	m.scores[score.UserID] = score
	return nil
}

func (m *memScoreStore) Get(_ context.Context, userID uuid.UUID) (*Score, error) {
	s, ok := m.scores[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (m *memScoreStore) TradeStats(_ context.Context, userID uuid.UUID) (TradeStats, error) {
	return m.stats[userID], nil
}

func (m *memScoreStore) ListUserIDsAfter(_ context.Context, cursor uuid.UUID, limit int) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for _, id := range m.users {
		if id.String() > cursor.String() && len(out) < limit {
			out = append(out, id)
		}
	}
	return out, nil
}

type stubProfiles struct{}

func (stubProfiles) GetProfile(_ context.Context, userID uuid.UUID) (*identity.Profile, error) {
	return &identity.Profile{ID: userID}, nil
}

type stubReviewSource struct {
	byTarget map[uuid.UUID][]*reviews.Review
}

func (s *stubReviewSource) GetAllVisibleByTarget(_ context.Context, targetID uuid.UUID) ([]*reviews.Review, error) {
	return s.byTarget[targetID], nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, string, interface{}) error { return nil }

func TestRecalculate_PersistsAndReturns(t *testing.T) {
	userID := uuid.New()
	store := newMemScoreStore([]uuid.UUID{userID})
	svc := NewService(store, &stubReviewSource{byTarget: map[uuid.UUID][]*reviews.Review{
		userID: {{Rating: 5, Weight: 1.0}, {Rating: 4, Weight: 1.0}},
	}}, stubProfiles{}, nopPublisher{})

	score, err := svc.Recalculate(context.Background(), userID)
	require.NoError(t, err)

	assert.InDelta(t, 4.5, score.AverageRating, 1e-9)
	assert.Equal(t, store.scores[userID], score)
	assert.False(t, score.LastUpdated.IsZero())
}

func TestGet_ComputesOnFirstRequest(t *testing.T) {
	userID := uuid.New()
	store := newMemScoreStore([]uuid.UUID{userID})
	svc := NewService(store, &stubReviewSource{byTarget: map[uuid.UUID][]*reviews.Review{}}, stubProfiles{}, nopPublisher{})

	score, err := svc.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, TrustLevelNew, score.TrustLevel)
	assert.Contains(t, store.scores, userID)
}

func TestRecalculateAll_ResumesFromCursor(t *testing.T) {
	users := make([]uuid.UUID, 7)
	for i := range users {
		users[i] = uuid.New()
	}
	store := newMemScoreStore(users)
	svc := NewService(store, &stubReviewSource{byTarget: map[uuid.UUID][]*reviews.Review{}}, stubProfiles{}, nopPublisher{})

	cursor, processed, err := svc.RecalculateAll(context.Background(), uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, len(users), processed)
	assert.Len(t, store.scores, len(users))
	assert.Equal(t, store.users[len(store.users)-1], cursor)

	// Resuming from the final cursor does nothing.
	_, processed, err = svc.RecalculateAll(context.Background(), cursor)
	require.NoError(t, err)
	assert.Zero(t, processed)
}
