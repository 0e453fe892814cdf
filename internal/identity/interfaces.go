package identity

import (
	"context"

	"github.com/google/uuid"
)

// ProfileRepository exposes the user records the trust engine reads and the
// one mutation it performs (flagging).
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error)
	GetProfiles(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]*Profile, error)
	FlagAccount(ctx context.Context, userID uuid.UUID, reason string) error
}
