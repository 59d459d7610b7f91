package friend

import (
	"context"

	"huddle/internal/domain"
)

// RepositoryInterface — only the methods the friend service uses.
type RepositoryInterface interface {
	CreateRequest(ctx context.Context, fromID, toID int64) (*domain.FriendRequest, error)
	GetByID(ctx context.Context, id string) (*domain.FriendRequest, error)
	Respond(ctx context.Context, id string, status domain.FriendRequestStatus) (bool, error)
	HasPendingOrAccepted(ctx context.Context, a, b int64) (bool, error)
	ListFriends(ctx context.Context, accountID int64) ([]int64, error)
	ListIncomingPending(ctx context.Context, accountID int64) ([]*domain.FriendRequest, error)
}

// AccountLookup validates that a request target exists.
type AccountLookup interface {
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
}

// EventSink is the slice of the event dispatcher this module needs. Fan-out
// is best-effort: the service never learns whether anyone was online.
type EventSink interface {
	SendToIdentities(accountIDs []int64, v any)
}
