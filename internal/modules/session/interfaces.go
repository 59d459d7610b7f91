package session

import (
	"context"

	"huddle/internal/domain"
)

// AccountRepositoryInterface — only the methods the session service uses.
type AccountRepositoryInterface interface {
	Create(ctx context.Context, a *domain.Account) error
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
	GetByIdent(ctx context.Context, ident string) (*domain.Account, error)
	ExistsByIdentifiers(ctx context.Context, username, email string) (bool, error)
}

// RefreshTokenStoreInterface hides the rotation machinery from the service.
// Raw tokens only ever cross this boundary as return values of Create and
// RedeemAndRotate.
type RefreshTokenStoreInterface interface {
	Create(ctx context.Context, accountID int64) (string, error)
	RedeemAndRotate(ctx context.Context, raw string) (int64, string, error)
	Revoke(ctx context.Context, raw string) error
	RevokeAll(ctx context.Context, accountID int64) error
}

type tokenIssuer interface {
	Sign(accountID int64) (string, error)
}
