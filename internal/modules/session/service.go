package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"huddle/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Service orchestrates signup/login/refresh/logout on top of the credential
// verifier (bcrypt), the token issuer and the refresh token store.
type Service struct {
	accounts AccountRepositoryInterface
	store    RefreshTokenStoreInterface
	jwt      tokenIssuer
}

func NewService(accounts AccountRepositoryInterface, store RefreshTokenStoreInterface, jwt tokenIssuer) *Service {
	return &Service{
		accounts: accounts,
		store:    store,
		jwt:      jwt,
	}
}

type AuthResult struct {
	Account *domain.Account
	Tokens  TokenPair
}

func (s *Service) Signup(ctx context.Context, req SignupRequest) (*AuthResult, error) {
	taken, err := s.accounts.ExistsByIdentifiers(ctx, req.Username, req.Email)
	if err != nil {
		return nil, storeFailure(ctx, err)
	}
	if taken {
		return nil, ErrIdentifierTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	account := &domain.Account{
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hashed),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		// The uniqueness check above races with concurrent signups; the DB
		// unique index is the authority.
		if isDuplicateError(err) {
			return nil, ErrIdentifierTaken
		}
		return nil, storeFailure(ctx, err)
	}

	tokens, err := s.issuePair(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	account.PasswordHash = ""
	return &AuthResult{Account: account, Tokens: tokens}, nil
}

// Login verifies credentials and issues a fresh token pair. Unknown
// identifier and wrong password are deliberately the same error: callers
// must not be able to probe which accounts exist. Other live sessions are
// untouched (multi-device).
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	account, err := s.accounts.GetByIdent(ctx, req.Ident)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, storeFailure(ctx, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	tokens, err := s.issuePair(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	account.PasswordHash = ""
	return &AuthResult{Account: account, Tokens: tokens}, nil
}

// Refresh redeems the presented refresh token for a new pair. Reuse of an
// already-consumed token is collapsed into the same unauthorized error the
// client sees for any invalid token; the family revocation already happened
// inside the store.
func (s *Service) Refresh(ctx context.Context, raw string) (TokenPair, error) {
	accountID, newRaw, err := s.store.RedeemAndRotate(ctx, raw)
	if err != nil {
		if errors.Is(err, ErrInvalidRefreshToken) || errors.Is(err, ErrRefreshTokenReused) {
			return TokenPair{}, ErrInvalidRefreshToken
		}
		return TokenPair{}, storeFailure(ctx, err)
	}

	access, err := s.jwt.Sign(accountID)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: newRaw}, nil
}

func (s *Service) Logout(ctx context.Context, raw string) error {
	if err := s.store.Revoke(ctx, raw); err != nil {
		if errors.Is(err, ErrInvalidRefreshToken) {
			return ErrInvalidRefreshToken
		}
		return storeFailure(ctx, err)
	}
	return nil
}

// RevokeAllSessions invalidates every refresh token for the account. Must
// run before any account deletion.
func (s *Service) RevokeAllSessions(ctx context.Context, accountID int64) error {
	if err := s.store.RevokeAll(ctx, accountID); err != nil {
		return storeFailure(ctx, err)
	}
	return nil
}

func (s *Service) GetCurrentAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, storeFailure(ctx, err)
	}
	account.PasswordHash = ""
	return account, nil
}

func (s *Service) issuePair(ctx context.Context, accountID int64) (TokenPair, error) {
	access, err := s.jwt.Sign(accountID)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.store.Create(ctx, accountID)
	if err != nil {
		return TokenPair{}, storeFailure(ctx, err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// storeFailure translates backing-store failures into the retryable
// infrastructure error. Context cancellation and deadline expiry count:
// the caller's request-scoped deadline must not turn into a hang or a 401.
func storeFailure(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseUnavailable, ctx.Err())
	}
	return fmt.Errorf("%w: %v", ErrDatabaseUnavailable, err)
}

func isDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	// sqlite reports constraint violations as plain text
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
