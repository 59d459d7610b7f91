package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"huddle/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// refreshTokenRepo — the repository methods the store drives. The tx
// parameter lets consume/revoke run inside the rotation transaction.
type refreshTokenRepo interface {
	Create(ctx context.Context, t *domain.RefreshToken) error
	Consume(ctx context.Context, tx *gorm.DB, id int64, now time.Time) (int64, error)
	RevokeFamily(ctx context.Context, tx *gorm.DB, familyID string, now time.Time) error
	MarkReuseDetected(ctx context.Context, tx *gorm.DB, id int64, now time.Time) error
	RevokeByAccount(ctx context.Context, accountID int64) error
	DB() *gorm.DB
}

// TokenStore owns the single-use refresh token protocol: opaque random
// tokens, hash-only persistence, and atomic redeem-and-rotate.
type TokenStore struct {
	tokens refreshTokenRepo
	pepper string
	ttl    time.Duration
}

func NewTokenStore(tokens refreshTokenRepo, pepper string, ttl time.Duration) *TokenStore {
	return &TokenStore{
		tokens: tokens,
		pepper: pepper,
		ttl:    ttl,
	}
}

// Create issues a fresh refresh token opening a new rotation family.
// The raw value is returned exactly once and never persisted or logged.
func (s *TokenStore) Create(ctx context.Context, accountID int64) (string, error) {
	raw, hash, err := generateOpaqueToken(s.pepper)
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	record := &domain.RefreshToken{
		AccountID: accountID,
		TokenHash: hash,
		JTI:       uuid.NewString(),
		FamilyID:  uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.tokens.Create(ctx, record); err != nil {
		return "", err
	}
	return raw, nil
}

// RedeemAndRotate consumes the presented token and issues its successor in
// one transaction. Exactly one of N concurrent redemptions of the same raw
// value succeeds: the consume step is a compare-and-swap on the live flags,
// so a loser sees zero rows affected and fails closed.
//
// A token that was already consumed is a theft signal: the whole family is
// revoked before the caller gets ErrRefreshTokenReused.
func (s *TokenStore) RedeemAndRotate(ctx context.Context, raw string) (int64, string, error) {
	hash := hashTokenWithPepper(raw, s.pepper)
	now := time.Now().UTC()

	var accountID int64
	var newRaw string
	var reused *domain.RefreshToken

	err := s.tokens.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current domain.RefreshToken
		if err := tx.Where("token_hash = ?", hash).First(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidRefreshToken
			}
			return err
		}

		if current.IsExpired(now) {
			return ErrInvalidRefreshToken
		}

		if current.IsConsumed() {
			// Returning the error rolls this transaction back, so the
			// family revocation must happen in its own committed
			// transaction outside. Only flag the detection here.
			reused = &current
			return ErrRefreshTokenReused
		}

		affected, err := s.tokens.Consume(ctx, tx, current.ID, now)
		if err != nil {
			return err
		}
		if affected == 0 {
			// A concurrent redemption won between our read and the CAS.
			return ErrRefreshTokenReused
		}

		succRaw, succHash, err := generateOpaqueToken(s.pepper)
		if err != nil {
			return err
		}
		rotatedFrom := current.ID
		successor := &domain.RefreshToken{
			AccountID:   current.AccountID,
			TokenHash:   succHash,
			JTI:         uuid.NewString(),
			FamilyID:    current.FamilyID,
			RotatedFrom: &rotatedFrom,
			CreatedAt:   now,
			// Expiry is inherited, not extended: the chain dies 30 days
			// after first issue no matter how active the session is.
			ExpiresAt: current.ExpiresAt,
		}
		if err := tx.Create(successor).Error; err != nil {
			return err
		}

		accountID = current.AccountID
		newRaw = succRaw
		return nil
	})
	if err != nil {
		if reused != nil {
			if rerr := s.revokeReusedFamily(ctx, reused, now); rerr != nil {
				return 0, "", rerr
			}
		}
		return 0, "", err
	}
	return accountID, newRaw, nil
}

// revokeReusedFamily persists the theft signal: marks the replayed record
// and revokes every live token in its family, committed independently of
// the redemption transaction that detected it.
func (s *TokenStore) revokeReusedFamily(ctx context.Context, t *domain.RefreshToken, now time.Time) error {
	return s.tokens.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.tokens.MarkReuseDetected(ctx, tx, t.ID, now); err != nil {
			return err
		}
		return s.tokens.RevokeFamily(ctx, tx, t.FamilyID, now)
	})
}

// Revoke invalidates the presented token. A token that cannot be found or
// is no longer live yields ErrInvalidRefreshToken.
func (s *TokenStore) Revoke(ctx context.Context, raw string) error {
	hash := hashTokenWithPepper(raw, s.pepper)
	now := time.Now().UTC()

	var current domain.RefreshToken
	if err := s.tokens.DB().WithContext(ctx).Where("token_hash = ?", hash).First(&current).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidRefreshToken
		}
		return err
	}
	if current.IsExpired(now) || current.IsConsumed() {
		return ErrInvalidRefreshToken
	}

	affected, err := s.tokens.Consume(ctx, nil, current.ID, now)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInvalidRefreshToken
	}
	return nil
}

// RevokeAll invalidates every live token for the account, across families.
func (s *TokenStore) RevokeAll(ctx context.Context, accountID int64) error {
	return s.tokens.RevokeByAccount(ctx, accountID)
}

func generateOpaqueToken(pepper string) (raw string, hash string, err error) {
	buf := make([]byte, 32)
	if _, err = rand.Read(buf); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(buf)
	hash = hashTokenWithPepper(raw, pepper)
	return raw, hash, nil
}

func hashTokenWithPepper(raw, pepper string) string {
	sum := sha256.Sum256([]byte(raw + pepper))
	return hex.EncodeToString(sum[:])
}
