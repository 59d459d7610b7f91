package repository

import (
	"context"
	"time"

	"huddle/internal/domain"

	"gorm.io/gorm"
)

// RefreshTokenRepository provides DB access for refresh tokens. Rotation is
// not here: it needs a transaction spanning consume+insert and lives in the
// session token store.
type RefreshTokenRepository struct {
	db *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

func (r *RefreshTokenRepository) Create(ctx context.Context, t *domain.RefreshToken) error {
	return r.db.WithContext(ctx).Create(t).Error
}

// Consume marks a token used+revoked if and only if it is still live.
// Returns the number of rows affected: 1 means this caller won, 0 means a
// concurrent redeemer (or a revocation) got there first.
func (r *RefreshTokenRepository) Consume(ctx context.Context, tx *gorm.DB, id int64, now time.Time) (int64, error) {
	if tx == nil {
		tx = r.db
	}
	res := tx.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("id = ? AND used_at IS NULL AND revoked_at IS NULL", id).
		Updates(map[string]any{"used_at": now, "revoked_at": now})
	return res.RowsAffected, res.Error
}

// RevokeFamily revokes every live token in a rotation family. Used on reuse
// detection and on account-wide invalidation of a chain.
func (r *RefreshTokenRepository) RevokeFamily(ctx context.Context, tx *gorm.DB, familyID string, now time.Time) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("family_id = ? AND revoked_at IS NULL", familyID).
		Update("revoked_at", now).Error
}

func (r *RefreshTokenRepository) MarkReuseDetected(ctx context.Context, tx *gorm.DB, id int64, now time.Time) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("id = ?", id).
		Update("reuse_detected_at", now).Error
}

func (r *RefreshTokenRepository) RevokeByAccount(ctx context.Context, accountID int64) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("account_id = ? AND revoked_at IS NULL", accountID).
		Update("revoked_at", now).Error
}

func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&domain.RefreshToken{})
	return res.RowsAffected, res.Error
}

// DB exposes the underlying handle so the token store can run transactions.
func (r *RefreshTokenRepository) DB() *gorm.DB {
	return r.db
}
