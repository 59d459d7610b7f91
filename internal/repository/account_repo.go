package repository

import (
	"context"
	"strings"

	"huddle/internal/domain"

	"gorm.io/gorm"
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	a.Email = normalizeEmail(a.Email)
	a.Username = strings.TrimSpace(a.Username)
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	var a domain.Account
	if err := r.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByIdent looks an account up by username or email, whichever matches.
func (r *AccountRepository) GetByIdent(ctx context.Context, ident string) (*domain.Account, error) {
	ident = strings.TrimSpace(ident)
	var a domain.Account
	err := r.db.WithContext(ctx).
		Where("username = ? OR LOWER(email) = ?", ident, strings.ToLower(ident)).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ExistsByIdentifiers reports whether any account already uses the given
// username or email.
func (r *AccountRepository) ExistsByIdentifiers(ctx context.Context, username, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Account{}).
		Where("username = ? OR LOWER(email) = ?", strings.TrimSpace(username), normalizeEmail(email)).
		Count(&count).Error
	return count > 0, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
