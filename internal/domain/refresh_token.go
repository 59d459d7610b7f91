package domain

import "time"

// RefreshToken stores refresh tokens for accounts.
//
// Security notes:
// - We never store the raw token in DB, only its SHA-256 hash (TokenHash).
// - On refresh we rotate tokens: the presented token is revoked and replaced
//   by a successor in the same family, in one transaction.
// - A second redemption of the same raw value is a reuse signal: the whole
//   family is revoked.
type RefreshToken struct {
	ID int64 `json:"id" gorm:"primaryKey"`

	AccountID int64   `json:"account_id" gorm:"index;not null"`
	Account   Account `json:"-" gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE"`

	TokenHash string `json:"-" gorm:"size:64;uniqueIndex;not null"`
	JTI       string `json:"-" gorm:"size:36;not null"`
	FamilyID  string `json:"-" gorm:"size:36;index;not null"`

	RotatedFrom *int64 `json:"-" gorm:"index"`

	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at" gorm:"index;not null"`
	UsedAt    *time.Time `json:"used_at" gorm:"index"`
	RevokedAt *time.Time `json:"revoked_at" gorm:"index"`

	ReuseDetectedAt *time.Time `json:"-"`
}

func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

func (t *RefreshToken) IsConsumed() bool {
	return t.UsedAt != nil || t.RevokedAt != nil
}
