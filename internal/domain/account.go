package domain

import "time"

type Account struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"size:32;uniqueIndex;not null"`
	Email        string    `json:"email" gorm:"size:255;uniqueIndex;not null" validate:"required,email"`
	PasswordHash string    `json:"-" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
