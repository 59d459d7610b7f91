package domain

import "time"

type FriendRequestStatus string

const (
	FriendRequestPending  FriendRequestStatus = "pending"
	FriendRequestAccepted FriendRequestStatus = "accepted"
	FriendRequestDeclined FriendRequestStatus = "declined"
)

type FriendRequest struct {
	ID string `json:"id" gorm:"primaryKey;size:36"`

	FromID int64 `json:"from_id" gorm:"index;not null"`
	ToID   int64 `json:"to_id" gorm:"index;not null"`

	Status FriendRequestStatus `json:"status" gorm:"size:16;index;not null"`

	CreatedAt   time.Time  `json:"created_at"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
}
