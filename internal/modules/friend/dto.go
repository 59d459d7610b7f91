package friend

import "time"

type SendRequestBody struct {
	UserID int64 `json:"user_id" binding:"required"`
}

type RequestView struct {
	ID        string    `json:"id"`
	FromID    int64     `json:"from_id"`
	ToID      int64     `json:"to_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
