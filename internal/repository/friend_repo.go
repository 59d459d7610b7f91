package repository

import (
	"context"
	"strings"
	"time"

	"huddle/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FriendRepository struct {
	db *gorm.DB
}

func NewFriendRepository(db *gorm.DB) *FriendRepository {
	return &FriendRepository{db: db}
}

func (r *FriendRepository) CreateRequest(ctx context.Context, fromID, toID int64) (*domain.FriendRequest, error) {
	req := &domain.FriendRequest{
		ID:        uuid.NewString(),
		FromID:    fromID,
		ToID:      toID,
		Status:    domain.FriendRequestPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return nil, err
	}
	return req, nil
}

func (r *FriendRepository) GetByID(ctx context.Context, id string) (*domain.FriendRequest, error) {
	var req domain.FriendRequest
	err := r.db.WithContext(ctx).Where("id = ?", strings.TrimSpace(id)).First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// Respond flips a pending request to accepted/declined. RowsAffected 0 means
// the request was already answered by a concurrent call.
func (r *FriendRepository) Respond(ctx context.Context, id string, status domain.FriendRequestStatus) (bool, error) {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&domain.FriendRequest{}).
		Where("id = ? AND status = ?", id, domain.FriendRequestPending).
		Updates(map[string]any{"status": status, "responded_at": now})
	return res.RowsAffected > 0, res.Error
}

// HasPendingOrAccepted reports whether a pending request or an accepted
// friendship exists between the two accounts, in either direction.
func (r *FriendRepository) HasPendingOrAccepted(ctx context.Context, a, b int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.FriendRequest{}).
		Where("status IN ?", []domain.FriendRequestStatus{domain.FriendRequestPending, domain.FriendRequestAccepted}).
		Where("(from_id = ? AND to_id = ?) OR (from_id = ? AND to_id = ?)", a, b, b, a).
		Count(&count).Error
	return count > 0, err
}

// ListFriends returns the account ids friended with the given account.
func (r *FriendRepository) ListFriends(ctx context.Context, accountID int64) ([]int64, error) {
	var reqs []domain.FriendRequest
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.FriendRequestAccepted).
		Where("from_id = ? OR to_id = ?", accountID, accountID).
		Order("responded_at DESC").
		Find(&reqs).Error
	if err != nil {
		return nil, err
	}
	friends := make([]int64, 0, len(reqs))
	for _, req := range reqs {
		if req.FromID == accountID {
			friends = append(friends, req.ToID)
		} else {
			friends = append(friends, req.FromID)
		}
	}
	return friends, nil
}

// ListIncomingPending returns pending requests addressed to the account.
func (r *FriendRepository) ListIncomingPending(ctx context.Context, accountID int64) ([]*domain.FriendRequest, error) {
	var reqs []*domain.FriendRequest
	err := r.db.WithContext(ctx).
		Where("to_id = ? AND status = ?", accountID, domain.FriendRequestPending).
		Order("created_at DESC").
		Find(&reqs).Error
	return reqs, err
}
