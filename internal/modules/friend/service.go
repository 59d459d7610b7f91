package friend

import (
	"context"
	"errors"
	"fmt"

	"huddle/internal/domain"

	"gorm.io/gorm"
)

// Service owns the friend request state machine. The interesting part is
// not the CRUD but the fan-out: every transition pushes an event to the
// live connections of the accounts it concerns.
type Service struct {
	repo     RepositoryInterface
	accounts AccountLookup
	events   EventSink
}

func NewService(repo RepositoryInterface, accounts AccountLookup, events EventSink) *Service {
	return &Service{
		repo:     repo,
		accounts: accounts,
		events:   events,
	}
}

func (s *Service) Send(ctx context.Context, fromID, toID int64) (*domain.FriendRequest, error) {
	if fromID == toID {
		return nil, ErrSelfRequest
	}

	if _, err := s.accounts.GetByID(ctx, toID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, storeFailure(ctx, err)
	}

	linked, err := s.repo.HasPendingOrAccepted(ctx, fromID, toID)
	if err != nil {
		return nil, storeFailure(ctx, err)
	}
	if linked {
		return nil, ErrAlreadyLinked
	}

	req, err := s.repo.CreateRequest(ctx, fromID, toID)
	if err != nil {
		return nil, storeFailure(ctx, err)
	}

	s.events.SendToIdentities([]int64{toID}, &Event{
		Type:      EventRequest,
		RequestID: req.ID,
		UserID:    fromID,
	})

	return req, nil
}

func (s *Service) Accept(ctx context.Context, requestID string, accountID int64) error {
	req, err := s.respond(ctx, requestID, accountID, domain.FriendRequestAccepted)
	if err != nil {
		return err
	}

	s.events.SendToIdentities([]int64{req.FromID}, &Event{
		Type:      EventAccepted,
		RequestID: req.ID,
		UserID:    req.ToID,
	})
	s.events.SendToIdentities([]int64{req.ToID}, &Event{
		Type:      EventAccepted,
		RequestID: req.ID,
		UserID:    req.FromID,
	})
	// Payload-free change signal: clients re-fetch their list over the
	// authenticated HTTP surface.
	s.events.SendToIdentities([]int64{req.FromID, req.ToID}, &Event{Type: EventListChanged})

	return nil
}

func (s *Service) Decline(ctx context.Context, requestID string, accountID int64) error {
	req, err := s.respond(ctx, requestID, accountID, domain.FriendRequestDeclined)
	if err != nil {
		return err
	}

	s.events.SendToIdentities([]int64{req.FromID}, &Event{
		Type:      EventDeclined,
		RequestID: req.ID,
		UserID:    req.ToID,
	})

	return nil
}

func (s *Service) respond(ctx context.Context, requestID string, accountID int64, status domain.FriendRequestStatus) (*domain.FriendRequest, error) {
	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, storeFailure(ctx, err)
	}

	if req.ToID != accountID {
		return nil, ErrNotRecipient
	}
	if req.Status != domain.FriendRequestPending {
		return nil, ErrAlreadyResponded
	}

	// Respond is a CAS on the pending status, so a concurrent accept and
	// decline resolve to exactly one winner.
	won, err := s.repo.Respond(ctx, requestID, status)
	if err != nil {
		return nil, storeFailure(ctx, err)
	}
	if !won {
		return nil, ErrAlreadyResponded
	}

	req.Status = status
	return req, nil
}

func (s *Service) ListFriends(ctx context.Context, accountID int64) ([]int64, error) {
	friends, err := s.repo.ListFriends(ctx, accountID)
	if err != nil {
		return nil, storeFailure(ctx, err)
	}
	return friends, nil
}

func (s *Service) ListRequests(ctx context.Context, accountID int64) ([]*domain.FriendRequest, error) {
	reqs, err := s.repo.ListIncomingPending(ctx, accountID)
	if err != nil {
		return nil, storeFailure(ctx, err)
	}
	return reqs, nil
}

// storeFailure translates backing-store failures into the retryable
// infrastructure error, honoring the request-scoped deadline.
func storeFailure(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseUnavailable, ctx.Err())
	}
	return fmt.Errorf("%w: %v", ErrDatabaseUnavailable, err)
}
