package friend

import "errors"

var (
	ErrSelfRequest      = errors.New("cannot send a friend request to yourself")
	ErrAlreadyLinked    = errors.New("friend request already pending or accepted")
	ErrRequestNotFound  = errors.New("friend request not found")
	ErrNotRecipient     = errors.New("only the recipient may respond to a request")
	ErrAlreadyResponded = errors.New("friend request already responded to")
	ErrAccountNotFound  = errors.New("account not found")

	ErrDatabaseUnavailable = errors.New("database unavailable")
)
