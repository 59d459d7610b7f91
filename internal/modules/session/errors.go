package session

import "errors"

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrIdentifierTaken     = errors.New("username or email already registered")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenReused  = errors.New("refresh token reuse detected")
	ErrAccountNotFound     = errors.New("account not found")
	ErrDatabaseUnavailable = errors.New("database unavailable")
)
