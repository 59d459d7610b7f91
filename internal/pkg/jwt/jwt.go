package jwt

import (
	"errors"
	"strconv"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Leeway tolerated when checking expiry, to absorb clock skew between hosts.
const clockSkewLeeway = 30 * time.Second

var ErrInvalidToken = errors.New("invalid token")

// Service signs and verifies short-lived access tokens. It holds no state
// about issued tokens: verification is purely cryptographic.
type Service struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

type Claims struct {
	UserID int64 `json:"user_id"`
	jwtlib.RegisteredClaims
}

func New(secret, issuer string, ttl time.Duration) *Service {
	return &Service{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
	}
}

// Sign issues an access token for the given account id.
func (s *Service) Sign(accountID int64) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: accountID,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(accountID, 10),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks signature, issuer and expiry and returns the subject
// account id. Any failure collapses to ErrInvalidToken.
func (s *Service) Verify(tokenStr string) (int64, error) {
	token, err := jwtlib.ParseWithClaims(tokenStr, &Claims{}, func(t *jwtlib.Token) (any, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	},
		jwtlib.WithIssuer(s.issuer),
		jwtlib.WithLeeway(clockSkewLeeway),
		jwtlib.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.UserID == 0 {
		return 0, ErrInvalidToken
	}

	return claims.UserID, nil
}
