package session

import (
	"context"
	"time"

	buddysurf_errors "buddysurf-chat/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Session validates tokens issued by the hosted auth service and resolves
// them to a user identity. It holds no ambient current-user state; every
// operation that needs an identity is given one explicitly.
type Session struct {
	jwtSecret []byte
}

func New(secret string) *Session {
	return &Session{jwtSecret: []byte(secret)}
}

type AccessClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// CurrentUser resolves the token to the authenticated user id, or
// ErrUnauthenticated if there is none.
func (s *Session) CurrentUser(ctx context.Context, token string) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}
	if token == "" {
		return uuid.Nil, buddysurf_errors.ErrUnauthenticated
	}

	parsed, err := jwt.ParseWithClaims(token, &AccessClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, buddysurf_errors.ErrUnauthenticated
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return uuid.Nil, buddysurf_errors.ErrUnauthenticated
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return uuid.Nil, buddysurf_errors.ErrUnauthenticated
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, buddysurf_errors.ErrUnauthenticated
	}
	return userID, nil
}

// IssueToken mints a token for the given user. The production issuer is
// the hosted auth service; this exists for local development and tests.
func (s *Session) IssueToken(userID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}
