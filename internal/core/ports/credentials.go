package ports

import (
	"context"

	"github.com/relaychat/relay-api/internal/core/domain"
)

// PasswordHasher is the one-way credential codec.
type PasswordHasher interface {
	Hash(password string) ([]byte, error)
	Verify(password string, hash []byte) bool
}

// TokenService signs and verifies session claims. Verify returns an error
// matching domain.ErrInvalidToken for every kind of rejection.
type TokenService interface {
	Issue(claim domain.SessionClaim) (string, error)
	Verify(token string) (domain.SessionClaim, error)
}

// LoginThrottle counts failed logins per username.
type LoginThrottle interface {
	Blocked(ctx context.Context, username string) (bool, error)
	RecordFailure(ctx context.Context, username string) error
	Reset(ctx context.Context, username string) error
}
