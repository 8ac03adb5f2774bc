package ports

import (
	"context"

	"github.com/relaychat/relay-api/internal/core/domain"
)

// AuthService is the session gate in front of protected resources.
type AuthService interface {
	Register(ctx context.Context, username, password string) (*domain.User, error)
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
	Login(ctx context.Context, username, password string) (string, error)
	Verify(token string) (domain.SessionClaim, error)
	AuthorizeRole(claim domain.SessionClaim, allowed ...domain.Role) bool
	ListUsers(ctx context.Context, claim domain.SessionClaim) ([]*domain.User, error)
}
