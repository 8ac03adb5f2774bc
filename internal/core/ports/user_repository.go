package ports

import (
	"context"

	"github.com/relaychat/relay-api/internal/core/domain"
)

// UserRepository is the narrow view of the user store the core relies on.
// Implementations must return domain.ErrUserExists for a duplicate username
// and domain.ErrUserNotFound when a lookup misses.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	List(ctx context.Context, limit int64) ([]*domain.User, error)
}
