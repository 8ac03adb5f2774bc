package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-set/v3"
	"github.com/rs/zerolog"

	"github.com/relaychat/relay-api/internal/core/domain"
	"github.com/relaychat/relay-api/internal/core/ports"
)

// listLimit caps how many records a single user listing returns.
const listLimit = 1000

// AuthService implements registration, login and role gating.
type AuthService struct {
	repo     ports.UserRepository
	hasher   ports.PasswordHasher
	tokens   ports.TokenService
	throttle ports.LoginThrottle
	log      zerolog.Logger

	decoyMu sync.Mutex
	decoy   []byte
}

// NewAuthService wires the session gate. throttle may be nil.
func NewAuthService(
	repo ports.UserRepository,
	hasher ports.PasswordHasher,
	tokens ports.TokenService,
	throttle ports.LoginThrottle,
	log zerolog.Logger,
) *AuthService {
	s := &AuthService{
		repo:     repo,
		hasher:   hasher,
		tokens:   tokens,
		throttle: throttle,
		log:      log.With().Str("component", "auth").Logger(),
	}
	s.decoyHash()
	return s
}

// Register stores a new account with the default user role.
func (s *AuthService) Register(ctx context.Context, username, password string) (*domain.User, error) {
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	_, err := s.repo.FindByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, domain.ErrUserExists
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, fmt.Errorf("register: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	created, err := s.repo.Create(ctx, &domain.User{
		Username:     username,
		PasswordHash: hash,
		Role:         domain.RoleUser,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	s.log.Info().Str("username", username).Msg("user registered")
	return created, nil
}

// Authenticate resolves username/password to a user record. An unknown user
// and a wrong password produce the same error.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// Burn the same hashing work as a real comparison.
			s.hasher.Verify(password, s.decoyHash())
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates and issues a bearer token for the stored role.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	if s.blocked(ctx, username) {
		return "", domain.ErrTooManyAttempts
	}

	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			s.recordFailure(ctx, username)
		}
		return "", err
	}

	if !user.Role.Valid() {
		s.log.Warn().Str("username", username).Str("role", string(user.Role)).Msg("stored record carries unknown role")
		return "", domain.ErrInvalidRole
	}

	s.resetFailures(ctx, username)

	token, err := s.tokens.Issue(domain.SessionClaim{Subject: user.Username, Role: user.Role})
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	return token, nil
}

// Verify resolves a bearer token into its claim.
func (s *AuthService) Verify(token string) (domain.SessionClaim, error) {
	claim, err := s.tokens.Verify(token)
	if err != nil {
		var te *TokenError
		if errors.As(err, &te) {
			s.log.Debug().Str("reason", te.Reason.String()).Msg("token rejected")
		}
		return domain.SessionClaim{}, domain.ErrInvalidToken
	}
	return claim, nil
}

// AuthorizeRole reports whether the claim's role is one of allowed.
func (s *AuthService) AuthorizeRole(claim domain.SessionClaim, allowed ...domain.Role) bool {
	return claim.Role.Valid() && set.From(allowed).Contains(claim.Role)
}

// ListUsers returns every stored record; admin only.
func (s *AuthService) ListUsers(ctx context.Context, claim domain.SessionClaim) ([]*domain.User, error) {
	if !s.AuthorizeRole(claim, domain.RoleAdmin) {
		return nil, domain.ErrForbidden
	}

	users, err := s.repo.List(ctx, listLimit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// decoyHash returns the hash compared against for unknown users. A failed
// build is retried on the next call.
func (s *AuthService) decoyHash() []byte {
	s.decoyMu.Lock()
	defer s.decoyMu.Unlock()

	if s.decoy == nil {
		h, err := s.hasher.Hash("decoy-password")
		if err != nil {
			s.log.Error().Err(err).Msg("failed to build decoy hash, unknown-user logins are not timing-equalised")
			return nil
		}
		s.decoy = h
	}
	return s.decoy
}

func (s *AuthService) blocked(ctx context.Context, username string) bool {
	if s.throttle == nil {
		return false
	}
	blocked, err := s.throttle.Blocked(ctx, username)
	if err != nil {
		s.log.Warn().Err(err).Str("username", username).Msg("throttle check failed, allowing login")
		return false
	}
	return blocked
}

func (s *AuthService) recordFailure(ctx context.Context, username string) {
	if s.throttle == nil {
		return
	}
	if err := s.throttle.RecordFailure(ctx, username); err != nil {
		s.log.Warn().Err(err).Str("username", username).Msg("failed to record login failure")
	}
}

func (s *AuthService) resetFailures(ctx context.Context, username string) {
	if s.throttle == nil {
		return
	}
	if err := s.throttle.Reset(ctx, username); err != nil {
		s.log.Warn().Err(err).Str("username", username).Msg("failed to reset login failures")
	}
}
