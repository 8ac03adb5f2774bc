package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shoenig/go-conceal"

	"github.com/relaychat/relay-api/internal/core/domain"
)

// TokenFailure is the reason a token was rejected. It is kept for logs and
// tests only; callers outside this package see domain.ErrInvalidToken.
type TokenFailure int

const (
	TokenMalformed TokenFailure = iota + 1
	TokenSignature
	TokenAlgorithm
	TokenClaims
	TokenExpired
)

func (f TokenFailure) String() string {
	switch f {
	case TokenMalformed:
		return "malformed"
	case TokenSignature:
		return "signature_mismatch"
	case TokenAlgorithm:
		return "unsupported_algorithm"
	case TokenClaims:
		return "invalid_claims"
	case TokenExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// TokenError matches domain.ErrInvalidToken with errors.Is regardless of Reason.
type TokenError struct {
	Reason TokenFailure
	cause  error
}

func (e *TokenError) Error() string {
	return domain.ErrInvalidToken.Error()
}

func (e *TokenError) Is(target error) bool {
	return target == domain.ErrInvalidToken
}

func (e *TokenError) Unwrap() error {
	return e.cause
}

var errUnsupportedAlgorithm = errors.New("unsupported signing algorithm")

type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTService issues and verifies HS256 session tokens.
type JWTService struct {
	secret *conceal.Text
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTService fails when secret is missing or blank. A ttl of zero issues
// tokens without an expiry.
func NewJWTService(secret *conceal.Text, ttl time.Duration) (*JWTService, error) {
	if secret == nil || strings.TrimSpace(secret.Unveil()) == "" {
		return nil, errors.New("jwt: signing secret is required")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &JWTService{secret: secret, ttl: ttl, now: time.Now}, nil
}

func (s *JWTService) Issue(claim domain.SessionClaim) (string, error) {
	c := sessionClaims{
		Role:             string(claim.Role),
		RegisteredClaims: jwt.RegisteredClaims{Subject: claim.Subject},
	}
	if s.ttl > 0 {
		now := s.now()
		c.IssuedAt = jwt.NewNumericDate(now)
		c.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(s.secret.Unveil()))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *JWTService) Verify(token string) (domain.SessionClaim, error) {
	opts := []jwt.ParserOption{jwt.WithTimeFunc(s.now)}
	if s.ttl > 0 {
		opts = append(opts, jwt.WithExpirationRequired())
	}

	var c sessionClaims
	_, err := jwt.NewParser(opts...).ParseWithClaims(token, &c, s.key)
	if err != nil {
		return domain.SessionClaim{}, &TokenError{Reason: classify(err), cause: err}
	}

	role := domain.Role(c.Role)
	if c.Subject == "" || !role.Valid() {
		return domain.SessionClaim{}, &TokenError{Reason: TokenClaims, cause: fmt.Errorf("subject %q role %q", c.Subject, c.Role)}
	}
	return domain.SessionClaim{Subject: c.Subject, Role: role}, nil
}

func (s *JWTService) key(t *jwt.Token) (any, error) {
	if t.Method != jwt.SigningMethodHS256 {
		return nil, errUnsupportedAlgorithm
	}
	return []byte(s.secret.Unveil()), nil
}

func classify(err error) TokenFailure {
	switch {
	case errors.Is(err, errUnsupportedAlgorithm), errors.Is(err, jwt.ErrTokenUnverifiable):
		return TokenAlgorithm
	case errors.Is(err, jwt.ErrTokenMalformed):
		return TokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return TokenSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return TokenExpired
	default:
		return TokenClaims
	}
}
