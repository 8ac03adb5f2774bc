package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/relaychat/relay-api/internal/core/domain"
)

// ClaimKey is the echo.Context key under which Auth stores the verified claim.
const ClaimKey = "claim"

// TokenVerifier resolves a bearer token into a claim.
type TokenVerifier interface {
	Verify(token string) (domain.SessionClaim, error)
}

// Auth validates the bearer token and injects its claim into the context.
func Auth(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := BearerToken(c.Request())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
			}

			claim, err := verifier.Verify(token)
			if err != nil {
				return domain.ErrInvalidToken
			}

			c.Set(ClaimKey, claim)
			return next(c)
		}
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// ClaimFrom returns the claim stored by Auth.
func ClaimFrom(c echo.Context) (domain.SessionClaim, bool) {
	claim, ok := c.Get(ClaimKey).(domain.SessionClaim)
	return claim, ok
}
