package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/relaychat/relay-api/internal/api/middleware"
	"github.com/relaychat/relay-api/internal/core/domain"
)

// errorResponse documents the error envelope rendered by the API error handler.
type errorResponse struct {
	Error string `json:"error"`
}

// ctxClaim extracts the claim injected by the Auth middleware. Its absence
// means the route was mounted without Auth.
func ctxClaim(c echo.Context) (domain.SessionClaim, error) {
	claim, ok := middleware.ClaimFrom(c)
	if !ok || claim.Subject == "" {
		return domain.SessionClaim{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return claim, nil
}
