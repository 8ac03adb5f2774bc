package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/relaychat/relay-api/internal/core/ports"
)

type UserHandler struct {
	authService ports.AuthService
}

func NewUserHandler(authService ports.AuthService) *UserHandler {
	return &UserHandler{authService: authService}
}

type userResponse struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// List returns every registered user without internal identifiers or hashes.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   userResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /users [get]
func (h *UserHandler) List(c echo.Context) error {
	claim, err := ctxClaim(c)
	if err != nil {
		return err
	}

	users, err := h.authService.ListUsers(c.Request().Context(), claim)
	if err != nil {
		return err
	}

	resp := make([]userResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, userResponse{Username: u.Username, Role: string(u.Role)})
	}
	return c.JSON(http.StatusOK, resp)
}

// Me returns the identity asserted by the presented token.
//
// @Summary      Current identity
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  userResponse
// @Failure      401  {object}  errorResponse
// @Router       /me [get]
func (h *UserHandler) Me(c echo.Context) error {
	claim, err := ctxClaim(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponse{Username: claim.Subject, Role: string(claim.Role)})
}
