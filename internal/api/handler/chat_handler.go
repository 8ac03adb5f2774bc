package handler

import (
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/mileusna/useragent"
	"github.com/rs/zerolog"

	"github.com/relaychat/relay-api/internal/api/middleware"
	"github.com/relaychat/relay-api/internal/core/domain"
	"github.com/relaychat/relay-api/internal/core/ports"
	"github.com/relaychat/relay-api/internal/infrastructure/ws"
)

// ChatOptions configures the duplex chat endpoint.
type ChatOptions struct {
	Session        ws.Options
	AllowedOrigins []string
	// RequireToken gates the upgrade behind a valid bearer token.
	RequireToken bool
}

type ChatHandler struct {
	chat     ports.ChatService
	verifier middleware.TokenVerifier
	upgrader websocket.Upgrader
	opts     ChatOptions
	log      zerolog.Logger
}

func NewChatHandler(chat ports.ChatService, verifier middleware.TokenVerifier, opts ChatOptions, log zerolog.Logger) *ChatHandler {
	log = log.With().Str("component", "ws").Logger()
	return &ChatHandler{
		chat:     chat,
		verifier: verifier,
		upgrader: ws.NewUpgrader(opts.AllowedOrigins, log),
		opts:     opts,
		log:      log,
	}
}

// Connect upgrades the request and serves the socket until it closes. The
// client id comes from the path; without one the token subject is used, and
// failing that a random id is assigned.
//
// @Summary      Join the chat
// @Tags         chat
// @Param        client_id  path   string  false  "Client identifier"
// @Param        token      query  string  false  "Bearer token when CHAT_REQUIRE_TOKEN is set"
// @Success      101
// @Failure      401  {object}  errorResponse
// @Router       /ws/{client_id} [get]
func (h *ChatHandler) Connect(c echo.Context) error {
	clientID := c.Param("client_id")

	if h.opts.RequireToken {
		claim, err := h.authenticate(c)
		if err != nil {
			return err
		}
		if clientID == "" {
			clientID = claim.Subject
		}
	}
	if clientID == "" {
		clientID = uuid.NewString()
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		h.log.Debug().Err(err).Str("remote", c.RealIP()).Msg("upgrade failed")
		return nil
	}

	ua := useragent.Parse(c.Request().UserAgent())
	h.log.Info().
		Str("client_id", clientID).
		Str("remote", c.RealIP()).
		Str("agent", ua.Name).
		Str("os", ua.OS).
		Bool("bot", ua.Bot).
		Msg("websocket upgraded")

	ws.NewSession(conn, h.opts.Session, h.log).Serve(h.chat, clientID)
	return nil
}

func (h *ChatHandler) authenticate(c echo.Context) (domain.SessionClaim, error) {
	token := c.QueryParam("token")
	if token == "" {
		var ok bool
		if token, ok = middleware.BearerToken(c.Request()); !ok {
			return domain.SessionClaim{}, domain.ErrInvalidToken
		}
	}
	claim, err := h.verifier.Verify(token)
	if err != nil {
		return domain.SessionClaim{}, domain.ErrInvalidToken
	}
	return claim, nil
}
