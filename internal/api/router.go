package api

import (
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/relaychat/relay-api/docs"
	"github.com/relaychat/relay-api/internal/api/handler"
	"github.com/relaychat/relay-api/internal/api/middleware"
	"github.com/relaychat/relay-api/internal/core/domain"
	"github.com/relaychat/relay-api/internal/core/ports"
)

// Dependencies are the collaborators the router mounts. Members reports the
// registry size for the readiness probe.
type Dependencies struct {
	Auth        ports.AuthService
	Chat        ports.ChatService
	Checks      map[string]handler.PingFunc
	Members     func() int
	ChatOptions handler.ChatOptions
	Log         zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace: "relay",
		Subsystem: "http",
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || strings.HasPrefix(c.Path(), "/ws")
		},
	}))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	userHandler := handler.NewUserHandler(deps.Auth)
	chatHandler := handler.NewChatHandler(deps.Chat, deps.Auth, deps.ChatOptions, deps.Log)
	healthHandler := handler.NewHealthHandler(deps.Checks, deps.Members)
	authenticated := middleware.Auth(deps.Auth)

	// --- Auth routes ---
	e.POST("/register", authHandler.Register)
	e.POST("/login", authHandler.Login)

	// --- Protected routes ---
	e.GET("/me", userHandler.Me, authenticated)
	e.GET("/users", userHandler.List, authenticated, middleware.RBAC(domain.RoleAdmin))

	// --- Chat ---
	e.GET("/ws", chatHandler.Connect)
	e.GET("/ws/:client_id", chatHandler.Connect)

	// --- Operations (no auth required) ---
	e.GET("/health", healthHandler.Liveness)        // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Error != nil {
				evt = log.Warn().Err(v.Error)
			}
			evt.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
