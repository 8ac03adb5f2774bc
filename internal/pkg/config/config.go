package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/shoenig/go-conceal"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

type Config struct {
	Host      string        `env:"HOST,      default=0.0.0.0"`
	Port      string        `env:"PORT,      default=8000"`
	Env       string        `env:"ENV,       default=development"`
	LogLevel  string        `env:"LOG_LEVEL, default=info"`
	JWTSecret string        `env:"JWT_SECRET, required"`
	TokenTTL  time.Duration `env:"TOKEN_TTL, default=0s"`

	BcryptCost      int           `env:"BCRYPT_COST,      default=12"`
	StoreDriver     string        `env:"STORE_DRIVER,     default=mongo"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=10s"`

	Mongo    MongoConfig
	Redis    RedisConfig
	Throttle ThrottleConfig
	Chat     ChatConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=relay"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

type ThrottleConfig struct {
	MaxFailures int           `env:"LOGIN_MAX_FAILURES,   default=5"`
	Window      time.Duration `env:"LOGIN_FAILURE_WINDOW, default=15m"`
}

type ChatConfig struct {
	MaxMessageBytes int64         `env:"CHAT_MAX_MESSAGE_BYTES, default=4096"`
	SendBuffer      int           `env:"CHAT_SEND_BUFFER,       default=256"`
	RateBurst       int           `env:"CHAT_RATE_BURST,        default=20"`
	RateInterval    time.Duration `env:"CHAT_RATE_INTERVAL,     default=1s"`
	AllowedOrigins  []string      `env:"CHAT_ALLOWED_ORIGINS"`
	RequireToken    bool          `env:"CHAT_REQUIRE_TOKEN,     default=false"`
}

// Load reads configuration from environment variables using go-envconfig.
// A missing or invalid value aborts the process.
func Load() *Config {
	cfg, err := Parse(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// Parse resolves configuration from lookuper and validates it.
func Parse(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_SECRET must not be blank")
	}
	switch c.StoreDriver {
	case StoreMongo, StoreMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreMongo, StoreMemory, c.StoreDriver)
	}
	if c.Chat.SendBuffer <= 0 {
		return errors.New("CHAT_SEND_BUFFER must be positive")
	}
	if c.Chat.MaxMessageBytes <= 0 {
		return errors.New("CHAT_MAX_MESSAGE_BYTES must be positive")
	}
	if c.TokenTTL < 0 {
		return errors.New("TOKEN_TTL must not be negative")
	}
	return nil
}

// Secret returns the signing secret wrapped so it never prints.
func (c *Config) Secret() *conceal.Text {
	return conceal.New(c.JWTSecret)
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c *Config) Development() bool {
	return c.Env == "development"
}
