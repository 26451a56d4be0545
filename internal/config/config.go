package config

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Server   ServerConfig   `env:",prefix=SERVER_"`
	Postgres PostgresConfig `env:",prefix=POSTGRES_"`
	Redis    RedisConfig    `env:",prefix=REDIS_"`
	JWT      JWTConfig      `env:",prefix=JWT_"`
	Identity IdentityConfig `env:",prefix=IDENTITY_"`
	Invite   InviteConfig   `env:",prefix=INVITE_"`
	Security SecurityConfig `env:",prefix="`
	CORS     CORSConfig     `env:",prefix=CORS_"`
	Events   EventsConfig   `env:",prefix=EVENTS_"`
	AppURL   string         `env:"APP_URL,default="`
	Env      string         `env:"ENV,default=development"`
}

type ServerConfig struct {
	Port         string   `env:"PORT,default=8080"`
	Host         string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout  Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=15s"`
}

type PostgresConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=5432"`
	User     string `env:"USER,default=haven"`
	Password string `env:"PASSWORD,default=haven_password"`
	DBName   string `env:"DB,default=haven_db"`
	SSLMode  string `env:"SSLMODE,default=disable"`
}

type RedisConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`
}

type JWTConfig struct {
	Secret        string   `env:"SECRET,required"`
	SessionExpiry Duration `env:"SESSION_EXPIRY,default=7d"`
}

// IdentityConfig describes how access tokens of the external identity provider are verified
type IdentityConfig struct {
	Issuer          string `env:"ISSUER,default=privy.io"`
	AppID           string `env:"APP_ID,default="`
	VerificationKey string `env:"VERIFICATION_KEY,default="`
}

type InviteConfig struct {
	ClaimRetries int `env:"CLAIM_RETRIES,default=3"`
}

type SecurityConfig struct {
	RateLimitRequests int      `env:"RATE_LIMIT_REQUESTS,default=10"`
	RateLimitWindow   Duration `env:"RATE_LIMIT_WINDOW,default=1m"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization"`
}

// EventsConfig selects the broker domain events are published to
type EventsConfig struct {
	Driver   string   `env:"DRIVER,default=none"`
	Brokers  []string `env:"KAFKA_BROKERS,default=localhost:9092"`
	Topic    string   `env:"KAFKA_TOPIC,default=haven.user-events"`
	Username string   `env:"KAFKA_USERNAME,default="`
	Password string   `env:"KAFKA_PASSWORD,default="`
	NATSURL  string   `env:"NATS_URL,default=nats://localhost:4222"`
	Subject  string   `env:"NATS_SUBJECT,default=haven.user-events"`
}

// DSN returns PostgreSQL connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// Load reads the configuration from the process environment
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom reads the configuration from lookuper and validates it
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var config Config

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &config,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if len(config.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	switch config.Events.Driver {
	case "none", "kafka", "nats":
	default:
		return nil, fmt.Errorf("EVENTS_DRIVER must be one of none, kafka, nats; got %q", config.Events.Driver)
	}

	if config.Invite.ClaimRetries < 1 {
		return nil, fmt.Errorf("INVITE_CLAIM_RETRIES must be positive")
	}

	config.AppURL = strings.TrimRight(config.AppURL, "/")
	if config.AppURL != "" {
		if u, err := url.Parse(config.AppURL); err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("APP_URL must be an absolute URL, got %q", config.AppURL)
		}
	}

	return &config, nil
}

// IsProduction reports whether secure cookies and JSON logs are expected
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
