package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application.
type Config struct {
	App      AppConfig
	Server   ServerConfig
	DB       DBConfig
	Log      LogConfig
	Session  SessionConfig
	Identity IdentityConfig
	Redis    RedisConfig
	Tracing  TracingConfig
	Jobs     JobsConfig
}

// AppConfig holds environment-wide settings.
type AppConfig struct {
	Env            string `envconfig:"APP_ENV" default:"development"`
	PublicBaseURL  string `envconfig:"PUBLIC_BASE_URL" default:"http://localhost:3000"`
	AllowedOrigins string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
	// BootstrapToken lets the first administrator be promoted before any admin session exists.
	// Leave empty to disable.
	BootstrapToken string `envconfig:"ADMIN_BOOTSTRAP_TOKEN"`
}

// IsProduction reports whether the app runs with production cookie settings.
func (c AppConfig) IsProduction() bool {
	return c.Env == "production"
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port            string `envconfig:"SERVER_PORT" default:"3000"`
	ShutdownTimeout int    `envconfig:"SHUTDOWN_TIMEOUT" default:"30"` // seconds
	SubmitRateLimit int    `envconfig:"SUBMIT_RATE_LIMIT" default:"20"` // requests per minute per IP
}

// DBConfig holds database-related configuration.
// WARNING: Default password is for local development only.
type DBConfig struct {
	Host        string `envconfig:"DB_HOST" default:"localhost"`
	Port        int    `envconfig:"DB_PORT" default:"5432"`
	User        string `envconfig:"DB_USER" default:"postgres"`
	Password    string `envconfig:"DB_PASSWORD" default:"postgres"`
	Name        string `envconfig:"DB_NAME" default:"referral_portal"`
	SSLMode     string `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConns    int    `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns    int    `envconfig:"DB_MIN_CONNS" default:"5"`
	AutoMigrate bool   `envconfig:"DB_AUTO_MIGRATE" default:"true"`
}

// DSN returns the PostgreSQL connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d&pool_min_conns=%d",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode, c.MaxConns, c.MinConns)
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Pretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// SessionConfig holds session cookie settings.
type SessionConfig struct {
	Secret string        `envconfig:"SESSION_SECRET" required:"true"`
	TTL    time.Duration `envconfig:"SESSION_TTL" default:"120h"`
}

// IdentityConfig points at the managed authentication service.
type IdentityConfig struct {
	ProjectID  string        `envconfig:"IDENTITY_PROJECT_ID" required:"true"`
	JWKSURL    string        `envconfig:"IDENTITY_JWKS_URL" default:"https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"`
	APIBaseURL string        `envconfig:"IDENTITY_API_BASE_URL" default:"https://identitytoolkit.googleapis.com"`
	AdminToken string        `envconfig:"IDENTITY_ADMIN_TOKEN"`
	Timeout    time.Duration `envconfig:"IDENTITY_TIMEOUT" default:"10s"`
}

// Issuer returns the expected "iss" claim of identity tokens.
func (c IdentityConfig) Issuer() string {
	return "https://securetoken.google.com/" + c.ProjectID
}

// RedisConfig enables the Redis live-update broker when Addr is set.
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled  bool   `envconfig:"TRACING_ENABLED" default:"false"`
	Endpoint string `envconfig:"TRACING_ENDPOINT" default:"http://localhost:14268/api/traces"`
}

// JobsConfig holds background job settings.
type JobsConfig struct {
	AuditInterval time.Duration `envconfig:"AUDIT_INTERVAL" default:"1h"`
}

// Load parses environment variables into the Config struct.
// A .env file in the working directory is read first when present; real
// environment variables take precedence over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
