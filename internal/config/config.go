package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const devJWTSecret = "default_super_secret_key"

// Config holds all application configuration.
type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	GinMode     string `envconfig:"GIN_MODE" default:"debug"`
	DatabaseURL string `envconfig:"DATABASE_URL"` // postgres:// URL, or a SQLite file/DSN
	JWTSecret   string `envconfig:"JWT_SECRET"`

	// Used only when DATABASE_URL is unset.
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD" default:"postgres"`
	DBName     string `envconfig:"DB_NAME" default:"postgres"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	UploadDir    string   `envconfig:"UPLOAD_DIR" default:"uploads/invoices"` // invoice image blobs
	GotenbergURL string   `envconfig:"GOTENBERG_URL"`                         // PDF renderer; export falls back to HTML when empty
	CORSOrigins  []string `envconfig:"CORS_ORIGINS" default:"http://localhost:5173,http://127.0.0.1:5173"`

	// RedisURL enables the cross-instance event relay for dashboard websockets.
	RedisURL           string `envconfig:"REDIS_URL"`
	RateLimitPerMinute int    `envconfig:"RATE_LIMIT_PER_MINUTE" default:"300"`

	// Bootstrap administrator, created at startup when both email and password are set.
	AdminName     string `envconfig:"ADMIN_NAME" default:"Administrator"`
	AdminEmail    string `envconfig:"ADMIN_EMAIL"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD"`
}

// Load reads configs/.env when present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load("configs/.env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load configs/.env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from environment variables with development defaults.
// JWT_SECRET is mandatory when GIN_MODE=release.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	cfg.GotenbergURL = strings.TrimRight(cfg.GotenbergURL, "/")
	cfg.CORSOrigins = compact(cfg.CORSOrigins)

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBSSLMode)
	}

	if cfg.JWTSecret == "" {
		if cfg.IsRelease() {
			return nil, fmt.Errorf("JWT_SECRET environment variable is required in release mode")
		}
		cfg.JWTSecret = devJWTSecret
	}

	return &cfg, nil
}

func (c *Config) IsRelease() bool {
	return c.GinMode == "release"
}

// BootstrapAdmin reports whether an administrator account should be ensured at startup.
func (c *Config) BootstrapAdmin() bool {
	return c.AdminEmail != "" && c.AdminPassword != ""
}

// String masks the secret and the database credentials.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Port: %s, Mode: %s, DB: %s, Uploads: %s, Gotenberg: %q, Redis: %s, JWT: ***}",
		c.Port, c.GinMode, maskURL(c.DatabaseURL), c.UploadDir, c.GotenbergURL, maskURL(c.RedisURL))
}

func maskURL(u string) string {
	if i := strings.Index(u, "@"); i >= 0 {
		if j := strings.Index(u, "://"); j >= 0 && j < i {
			return u[:j+3] + "***" + u[i:]
		}
	}
	return u
}

func compact(list []string) []string {
	var out []string
	for _, part := range list {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
