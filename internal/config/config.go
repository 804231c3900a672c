// Package config loads the service configuration from the environment.
// A .env file in the working directory is read first when present.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	_ "github.com/joho/godotenv/autoload"

	"github.com/emilythestrangee/stackit/backend/internal/ledger"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	Port        string   `env:"PORT"         envDefault:"8080"`
	Env         string   `env:"APP_ENV"      envDefault:"development"`
	Storage     string   `env:"STORAGE"      envDefault:"postgres"`
	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`

	Database Database
	Auth     Auth
	Ledger   Ledger
	Admin    Admin
	Twilio   Twilio
}

type Database struct {
	Host         string `env:"DB_HOST"     envDefault:"localhost"`
	Port         string `env:"DB_PORT"     envDefault:"5432"`
	User         string `env:"DB_USER"`
	Password     string `env:"DB_PASSWORD"`
	Name         string `env:"DB_NAME"     envDefault:"stackit"`
	SSLMode      string `env:"DB_SSLMODE"  envDefault:"disable"`
	Debug        bool   `env:"DB_DEBUG"`
	MaxIdleConns int    `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	MaxOpenConns int    `env:"DB_MAX_OPEN_CONNS" envDefault:"100"`
}

// DSN builds the postgres connection string.
func (d Database) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode,
	)
}

type Auth struct {
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"JWT_TTL" envDefault:"72h"`
}

type Ledger struct {
	VotePolicy      string `env:"LEDGER_VOTE_POLICY"      envDefault:"append"`
	AcceptPolicy    string `env:"LEDGER_ACCEPT_POLICY"    envDefault:"replace"`
	AcceptAuthority string `env:"LEDGER_ACCEPT_AUTHORITY" envDefault:"any"`
}

// Options converts the configured policy names into ledger options.
func (l Ledger) Options() ledger.Options {
	return ledger.Options{
		VotePolicy:      ledger.VotePolicy(l.VotePolicy),
		AcceptPolicy:    ledger.AcceptPolicy(l.AcceptPolicy),
		AcceptAuthority: ledger.AcceptAuthority(l.AcceptAuthority),
	}
}

// Admin seeds an administrator account at startup when Email is set.
type Admin struct {
	Username string `env:"ADMIN_USERNAME" envDefault:"admin"`
	Email    string `env:"ADMIN_EMAIL"`
	Password string `env:"ADMIN_PASSWORD"`
}

type Twilio struct {
	AccountSID string `env:"TWILIO_ACCOUNT_SID"`
	AuthToken  string `env:"TWILIO_AUTH_TOKEN"`
	FromNumber string `env:"TWILIO_FROM_NUMBER"`
}

// Enabled reports whether SMS delivery is configured.
func (t Twilio) Enabled() bool {
	return t.AccountSID != "" && t.AuthToken != "" && t.FromNumber != ""
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive, got %s", c.Auth.TokenTTL)
	}
	switch c.Storage {
	case StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("unknown STORAGE %q", c.Storage)
	}
	if c.Admin.Email != "" && len(c.Admin.Password) < 6 {
		return errors.New("ADMIN_PASSWORD must be at least 6 characters when ADMIN_EMAIL is set")
	}
	if err := c.Ledger.Options().Validate(); err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	return nil
}

// IsProduction selects JSON logs and gin release mode.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}
