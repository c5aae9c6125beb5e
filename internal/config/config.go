package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the API server settings.
type Config struct {
	Env     string
	AppPort string

	DBDriver      string
	DatabaseDSN   string
	DBAutoMigrate bool

	JWTSecret    string
	JWTExpiresIn time.Duration
	BcryptCost   int

	UploadDir          string
	UploadPublicPath   string
	UploadMaxBytes     int64
	UploadSweepOnStart bool

	StrictCategories bool

	RabbitMQURL   string
	RabbitMQQueue string

	CORSOrigins   string
	AuthRateLimit int
}

// IsProduction reports whether the server runs with production settings.
func (c Config) IsProduction() bool { return c.Env == "production" }

// StorefrontConfig holds the settings of the server-rendered frontend.
type StorefrontConfig struct {
	Env           string
	Port          string
	APIBaseURL    string
	APITimeout    time.Duration
	SessionCookie string
	CookieSecure  bool
}

func newViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault("APP_ENV", "development")
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}
	return v, nil
}

// Load reads the API server configuration from the environment and an
// optional CONFIG_FILE.
func Load() (Config, error) {
	v, err := newViper()
	if err != nil {
		return Config{}, err
	}

	v.SetDefault("APP_PORT", ":5000")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DATABASE_DSN", "host=127.0.0.1 user=postgres password=postgres dbname=autoparts port=5432 sslmode=disable")
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("JWT_EXPIRES_IN", "24h")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("UPLOAD_PUBLIC_PATH", "/uploads")
	v.SetDefault("UPLOAD_MAX_BYTES", 5<<20)
	v.SetDefault("UPLOAD_SWEEP_ON_START", false)
	v.SetDefault("STRICT_CATEGORIES", false)
	v.SetDefault("RABBITMQ_QUEUE", "part_events")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("AUTH_RATE_LIMIT", 20)

	cfg := Config{
		Env:                v.GetString("APP_ENV"),
		AppPort:            v.GetString("APP_PORT"),
		DBDriver:           strings.ToLower(v.GetString("DB_DRIVER")),
		DatabaseDSN:        v.GetString("DATABASE_DSN"),
		DBAutoMigrate:      v.GetBool("DB_AUTO_MIGRATE"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		JWTExpiresIn:       v.GetDuration("JWT_EXPIRES_IN"),
		BcryptCost:         v.GetInt("BCRYPT_COST"),
		UploadDir:          v.GetString("UPLOAD_DIR"),
		UploadPublicPath:   "/" + strings.Trim(v.GetString("UPLOAD_PUBLIC_PATH"), "/"),
		UploadMaxBytes:     v.GetInt64("UPLOAD_MAX_BYTES"),
		UploadSweepOnStart: v.GetBool("UPLOAD_SWEEP_ON_START"),
		StrictCategories:   v.GetBool("STRICT_CATEGORIES"),
		RabbitMQURL:        v.GetString("RABBITMQ_URL"),
		RabbitMQQueue:      v.GetString("RABBITMQ_QUEUE"),
		CORSOrigins:        v.GetString("CORS_ORIGINS"),
		AuthRateLimit:      v.GetInt("AUTH_RATE_LIMIT"),
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return Config{}, fmt.Errorf("JWT_SECRET must be set in production")
		}
		cfg.JWTSecret = "dev-only-insecure-secret"
	}
	if cfg.JWTExpiresIn <= 0 {
		return Config{}, fmt.Errorf("JWT_EXPIRES_IN must be a positive duration, got %q", v.GetString("JWT_EXPIRES_IN"))
	}
	switch cfg.DBDriver {
	case "postgres", "sqlite", "memory":
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	if cfg.UploadMaxBytes <= 0 {
		return Config{}, fmt.Errorf("UPLOAD_MAX_BYTES must be positive")
	}
	return cfg, nil
}

// LoadStorefront reads the storefront configuration.
func LoadStorefront() (StorefrontConfig, error) {
	v, err := newViper()
	if err != nil {
		return StorefrontConfig{}, err
	}

	v.SetDefault("STOREFRONT_PORT", ":3000")
	v.SetDefault("API_BASE_URL", "http://localhost:5000/api")
	v.SetDefault("API_TIMEOUT", "10s")
	v.SetDefault("SESSION_COOKIE", "auth_token")
	v.SetDefault("COOKIE_SECURE", false)

	cfg := StorefrontConfig{
		Env:           v.GetString("APP_ENV"),
		Port:          v.GetString("STOREFRONT_PORT"),
		APIBaseURL:    strings.TrimRight(v.GetString("API_BASE_URL"), "/"),
		APITimeout:    v.GetDuration("API_TIMEOUT"),
		SessionCookie: v.GetString("SESSION_COOKIE"),
		CookieSecure:  v.GetBool("COOKIE_SECURE"),
	}
	if cfg.APIBaseURL == "" {
		return StorefrontConfig{}, fmt.Errorf("API_BASE_URL must be set")
	}
	return cfg, nil
}
