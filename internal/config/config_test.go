package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"autoparts/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.AppPort)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiresIn)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, "/uploads", cfg.UploadPublicPath)
	assert.Equal(t, int64(5<<20), cfg.UploadMaxBytes)
	assert.False(t, cfg.StrictCategories)
	assert.NotEmpty(t, cfg.JWTSecret)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("APP_PORT", ":8081")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_EXPIRES_IN", "2h")
	t.Setenv("UPLOAD_PUBLIC_PATH", "static/images/")
	t.Setenv("STRICT_CATEGORIES", "true")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.AppPort)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.JWTExpiresIn)
	assert.Equal(t, "/static/images", cfg.UploadPublicPath)
	assert.True(t, cfg.StrictCategories)
}

func TestLoadRequiresSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := config.Load()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "oracle")

	_, err := config.Load()
	assert.ErrorContains(t, err, "unsupported DB_DRIVER")
}

func TestLoadReadsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "autoparts.env")
	require.NoError(t, os.WriteFile(path, []byte("APP_PORT=:7000\nBCRYPT_COST=12\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.AppPort)
	assert.Equal(t, 12, cfg.BcryptCost)
}

func TestLoadStorefront(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://api.internal:5000/api/")

	cfg, err := config.LoadStorefront()
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.Port)
	assert.Equal(t, "http://api.internal:5000/api", cfg.APIBaseURL)
	assert.Equal(t, 10*time.Second, cfg.APITimeout)
	assert.Equal(t, "auth_token", cfg.SessionCookie)
}
