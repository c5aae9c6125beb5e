package cli_test

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"autoparts/internal/cli"
	"autoparts/internal/config"
	"autoparts/internal/database"
	"autoparts/internal/models"
	"autoparts/internal/repositories"
	"autoparts/internal/server"
	"autoparts/internal/services"
	"autoparts/internal/storage"
	"autoparts/internal/validation"
	"autoparts/pkg/client"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
)

const sessionPath = "/home/admin/.partsctl/session.json"

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func init() {
	models.PasswordCost = bcrypt.MinCost
}

func startAPI(t *testing.T) string {
	t.Helper()
	log := zaptest.NewLogger(t)
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.Open("sqlite", dsn, true, log)
	require.NoError(t, err)

	cfg := config.Config{
		Env:              "test",
		JWTSecret:        "test_jwt_secret",
		JWTExpiresIn:     time.Hour,
		UploadPublicPath: "/uploads",
		UploadMaxBytes:   1 << 20,
		CORSOrigins:      "*",
	}
	store := storage.NewLocalStore(afero.NewMemMapFs(), cfg.UploadPublicPath, cfg.UploadMaxBytes, log)
	v := validation.New()
	app := server.NewApp(server.Deps{
		Config:    cfg,
		Log:       log,
		Auth:      services.NewAuthService(repositories.NewGORMUserRepository(db), v, cfg.JWTSecret, cfg.JWTExpiresIn, log),
		Parts:     services.NewPartService(repositories.NewGORMPartRepository(db), store, v, log),
		Images:    store,
		AccessLog: io.Discard,
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() {
		_ = app.Shutdown()
		_ = database.Close(db)
	})
	return "http://" + ln.Addr().String() + "/api"
}

// partsctl runs one command line and returns its output.
func partsctl(t *testing.T, fs afero.Fs, api string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := cli.NewRootCommand(fs, &out)
	cmd.SetArgs(append([]string{"--api", api, "--session", sessionPath, "--timeout", "5s"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestInventoryWorkflow(t *testing.T) {
	api := startAPI(t)
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/tmp/pads.png", pngBytes, 0o644))

	_, err := partsctl(t, fs, api, "parts", "create", "--name", "Brake Pads")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")

	out, err := partsctl(t, fs, api, "register", "--name", "Admin", "--email", "admin@example.com", "--password", "admin123")
	require.NoError(t, err)
	assert.Equal(t, "Registered and logged in as Admin <admin@example.com>\n", out)
	exists, _ := afero.Exists(fs, sessionPath)
	assert.True(t, exists)

	out, err = partsctl(t, fs, api, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Admin <admin@example.com> (id 1")

	out, err = partsctl(t, fs, api, "parts", "create",
		"--name", "Brake Pads", "--brand", "Brembo", "--price", "89.99", "--stock", "3",
		"--category", "brakes", "--description", "Ceramic front pads", "--image", "/tmp/pads.png")
	require.NoError(t, err)
	assert.Contains(t, out, "Created part 1")
	assert.Contains(t, out, "/uploads/image-")
	assert.Contains(t, out, "Ceramic front pads")

	out, err = partsctl(t, fs, api, "parts", "create",
		"--name", "Oil Filter", "--brand", "Bosch", "--price", "12.99", "--stock", "45", "--category", "filters")
	require.NoError(t, err)
	assert.Contains(t, out, "Created part 2")
	assert.NotContains(t, out, "Image")

	_, err = partsctl(t, fs, api, "parts", "create",
		"--brand", "Bosch", "--price", "12.99", "--stock", "45", "--category", "filters")
	require.Error(t, err)
	assert.True(t, client.IsStatus(err, 400))
	assert.Contains(t, strings.ToLower(err.Error()), "name")

	out, err = partsctl(t, fs, api, "parts", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "Oil Filter")
	assert.Contains(t, out, "45 in stock")
	assert.Contains(t, out, "Low Stock (3)")

	out, err = partsctl(t, fs, api, "parts", "list", "--search", "bosch")
	require.NoError(t, err)
	assert.Contains(t, out, "Oil Filter")
	assert.NotContains(t, out, "Brake Pads")

	out, err = partsctl(t, fs, api, "parts", "list", "--category", "ignition")
	require.NoError(t, err)
	assert.Equal(t, "No parts found\n", out)

	out, err = partsctl(t, fs, api, "dashboard")
	require.NoError(t, err)
	assert.Contains(t, out, "Total parts   2")
	assert.Contains(t, out, "Total stock   48")
	assert.Contains(t, out, "$854.52")
	assert.Contains(t, out, "Needs restocking:")
	assert.Contains(t, out, "Brake Pads")

	out, err = partsctl(t, fs, api, "parts", "update", "1",
		"--name", "Brake Pads", "--brand", "Brembo", "--price", "89.99", "--stock", "0", "--category", "brakes")
	require.NoError(t, err)
	assert.Contains(t, out, "Out of Stock")
	assert.Contains(t, out, "Ceramic front pads", "description kept when not given")
	assert.Contains(t, out, "/uploads/image-", "image kept when not given")

	out, err = partsctl(t, fs, api, "parts", "get", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Bosch")

	_, err = partsctl(t, fs, api, "parts", "get", "99")
	assert.True(t, client.IsStatus(err, 404))

	_, err = partsctl(t, fs, api, "parts", "get", "abc")
	assert.EqualError(t, err, `invalid part id "abc"`)

	out, err = partsctl(t, fs, api, "parts", "delete", "1")
	require.NoError(t, err)
	assert.Equal(t, "Deleted part 1\n", out)

	out, err = partsctl(t, fs, api, "logout")
	require.NoError(t, err)
	assert.Equal(t, "Logged out\n", out)

	_, err = partsctl(t, fs, api, "whoami")
	assert.Error(t, err)
}

func TestLoginReadsPasswordFromEnvironment(t *testing.T) {
	api := startAPI(t)
	fs := afero.NewMemMapFs()

	_, err := partsctl(t, fs, api, "register", "--name", "Admin", "--email", "admin@example.com", "--password", "admin123")
	require.NoError(t, err)
	_, err = partsctl(t, fs, api, "logout")
	require.NoError(t, err)

	t.Setenv("PARTSCTL_PASSWORD", "admin123")
	out, err := partsctl(t, fs, api, "login", "--email", "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Logged in as Admin <admin@example.com>\n", out)

	_, err = partsctl(t, fs, api, "login", "--email", "admin@example.com", "--password", "wrong")
	assert.True(t, client.IsStatus(err, 401))
}

func TestCorruptSessionIsDiscarded(t *testing.T) {
	api := startAPI(t)
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, sessionPath, []byte("{garbage"), 0o600))

	out, err := partsctl(t, fs, api, "parts", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "warning: discarded unreadable session")
	assert.Contains(t, out, "No parts found")

	exists, _ := afero.Exists(fs, sessionPath)
	assert.False(t, exists)
}
