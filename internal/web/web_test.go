package web_test

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"autoparts/internal/config"
	"autoparts/internal/database"
	"autoparts/internal/models"
	"autoparts/internal/repositories"
	"autoparts/internal/server"
	"autoparts/internal/services"
	"autoparts/internal/storage"
	"autoparts/internal/validation"
	"autoparts/internal/web"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func init() {
	models.PasswordCost = bcrypt.MinCost
}

// startAPI serves a real API backed by in-memory SQLite on a loopback port
// and returns its base URL.
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

// browser drives the storefront and keeps its cookies between requests.
type browser struct {
	t       *testing.T
	app     *fiber.App
	cookies map[string]string
}

func newBrowser(t *testing.T, apiURL string) *browser {
	t.Helper()
	views, err := web.NewViews()
	require.NoError(t, err)
	cfg := config.StorefrontConfig{
		Env:           "test",
		APIBaseURL:    apiURL,
		APITimeout:    2 * time.Second,
		SessionCookie: "auth_token",
	}
	app := web.NewApp(web.NewStorefront(cfg, zaptest.NewLogger(t)), views, io.Discard)
	return &browser{t: t, app: app, cookies: map[string]string{}}
}

// page is a rendered response.
type page struct {
	status   int
	location string
	body     string
}

func (b *browser) send(req *http.Request) page {
	b.t.Helper()
	for name, value := range b.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	resp, err := b.app.Test(req, -1)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	for _, c := range resp.Cookies() {
		if c.Value == "" {
			delete(b.cookies, c.Name)
		} else {
			b.cookies[c.Name] = c.Value
		}
	}
	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return page{status: resp.StatusCode, location: resp.Header.Get("Location"), body: string(body)}
}

func (b *browser) get(path string) page {
	return b.send(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) postForm(path string, form url.Values) page {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
	return b.send(req)
}

func (b *browser) postMultipart(path string, fields map[string]string, image []byte) page {
	b.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(b.t, w.WriteField(k, v))
	}
	if image != nil {
		fw, err := w.CreateFormFile("image", "part.png")
		require.NoError(b.t, err)
		_, _ = fw.Write(image)
	}
	require.NoError(b.t, w.Close())
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return b.send(req)
}

func (b *browser) register() {
	b.t.Helper()
	p := b.postForm("/register", url.Values{
		"name": {"Admin"}, "email": {"admin@example.com"},
		"password": {"admin123"}, "confirm_password": {"admin123"},
	})
	require.Equal(b.t, http.StatusFound, p.status, p.body)
	require.Equal(b.t, "/dashboard", p.location)
}

func TestViewsRenderPagesInsideLayout(t *testing.T) {
	views, err := web.NewViews()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, views.Render(&buf, "pages/notfound", fiber.Map{"Title": "Not Found", "Path": "/nowhere"}, "layout"))
	out := buf.String()
	assert.Contains(t, out, "<title>Not Found | AutoParts Pro</title>")
	assert.Contains(t, out, "Back to Catalog")
	assert.Less(t, strings.Index(out, "<nav"), strings.Index(out, "Back to Catalog"))

	buf.Reset()
	require.NoError(t, views.Render(&buf, "pages/home", fiber.Map{"Title": "Home", "Path": "/", "Total": 0}, "layout"))
	assert.NotContains(t, buf.String(), "Back to Catalog", "pages do not leak into each other")
}

func TestPublicPagesWithEmptyInventory(t *testing.T) {
	b := newBrowser(t, startAPI(t))

	p := b.get("/")
	assert.Equal(t, http.StatusOK, p.status)
	assert.Contains(t, p.body, "No parts available")
	assert.Contains(t, p.body, "Sign In")

	p = b.get("/parts")
	assert.Equal(t, http.StatusOK, p.status)
	assert.Contains(t, p.body, "No parts found")

	p = b.get("/parts/1")
	assert.Equal(t, http.StatusNotFound, p.status)
	assert.Contains(t, p.body, "404")

	p = b.get("/no/such/page")
	assert.Equal(t, http.StatusNotFound, p.status)
}

func TestPagesDegradeWhenAPIIsDown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	deadURL := "http://" + ln.Addr().String() + "/api"
	require.NoError(t, ln.Close())

	b := newBrowser(t, deadURL)

	p := b.get("/")
	assert.Equal(t, http.StatusOK, p.status)
	assert.Contains(t, p.body, "No parts available")

	p = b.get("/parts?category=filters")
	assert.Equal(t, http.StatusOK, p.status)
	assert.Contains(t, p.body, "No parts found")

	p = b.get("/parts/3")
	assert.Equal(t, http.StatusNotFound, p.status)

	p = b.postForm("/login", url.Values{"email": {"admin@example.com"}, "password": {"admin123"}})
	assert.Equal(t, http.StatusBadGateway, p.status)
	assert.Contains(t, p.body, "Login failed")
}

func TestDashboardRequiresSession(t *testing.T) {
	b := newBrowser(t, startAPI(t))

	p := b.get("/dashboard")
	assert.Equal(t, http.StatusFound, p.status)
	assert.Equal(t, "/login", p.location)

	p = b.postMultipart("/dashboard/parts", map[string]string{"name": "Oil Filter"}, nil)
	assert.Equal(t, http.StatusFound, p.status)
	assert.Equal(t, "/login", p.location)

	// A tampered cookie is not a session.
	b.cookies["auth_token"] = "forged"
	b.cookies["auth_token_user"] = "%%%"
	p = b.get("/dashboard")
	assert.Equal(t, "/login", p.location)
}

func TestLoginErrors(t *testing.T) {
	b := newBrowser(t, startAPI(t))
	b.register()
	b.get("/logout")

	p := b.postForm("/login", url.Values{"email": {"admin@example.com"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, p.status)
	assert.Contains(t, p.body, "Invalid email or password")
	assert.Contains(t, p.body, `value="admin@example.com"`)

	p = b.postForm("/register", url.Values{
		"name": {"Admin"}, "email": {"other@example.com"},
		"password": {"admin123"}, "confirm_password": {"nope"},
	})
	assert.Equal(t, http.StatusBadRequest, p.status)
	assert.Contains(t, p.body, "Passwords do not match")

	p = b.postForm("/register", url.Values{
		"name": {"Admin"}, "email": {"admin@example.com"},
		"password": {"admin123"}, "confirm_password": {"admin123"},
	})
	assert.Equal(t, http.StatusConflict, p.status)
	assert.Contains(t, p.body, "Email already registered")

	p = b.postForm("/login", url.Values{"email": {"admin@example.com"}, "password": {"admin123"}})
	assert.Equal(t, http.StatusFound, p.status)
	assert.Equal(t, "/dashboard", p.location)
}

func TestInventoryManagement(t *testing.T) {
	b := newBrowser(t, startAPI(t))
	b.register()

	p := b.get("/dashboard")
	require.Equal(t, http.StatusOK, p.status)
	assert.Contains(t, p.body, "Welcome back, Admin")
	assert.Contains(t, p.body, "No parts in inventory yet.")

	// Create.
	p = b.postMultipart("/dashboard/parts", map[string]string{
		"name": "Oil Filter", "brand": "Bosch", "price": "12.99", "stock": "45", "category": "filters",
	}, nil)
	require.Equal(t, http.StatusFound, p.status, p.body)

	p = b.postMultipart("/dashboard/parts", map[string]string{
		"name": "Brake Pads", "brand": "Brembo", "price": "89.99", "stock": "0", "category": "brakes",
		"description": "Ceramic front pads",
	}, pngBytes)
	require.Equal(t, http.StatusFound, p.status, p.body)

	p = b.get("/dashboard")
	require.Equal(t, http.StatusOK, p.status)
	assert.Contains(t, p.body, `id="stat-parts">2<`)
	assert.Contains(t, p.body, `id="stat-stock">45<`)
	assert.Contains(t, p.body, `id="stat-categories">2<`)
	assert.Contains(t, p.body, `id="stat-value">$584.55<`)
	assert.Contains(t, p.body, `id="stat-out">1<`)
	assert.Contains(t, p.body, `id="stat-low">0<`)

	// Validation errors are shown and the form keeps its input.
	p = b.postMultipart("/dashboard/parts", map[string]string{
		"brand": "Bosch", "price": "5", "stock": "1", "category": "filters",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, p.status)
	assert.Contains(t, strings.ToLower(p.body), "name")
	assert.Contains(t, p.body, `value="Bosch"`)

	// Public pages show the parts.
	p = b.get("/parts?category=filters")
	assert.Contains(t, p.body, "Oil Filter")
	assert.NotContains(t, p.body, "Brake Pads")

	p = b.get("/")
	assert.Contains(t, p.body, "Brake Pads")
	assert.Contains(t, p.body, "Out of Stock")
	assert.Contains(t, p.body, "/uploads/image-")

	p = b.get("/parts/1")
	require.Equal(t, http.StatusOK, p.status)
	assert.Contains(t, p.body, "Oil Filter")
	assert.Contains(t, p.body, "45 in stock")

	// Edit.
	p = b.get("/dashboard/parts/1/edit")
	require.Equal(t, http.StatusOK, p.status)
	assert.Contains(t, p.body, `value="12.99"`)

	p = b.postMultipart("/dashboard/parts/1", map[string]string{
		"name": "Oil Filter", "brand": "Bosch", "price": "12.99", "stock": "5", "category": "filters",
	}, nil)
	require.Equal(t, http.StatusFound, p.status, p.body)
	p = b.get("/parts/1")
	assert.Contains(t, p.body, "Low Stock (5)")

	p = b.postMultipart("/dashboard/parts/99", map[string]string{
		"name": "Ghost", "brand": "None", "price": "1", "stock": "1", "category": "filters",
	}, nil)
	assert.Equal(t, http.StatusNotFound, p.status)

	// Delete.
	p = b.postForm("/dashboard/parts/1/delete", nil)
	require.Equal(t, http.StatusFound, p.status)
	p = b.get("/parts/1")
	assert.Equal(t, http.StatusNotFound, p.status)

	// Logout.
	p = b.postForm("/logout", nil)
	assert.Equal(t, http.StatusFound, p.status)
	assert.Empty(t, b.cookies)
	p = b.get("/dashboard")
	assert.Equal(t, "/login", p.location)
}
