package middleware_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"autoparts/internal/apperr"
	"autoparts/internal/metrics"
	"autoparts/internal/middleware"
	"autoparts/internal/models"
	"autoparts/internal/repositories"
	"autoparts/internal/services"
	"autoparts/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// errorHandler renders errors as their apperr status and message.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).SendString(fe.Message)
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return c.Status(ae.Kind.Status()).SendString(ae.Message)
	}
	return c.Status(fiber.StatusInternalServerError).SendString("boom")
}

func newAuth() *services.AuthService {
	return services.NewAuthService(repositories.NewMockUserRepository(), validation.New(), "secret", time.Hour, nil)
}

func TestAuthRequired(t *testing.T) {
	auth := newAuth()
	app := fiber.New(fiber.Config{ErrorHandler: errorHandler})
	app.Get("/private", middleware.AuthRequired(auth), func(c *fiber.Ctx) error {
		claims, ok := middleware.Claims(c)
		require.True(t, ok)
		assert.Equal(t, claims.UserID, c.Locals(middleware.LocalUserID))
		return c.SendString(claims.Email)
	})

	token, err := auth.IssueToken(&models.User{ID: 4, Email: "mech@example.com"})
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid", "Bearer " + token, http.StatusOK, "mech@example.com"},
		{"lowercase scheme", "bearer " + token, http.StatusOK, "mech@example.com"},
		{"missing", "", http.StatusUnauthorized, "Access token required"},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized, "Access token required"},
		{"empty token", "Bearer ", http.StatusUnauthorized, "Access token required"},
		{"tampered", "Bearer " + token + "x", http.StatusUnauthorized, "Invalid or expired token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			body, _ := io.ReadAll(resp.Body)
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.body, string(body))
		})
	}
}

func TestHTTPMetrics(t *testing.T) {
	m := metrics.New()
	app := fiber.New(fiber.Config{ErrorHandler: errorHandler})
	app.Use(middleware.HTTPMetrics(m))
	app.Get("/api/parts/:id", func(c *fiber.Ctx) error {
		if c.Params("id") == "1" {
			return c.SendString("ok")
		}
		return apperr.NotFound("Part not found")
	})

	for _, path := range []string{"/api/parts/1", "/api/parts/2", "/api/parts/3"} {
		_, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
		require.NoError(t, err)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/api/parts/:id", "200")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/api/parts/:id", "404")))
}
