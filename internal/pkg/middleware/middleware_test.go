package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/CourseFox/internal/pkg/security"
	"github.com/ManuelReschke/CourseFox/internal/pkg/usercontext"
)

const testSecret = "middleware-secret"

func newAuthApp() *fiber.App {
	app := fiber.New()
	app.Get("/me", RequireAPIAuth(testSecret), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userId": usercontext.GetUserID(c)})
	})
	return app
}

func TestRequireAPIAuth(t *testing.T) {
	token, err := security.GenerateAuthToken(11, time.Hour, testSecret)
	require.NoError(t, err)
	foreign, err := security.GenerateAuthToken(11, time.Hour, "other-secret")
	require.NoError(t, err)

	tests := []struct {
		name       string
		setup      func(r *http.Request)
		wantStatus int
	}{
		{name: "no credentials", setup: func(r *http.Request) {}, wantStatus: http.StatusUnauthorized},
		{name: "cookie", setup: func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: usercontext.AuthCookieName, Value: token})
		}, wantStatus: http.StatusOK},
		{name: "bearer", setup: func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token)
		}, wantStatus: http.StatusOK},
		{name: "foreign signature", setup: func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+foreign)
		}, wantStatus: http.StatusUnauthorized},
		{name: "basic scheme", setup: func(r *http.Request) {
			r.Header.Set("Authorization", "Basic "+token)
		}, wantStatus: http.StatusUnauthorized},
	}

	app := newAuthApp()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tt.setup(req)

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, float64(11), body["userId"])
			} else {
				assert.Equal(t, false, body["success"])
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	app := fiber.New()
	app.Use(SecurityHeaders())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.Equal(t, "no-referrer", resp.Header.Get("Referrer-Policy"))
	assert.Empty(t, resp.Header.Get("Strict-Transport-Security"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Contains(t, resp.Header.Get("Strict-Transport-Security"), "max-age=")
}
