package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurorallabs/referral-portal/internal/model"
	"github.com/aurorallabs/referral-portal/internal/session"
)

type mockAdminChecker struct {
	isAdminFn func(ctx context.Context, uid string) (bool, error)
	calls     int
}

func (m *mockAdminChecker) IsAdmin(ctx context.Context, uid string) (bool, error) {
	m.calls++
	if m.isAdminFn != nil {
		return m.isAdminFn(ctx, uid)
	}
	return false, nil
}

func storedRole(admin bool) *mockAdminChecker {
	return &mockAdminChecker{
		isAdminFn: func(ctx context.Context, uid string) (bool, error) { return admin, nil },
	}
}

const testSecret = "test-secret-at-least-32-bytes-long!!"

func issue(t *testing.T, m *session.Manager, uid string, role model.Role) string {
	t.Helper()
	token, _, err := m.Issue(uid, uid+"@example.com", role)
	require.NoError(t, err)
	return token
}

func withCookie(req *http.Request, token string) *http.Request {
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
	return req
}

func okHandler(c *fiber.Ctx) error {
	s := SessionFrom(c)
	if s == nil {
		return c.SendString("anonymous")
	}
	return c.SendString(s.UID)
}

func TestDashboardGate(t *testing.T) {
	mgr := session.NewManager(testSecret, time.Hour)
	auth := NewAuth(mgr, storedRole(false), false, "")

	app := fiber.New()
	app.Use("/dashboard", auth.DashboardGate())
	app.Get("/dashboard", okHandler)

	t.Run("no cookie redirects home", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/dashboard", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusFound, resp.StatusCode)
		assert.Equal(t, "/", resp.Header.Get("Location"))
		assert.Empty(t, resp.Header.Get("Set-Cookie"))
	})

	t.Run("invalid cookie is cleared", func(t *testing.T) {
		req := withCookie(httptest.NewRequest(http.MethodGet, "/dashboard", nil), "not-a-jwt")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusFound, resp.StatusCode)
		assert.Equal(t, "/", resp.Header.Get("Location"))
		cookie := resp.Header.Get("Set-Cookie")
		assert.True(t, strings.HasPrefix(cookie, session.CookieName+"=;"), cookie)
		assert.Contains(t, strings.ToLower(cookie), "path=/")
	})

	t.Run("valid cookie passes session through locals", func(t *testing.T) {
		req := withCookie(httptest.NewRequest(http.MethodGet, "/dashboard", nil), issue(t, mgr, "uid_1", model.RoleUser))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "uid_1", string(body))
	})
}

func TestRequireSession(t *testing.T) {
	mgr := session.NewManager(testSecret, time.Hour)
	auth := NewAuth(mgr, storedRole(false), false, "")

	app := fiber.New()
	app.Get("/api/user/rewards", auth.RequireSession(), okHandler)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/user/rewards", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, string(body))

	other := session.NewManager("another-secret-that-is-long-enough!", time.Hour)
	req := withCookie(httptest.NewRequest(http.MethodGet, "/api/user/rewards", nil), issue(t, other, "uid_1", model.RoleUser))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	body, _ = io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"error":"Invalid session"}`, string(body))

	req = withCookie(httptest.NewRequest(http.MethodGet, "/api/user/rewards", nil), issue(t, mgr, "uid_1", model.RoleUser))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireAdmin(t *testing.T) {
	mgr := session.NewManager(testSecret, time.Hour)

	tests := []struct {
		name        string
		role        model.Role
		stored      *mockAdminChecker
		wantStatus  int
		wantDBCheck bool
	}{
		{"admin snapshot and stored admin", model.RoleAdmin, storedRole(true), fiber.StatusOK, true},
		{"demoted since sign-in", model.RoleAdmin, storedRole(false), fiber.StatusForbidden, true},
		{"promoted but not re-signed-in", model.RoleUser, storedRole(true), fiber.StatusForbidden, false},
		{
			"stored role unreadable",
			model.RoleAdmin,
			&mockAdminChecker{isAdminFn: func(ctx context.Context, uid string) (bool, error) {
				return false, errors.New("db down")
			}},
			fiber.StatusInternalServerError,
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := NewAuth(mgr, tt.stored, false, "")
			app := fiber.New()
			app.Get("/dashboard/admin/stats", auth.RequireAdmin(), okHandler)

			req := withCookie(httptest.NewRequest(http.MethodGet, "/dashboard/admin/stats", nil), issue(t, mgr, "uid_1", tt.role))
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantDBCheck, tt.stored.calls > 0)
		})
	}
}

func TestRequireAdmin_NoSession(t *testing.T) {
	auth := NewAuth(session.NewManager(testSecret, time.Hour), storedRole(true), false, "")
	app := fiber.New()
	app.Get("/admin", auth.RequireAdmin(), okHandler)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAdminOrBootstrap(t *testing.T) {
	mgr := session.NewManager(testSecret, time.Hour)

	t.Run("matching token admits", func(t *testing.T) {
		auth := NewAuth(mgr, storedRole(false), false, "bootstrap-secret")
		app := fiber.New()
		app.Post("/api/create-admin", auth.AdminOrBootstrap(), okHandler)

		req := httptest.NewRequest(http.MethodPost, "/api/create-admin", nil)
		req.Header.Set(BootstrapHeader, "bootstrap-secret")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("wrong token falls back to session check", func(t *testing.T) {
		auth := NewAuth(mgr, storedRole(false), false, "bootstrap-secret")
		app := fiber.New()
		app.Post("/api/create-admin", auth.AdminOrBootstrap(), okHandler)

		req := httptest.NewRequest(http.MethodPost, "/api/create-admin", nil)
		req.Header.Set(BootstrapHeader, "guess")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("empty config disables bootstrap", func(t *testing.T) {
		auth := NewAuth(mgr, storedRole(false), false, "")
		app := fiber.New()
		app.Post("/api/create-admin", auth.AdminOrBootstrap(), okHandler)

		req := httptest.NewRequest(http.MethodPost, "/api/create-admin", nil)
		req.Header.Set(BootstrapHeader, "")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("admin session admits", func(t *testing.T) {
		auth := NewAuth(mgr, storedRole(true), false, "bootstrap-secret")
		app := fiber.New()
		app.Post("/api/create-admin", auth.AdminOrBootstrap(), okHandler)

		req := withCookie(httptest.NewRequest(http.MethodPost, "/api/create-admin", nil), issue(t, mgr, "admin_1", model.RoleAdmin))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})
}

func TestSetCookie(t *testing.T) {
	auth := NewAuth(session.NewManager(testSecret, time.Hour), storedRole(false), true, "")
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		auth.SetCookie(c, "tok", time.Now().Add(time.Hour))
		return nil
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	cookie := strings.ToLower(resp.Header.Get("Set-Cookie"))
	assert.Contains(t, cookie, "session=tok")
	assert.Contains(t, cookie, "httponly")
	assert.Contains(t, cookie, "secure")
	assert.Contains(t, cookie, "samesite=lax")
	assert.Contains(t, cookie, "path=/")
}
