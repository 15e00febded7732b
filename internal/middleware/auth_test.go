package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/fleet-operations/internal/auth"
	"github.com/ukydev/fleet-operations/internal/models"
)

func newTestMiddleware(t *testing.T) (*AuthMiddleware, *auth.Service) {
	t.Helper()
	authService, err := auth.NewService()
	require.NoError(t, err)
	return NewAuthMiddleware(authService, auth.NewAuthorizer(nil)), authService
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticateValidToken(t *testing.T) {
	mw, authService := newTestMiddleware(t)
	token, err := authService.GenerateToken(&models.User{ID: "OPR_1", Username: "pilot1", Role: models.RolePilot})
	require.NoError(t, err)

	var got *models.Claims
	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = GetUserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/deployments/DEP_1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, "OPR_1", got.UserID)
	assert.Equal(t, models.RolePilot, got.Role)
}

func TestAuthenticateMissingHeader(t *testing.T) {
	mw, _ := newTestMiddleware(t)
	handler := mw.Authenticate(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/deployments", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateInvalidToken(t *testing.T) {
	mw, _ := newTestMiddleware(t)
	handler := mw.Authenticate(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/deployments", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateSkipsPublicPaths(t *testing.T) {
	mw, _ := newTestMiddleware(t)
	handler := mw.Authenticate(okHandler())

	for _, path := range []string{"/health", "/api/auth/login", "/api/auth/register"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func withClaims(req *http.Request, claims *models.Claims) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), UserContextKey, claims))
}

func TestRequireModule(t *testing.T) {
	mw, _ := newTestMiddleware(t)
	handler := mw.RequireModule(auth.ModuleMaintenance)(okHandler())

	t.Run("allowed role passes", func(t *testing.T) {
		req := withClaims(httptest.NewRequest(http.MethodGet, "/api/maintenance/due", nil),
			&models.Claims{UserID: "OPR_1", Role: models.RoleEmployee})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("denied role gets 403", func(t *testing.T) {
		req := withClaims(httptest.NewRequest(http.MethodGet, "/api/maintenance/due", nil),
			&models.Claims{UserID: "OPR_2", Role: models.RolePilot})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("missing claims gets 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/maintenance/due", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireAccessPicksGatePerRoute(t *testing.T) {
	mw, _ := newTestMiddleware(t)
	pick := func(r *http.Request) RouteAccess {
		if r.URL.Path == "/api/deployments/DEP_1/tracking" {
			return RouteAccess{Module: auth.ModuleTracking}
		}
		return RouteAccess{Module: auth.ModuleDeployments}
	}
	handler := mw.RequireAccess(pick)(okHandler())
	pilot := &models.Claims{UserID: "OPR_1", Role: models.RolePilot}

	t.Run("tracking route uses its own module", func(t *testing.T) {
		req := withClaims(httptest.NewRequest(http.MethodPost, "/api/deployments/DEP_1/tracking", nil), pilot)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("other routes fall back to the default module", func(t *testing.T) {
		req := withClaims(httptest.NewRequest(http.MethodPost, "/api/deployments", nil), pilot)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("permission override beats the verb mapping", func(t *testing.T) {
		override := mw.RequireAccess(func(r *http.Request) RouteAccess {
			return RouteAccess{Module: auth.ModuleDeployments, Permission: models.PermissionRead}
		})(okHandler())
		req := withClaims(httptest.NewRequest(http.MethodPost, "/api/deployments/DEP_1/cancel", nil), pilot)
		rec := httptest.NewRecorder()
		override.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRequireRoleLevel(t *testing.T) {
	mw, _ := newTestMiddleware(t)
	handler := mw.RequireRoleLevel(models.RoleEmployee, models.RoleAdmin)(okHandler())

	req := withClaims(httptest.NewRequest(http.MethodPost, "/api/deployments", nil),
		&models.Claims{UserID: "OPR_1", Role: models.RolePilot})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = withClaims(httptest.NewRequest(http.MethodPost, "/api/deployments", nil),
		&models.Claims{UserID: "OPR_2", Role: models.RoleAdmin})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	mw := NewRateLimitMiddleware()
	handler := mw.RateLimit(2, 60)(okHandler())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/deployments", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/deployments", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// A different client is not affected.
	req = httptest.NewRequest(http.MethodGet, "/api/deployments", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
