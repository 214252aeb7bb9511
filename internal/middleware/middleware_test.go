package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/models"
	"github.com/AnshRaj112/kanjou-nikki-backend/internal/services"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get(headerXContentTypeOptions))
	assert.Equal(t, "DENY", rec.Header().Get(headerXFrameOptions))
}

func TestHostCheck(t *testing.T) {
	h := HostCheck("api.kanjou.example.com")(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "api.kanjou.example.com:443"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req.Host = "evil.example.com"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLimiterSet(t *testing.T) {
	s := newLimiterSet(0, 2)
	assert.True(t, s.allow("a"))
	assert.True(t, s.allow("a"))
	assert.False(t, s.allow("a"))
	assert.True(t, s.allow("b"))
}

func TestLoginRateLimitOnlyOnSignin(t *testing.T) {
	h := LoginRateLimit(okHandler)
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/entries", nil)
		req.RemoteAddr = "10.0.0.9:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	codes := []int{}
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/admin/signin", nil)
		req.RemoteAddr = "10.0.0.10:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRedisRateLimitWithoutClient(t *testing.T) {
	rec := httptest.NewRecorder()
	RedisRateLimit(nil)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws/admin/activity?token=q", nil)
	assert.Equal(t, "q", BearerToken(req))
	req.Header.Set("Authorization", "Bearer h")
	assert.Equal(t, "h", BearerToken(req))

	post := httptest.NewRequest(http.MethodPost, "/api/admin/restore?token=q", nil)
	assert.Empty(t, BearerToken(post))
}

func TestAdminAuth(t *testing.T) {
	sessions := services.NewAdminSessions("test-secret", nil)
	token, _, err := sessions.Create(context.Background(), &models.Admin{ID: "a1", Username: "mori", Role: models.RoleCounselor})
	require.NoError(t, err)

	var seen *services.AdminClaims
	h := AdminAuth(sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = AdminFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/entries", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/entries", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/admin/entries", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "mori", seen.Username)
	assert.Equal(t, "a1", seen.Subject)
}

func TestRequirePermission(t *testing.T) {
	rbac := services.NewRBAC()
	h := RequirePermission(rbac, services.PermEntriesDelete)(okHandler)

	serve := func(role string) int {
		req := httptest.NewRequest(http.MethodDelete, "/api/admin/entries/x", nil)
		if role != "" {
			req = req.WithContext(WithAdmin(req.Context(), &services.AdminClaims{Role: role}))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusUnauthorized, serve(""))
	assert.Equal(t, http.StatusForbidden, serve(models.RoleCounselor))
	assert.Equal(t, http.StatusOK, serve(models.RoleAdmin))
}

func TestCORSPreflight(t *testing.T) {
	h := CORS([]string{"https://admin.kanjou.example.com"})(okHandler)
	req := httptest.NewRequest(http.MethodOptions, "/api/admin/entries", nil)
	req.Header.Set("Origin", "https://admin.kanjou.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://admin.kanjou.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
