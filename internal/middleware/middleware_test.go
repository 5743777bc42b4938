package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/flight-seat-inventory/internal/config"
	"github.com/iliyamo/flight-seat-inventory/internal/utils"
)

const secret = "test-secret"

func newEcho() *echo.Echo {
	e := echo.New()
	g := e.Group("", JWTAuth(secret))
	g.GET("/me", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"user": UserID(c), "role": c.Get(CtxRole)})
	})
	g.GET("/ops", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, RequireRole("ops", "ADMIN"))
	return e
}

func do(e *echo.Echo, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func token(t *testing.T, sub, role string, ttl time.Duration) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, sub, role, ttl)
	require.NoError(t, err)
	return tok.Token
}

func TestJWTAuth(t *testing.T) {
	e := newEcho()

	rec := do(e, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing bearer token")

	rec = do(e, "/me", "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, "/me", token(t, "u1", "customer", -time.Minute))
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "expired token")

	rec = do(e, "/me", token(t, "", "customer", time.Minute))
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "token without subject")

	rec = do(e, "/me", token(t, "u1", "Customer", time.Minute))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user":"u1","role":"customer"}`, rec.Body.String())
}

func TestRequireRole(t *testing.T) {
	e := newEcho()
	assert.Equal(t, http.StatusForbidden, do(e, "/ops", token(t, "u1", "customer", time.Minute)).Code)
	assert.Equal(t, http.StatusNoContent, do(e, "/ops", token(t, "u1", "ops", time.Minute)).Code)
	assert.Equal(t, http.StatusNoContent, do(e, "/ops", token(t, "u1", "admin", time.Minute)).Code)
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/pools/FL1/economy/allocations", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/pools/:flight/:cabin/allocations")
	c.Set(CtxUserID, "u9")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}
	assert.Equal(t, "rl:user:u9", buildRateKey(cfg, c))

	cfg.KeyStrategy = ""
	assert.Equal(t, "rl:ip:10.0.0.1:user:u9:route:POST /v1/pools/:flight/:cabin/allocations", buildRateKey(cfg, c))
}

func TestDisabledMiddlewarePassesThrough(t *testing.T) {
	e := echo.New()
	e.Use(NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, nil))
	e.Use(NewRedisCache(config.CacheConfig{Enabled: true}, nil, nil))
	e.GET("/x", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	rec := do(e, "/x", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestPayloadRoundTrip(t *testing.T) {
	h := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, h, []byte(`{"a":1}`))
	require.NoError(t, err)

	status, hdr, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", hdr.Get("Content-Type"))
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload(bs[:5])
	assert.False(t, ok)
}

func TestCacheKeyIncludesQuery(t *testing.T) {
	e := echo.New()
	cfg := config.CacheConfig{Prefix: "seatinv:cache"}
	key := func(target string) string {
		return cacheKeyFrom(cfg, e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder()))
	}
	assert.NotEqual(t, key("/v1/flights/F1/forecast?days=3"), key("/v1/flights/F1/forecast?days=4"))
	assert.Equal(t, key("/v1/flights/F1/forecast?days=3"), key("/v1/flights/F1/forecast?days=3"))
	assert.Contains(t, key("/x"), "seatinv:cache:")
}
