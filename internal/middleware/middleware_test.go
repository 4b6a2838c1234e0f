package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/saxenaaman628/election-observer/internal/apperr"
	"github.com/saxenaaman628/election-observer/internal/models"
	redishandler "github.com/saxenaaman628/election-observer/internal/redisHandler"
	"github.com/saxenaaman628/election-observer/internal/services"
	"github.com/saxenaaman628/election-observer/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeUsers map[string]*models.User

func (f fakeUsers) Get(_ context.Context, id string) (*models.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, apperr.NotFound("User not found")
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []services.Entry
}

func (r *fakeRecorder) Record(_ context.Context, e services.Entry) {
	r.mu.Lock()
	r.entries = append(r.entries, e)
	r.mu.Unlock()
}

type envelope struct {
	Success bool `json:"success"`
	Error   struct {
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func newUser(id string, role models.Role, imei *string) *models.User {
	u := &models.User{Email: id + "@example.com", Role: role, IMEI: imei, IsActive: true}
	u.ID = id
	return u
}

func ok(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"success": true}) }

func newRouter(tokens *utils.TokenManager, users fakeUsers, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(ErrorHandler(zap.NewNop(), false))
	handlers := append([]gin.HandlerFunc{JWTAuthMiddleware(tokens, users)}, extra...)
	handlers = append(handlers, ok)
	r.GET("/protected", handlers...)
	return r
}

func doGet(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	tokens := utils.NewTokenManager("secret", time.Hour, time.Hour)
	inactive := newUser("u2", models.RoleCentralCommandUser, nil)
	inactive.IsActive = false
	users := fakeUsers{"u1": newUser("u1", models.RoleCentralCommandUser, nil), "u2": inactive}
	r := newRouter(tokens, users)

	w := doGet(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Access token required", decode(t, w).Error.Message)

	w = doGet(r, "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid token", decode(t, w).Error.Message)

	refresh, _, _, err := tokens.GenerateRefreshToken("u1")
	require.NoError(t, err)
	w = doGet(r, refresh)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	for _, id := range []string{"u2", "ghost"} {
		tok, err := tokens.GenerateAccessToken(id, id+"@example.com", "CENTRAL_COMMAND_USER")
		require.NoError(t, err)
		w = doGet(r, tok)
		assert.Equal(t, http.StatusUnauthorized, w.Code, id)
		assert.Equal(t, "User not found or inactive", decode(t, w).Error.Message)
	}

	tok, err := tokens.GenerateAccessToken("u1", "u1@example.com", "CENTRAL_COMMAND_USER")
	require.NoError(t, err)
	w = doGet(r, tok)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoleAndDeviceGates(t *testing.T) {
	tokens := utils.NewTokenManager("secret", time.Hour, time.Hour)
	imei := "123456789012345"
	users := fakeUsers{
		"admin":    newUser("admin", models.RoleCentralCommandAdmin, nil),
		"observer": newUser("observer", models.RolePresidentialElectionObserver, &imei),
	}
	token := func(id string) string {
		tok, err := tokens.GenerateAccessToken(id, id+"@example.com", string(users[id].Role))
		require.NoError(t, err)
		return tok
	}

	admin := newRouter(tokens, users, RequireAdmin())
	assert.Equal(t, http.StatusOK, doGet(admin, token("admin")).Code)
	w := doGet(admin, token("observer"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Insufficient permissions", decode(t, w).Error.Message)

	super := newRouter(tokens, users, RequireSuperAdmin())
	assert.Equal(t, http.StatusForbidden, doGet(super, token("admin")).Code)

	device := newRouter(tokens, users, RequireDevice())
	assert.Equal(t, http.StatusOK, doGet(device, token("observer")).Code)
	w = doGet(device, token("admin"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "IMEI registration required for this operation", decode(t, w).Error.Message)
}

func TestErrorHandlerHidesInternalMessagesInProduction(t *testing.T) {
	for _, tc := range []struct {
		name       string
		production bool
		err        error
		status     int
		message    string
	}{
		{"app error", true, apperr.Conflict("County with this code already exists"), http.StatusConflict, "County with this code already exists"},
		{"internal dev", false, errors.New("connection reset"), http.StatusInternalServerError, "connection reset"},
		{"internal prod", true, errors.New("connection reset"), http.StatusInternalServerError, internalMessage},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(ErrorHandler(zap.NewNop(), tc.production))
			r.GET("/x", func(c *gin.Context) { _ = c.Error(tc.err) })
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
			assert.Equal(t, tc.status, w.Code)
			env := decode(t, w)
			assert.False(t, env.Success)
			assert.Equal(t, tc.message, env.Error.Message)
		})
	}
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(zap.NewNop()))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, internalMessage, decode(t, w).Error.Message)
}

func TestRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	r := gin.New()
	r.Use(RateLimit(redishandler.NewFixedWindowLimiter(rdb, 2, time.Minute), zap.NewNop()))
	r.GET("/x", ok)
	hit := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		return w
	}

	w := hit()
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("RateLimit-Remaining"))
	assert.Equal(t, http.StatusOK, hit().Code)

	w = hit()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, rateLimitMessage, decode(t, w).Error.Message)

	// a dead counter store lets traffic through
	mr.Close()
	assert.Equal(t, http.StatusOK, hit().Code)
}

func TestRateLimitKeysOnPeerUnlessProxyTrusted(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	engine := func(trusted []string) *gin.Engine {
		r := gin.New()
		require.NoError(t, r.SetTrustedProxies(trusted))
		r.Use(RateLimit(redishandler.NewFixedWindowLimiter(rdb, 2, time.Minute), zap.NewNop()))
		r.GET("/x", ok)
		return r
	}
	hit := func(r *gin.Engine, peer string, i int) int {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = peer + ":1234"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	// rotating X-Forwarded-For from an untrusted peer shares one bucket
	direct := engine(nil)
	allowed := 0
	for i := 1; i <= 10; i++ {
		if hit(direct, "203.0.113.7", i) == http.StatusOK {
			allowed++
		}
	}
	assert.Equal(t, 2, allowed)

	// behind a trusted proxy each forwarded client gets its own bucket
	proxied := engine([]string{"10.0.0.0/8"})
	for i := 20; i < 25; i++ {
		assert.Equal(t, http.StatusOK, hit(proxied, "10.1.2.3", i))
	}
}

func TestAuditRecordsSuccessfulMutations(t *testing.T) {
	rec := &fakeRecorder{}
	r := gin.New()
	r.Use(ErrorHandler(zap.NewNop(), false))
	setUser := func(c *gin.Context) {
		c.Set(userIDKey, "u1")
		c.Next()
	}
	r.PUT("/counties/:id", setUser, Audit(rec, "UPDATE", "County"), func(c *gin.Context) {
		SetAuditValues(c, "", gin.H{"name": "Old"}, gin.H{"name": "New"})
		ok(c)
	})
	r.POST("/counties", setUser, Audit(rec, "CREATE", "County"), func(c *gin.Context) {
		_ = c.Error(apperr.Conflict("County with this code already exists"))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/counties/c1", nil)
	req.Header.Set("User-Agent", "test-agent")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/counties", nil))
	require.Equal(t, http.StatusConflict, w.Code)

	require.Len(t, rec.entries, 1)
	e := rec.entries[0]
	assert.Equal(t, "u1", e.UserID)
	assert.Equal(t, "UPDATE", e.Action)
	assert.Equal(t, "County", e.EntityType)
	assert.Equal(t, "c1", e.EntityID)
	assert.Equal(t, "test-agent", e.UserAgent)
	assert.Equal(t, gin.H{"name": "New"}, e.NewValues)
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS("http://localhost:5173"))
	r.GET("/x", ok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/x", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}
