package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/saxenaaman628/election-observer/config"
	"github.com/saxenaaman628/election-observer/internal/database"
	"github.com/saxenaaman628/election-observer/internal/importer"
	"github.com/saxenaaman628/election-observer/internal/middleware"
	"github.com/saxenaaman628/election-observer/internal/models"
	redishandler "github.com/saxenaaman628/election-observer/internal/redisHandler"
	"github.com/saxenaaman628/election-observer/internal/services"
	"github.com/saxenaaman628/election-observer/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	adminEmail    = "root@example.com"
	adminPassword = "supersecret1"
)

type testApp struct {
	db     *gorm.DB
	svc    *services.Services
	router *gin.Engine
}

func newApp(t *testing.T) *testApp {
	t.Helper()
	db, err := database.OpenTest()
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{BcryptCost: bcrypt.MinCost}
	cfg.Server.Environment = "test"
	cfg.Server.MaxUploadBytes = 10 << 20
	cfg.Cache.StatsTTL = time.Minute
	cfg.Import.BatchSize = 100
	cfg.Import.Workers = 2
	cfg.Bootstrap = config.BootstrapConfig{AdminEmail: adminEmail, AdminPassword: adminPassword}

	tokens := utils.NewTokenManager("test-secret", time.Hour, 24*time.Hour)
	svc := services.New(services.Deps{
		DB:       db,
		Log:      zap.NewNop(),
		Cache:    redishandler.NewMemoryCache(),
		Tokens:   tokens,
		Sessions: redishandler.NewRefreshTokenStore(rdb),
		Config:   cfg,
	})
	created, err := svc.Auth.EnsureAdmin(context.Background(), cfg.Bootstrap)
	require.NoError(t, err)
	require.True(t, created)

	r := gin.New()
	r.Use(middleware.ErrorHandler(zap.NewNop(), false))
	RegisterRoutes(r, Dependencies{
		Services: svc,
		Tokens:   tokens,
		Limiter:  redishandler.NewFixedWindowLimiter(rdb, 1000, time.Minute),
		SQLDB:    sqlDB,
		Config:   cfg,
		Log:      zap.NewNop(),
	})
	return &testApp{db: db, svc: svc, router: r}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	var env envelope
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (a *testApp) login(t *testing.T, body gin.H) string {
	t.Helper()
	w, env := a.do(t, http.MethodPost, "/api/auth/login", "", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	return res.AccessToken
}

func (a *testApp) adminToken(t *testing.T) string {
	return a.login(t, gin.H{"email": adminEmail, "password": adminPassword})
}

func TestHealth(t *testing.T) {
	a := newApp(t)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "OK", body["status"])
	assert.Equal(t, "up", body["database"])
	assert.Equal(t, "test", body["environment"])
}

func TestUnknownRoute(t *testing.T) {
	a := newApp(t)
	w, env := a.do(t, http.MethodGet, "/api/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Route /api/nowhere not found", env.Error.Message)
}

func TestAuthFlow(t *testing.T) {
	a := newApp(t)

	w, env := a.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": adminEmail, "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid credentials", env.Error.Message)

	w, env = a.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": adminEmail})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error.Message, "Validation error")

	w, env = a.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": adminEmail, "password": adminPassword})
	require.Equal(t, http.StatusOK, w.Code)
	var res struct {
		User         models.User `json:"user"`
		AccessToken  string      `json:"accessToken"`
		RefreshToken string      `json:"refreshToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, models.RoleSuperAdmin, res.User.Role)

	w, env = a.do(t, http.MethodGet, "/api/auth/me", res.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), adminEmail)

	w, env = a.do(t, http.MethodPost, "/api/auth/refresh", "", gin.H{"refreshToken": res.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "accessToken")

	w, _ = a.do(t, http.MethodPost, "/api/auth/logout", res.AccessToken, gin.H{"refreshToken": res.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)

	w, env = a.do(t, http.MethodPost, "/api/auth/refresh", "", gin.H{"refreshToken": res.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env = a.do(t, http.MethodGet, "/api/counties", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Access token required", env.Error.Message)
}

func TestCountyRoutesAreAudited(t *testing.T) {
	a := newApp(t)
	token := a.adminToken(t)

	w, env := a.do(t, http.MethodPost, "/api/counties", token, gin.H{"code": "047", "name": "Nairobi"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		County models.County `json:"county"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	id := created.County.ID
	require.NotEmpty(t, id)

	w, env = a.do(t, http.MethodPost, "/api/counties", token, gin.H{"code": "047", "name": "Again"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = a.do(t, http.MethodPut, "/api/counties/"+id, token, gin.H{"name": "Nairobi City"})
	require.Equal(t, http.StatusOK, w.Code)

	w, env = a.do(t, http.MethodGet, "/api/counties?search=city&fields=code", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Items      []map[string]any `json:"items"`
		Pagination struct {
			Total int `json:"total"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "047", page.Items[0]["code"])
	assert.NotContains(t, page.Items[0], "name")
	assert.Equal(t, 1, page.Pagination.Total)

	w, env = a.do(t, http.MethodGet, "/api/counties?sortBy=population", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var logs []models.AuditLog
	require.NoError(t, a.db.Order("created_at").Find(&logs).Error)
	require.Len(t, logs, 2)
	actions := []string{logs[0].Action, logs[1].Action}
	assert.ElementsMatch(t, []string{"CREATE", "UPDATE"}, actions)
	for _, l := range logs {
		assert.Equal(t, "County", l.EntityType)
		require.NotNil(t, l.EntityID)
		assert.Equal(t, id, *l.EntityID)
	}

	w, env = a.do(t, http.MethodGet, "/api/audit?entityType=County", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"total":2`)

	w, env = a.do(t, http.MethodGet, "/api/audit?startDate=yesterday", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Query validation error: startDate must be a date", env.Error.Message)
}

func TestObserverPermissions(t *testing.T) {
	a := newApp(t)
	admin := a.adminToken(t)
	imei := "356938035643809"

	for _, u := range []gin.H{
		{"email": "obs@example.com", "username": "observer", "password": "password123", "firstName": "Obs",
			"lastName": "Erver", "role": "PRESIDENTIAL_ELECTION_OBSERVER", "imei": imei},
		{"email": "desk@example.com", "username": "desk", "password": "password123", "firstName": "Desk",
			"lastName": "User", "role": "CENTRAL_COMMAND_USER"},
	} {
		w, _ := a.do(t, http.MethodPost, "/api/users", admin, u)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w, env := a.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "observer", "password": "password123", "imei": "111111111111111"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "IMEI mismatch - device not registered", env.Error.Message)

	observer := a.login(t, gin.H{"username": "observer", "password": "password123", "imei": imei})
	desk := a.login(t, gin.H{"username": "desk", "password": "password123"})

	w, env = a.do(t, http.MethodPost, "/api/counties", observer, gin.H{"code": "001", "name": "Mombasa"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Insufficient permissions", env.Error.Message)

	incident := gin.H{"pollingStationId": "missing", "title": "Late opening", "incidentType": "IRREGULARITY", "severity": "LOW"}
	w, env = a.do(t, http.MethodPost, "/api/incidents", desk, incident)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "IMEI registration required for this operation", env.Error.Message)

	w, _ = a.do(t, http.MethodPost, "/api/incidents", observer, incident)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = a.do(t, http.MethodGet, "/api/users", desk, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHierarchicalUploadAndStats(t *testing.T) {
	a := newApp(t)
	token := a.adminToken(t)

	rows := []gin.H{
		{"countyCode": "047", "countyName": "Nairobi", "constCode": "001", "constName": "Westlands", "wardCode": "0001",
			"wardName": "Kitisuru", "stationCode": "047001000101", "stationName": "Kitisuru Primary", "registeredVoters": 700},
		{"countyCode": "047", "countyName": "Nairobi", "constCode": "001", "constName": "Westlands", "wardCode": "0001",
			"wardName": "Kitisuru", "stationCode": "047001000102", "stationName": "Kitisuru Secondary", "registeredVoters": 300},
	}
	w, env := a.do(t, http.MethodPost, "/api/bulk-upload/hierarchical", token, gin.H{"pollingStations": rows})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var sum importer.Summary
	require.NoError(t, json.Unmarshal(env.Data, &sum))
	assert.Equal(t, 2, sum.Total)

	w, env = a.do(t, http.MethodPost, "/api/bulk-upload/hierarchical", token, gin.H{"pollingStations": []gin.H{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = a.do(t, http.MethodGet, "/api/stats/electoral-area", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats services.HierarchyStats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.EqualValues(t, 1, stats.TotalCounties)
	assert.EqualValues(t, 2, stats.TotalPollingStations)
	assert.EqualValues(t, 1000, stats.TotalRegisteredVoters)

	w, env = a.do(t, http.MethodGet, "/api/bulk-upload/status", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"pollingStations":2`)

	var audits int64
	require.NoError(t, a.db.Model(&models.AuditLog{}).Where("action = ?", "HIERARCHICAL_BULK_UPLOAD").Count(&audits).Error)
	assert.EqualValues(t, 1, audits)
}

func TestTemplateAndPreview(t *testing.T) {
	a := newApp(t)
	token := a.adminToken(t)

	req := httptest.NewRequest(http.MethodGet, "/api/bulk-upload/template", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, importer.TemplateContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), importer.TemplateFilename)

	upload := func(name string, content []byte) (*httptest.ResponseRecorder, envelope) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("csv", name)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/bulk-upload/upload-csv", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		a.router.ServeHTTP(w, req)
		var env envelope
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		return w, env
	}

	// the template itself is a valid upload
	w, env := upload(importer.TemplateFilename, w.Body.Bytes())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var preview importer.Preview
	require.NoError(t, json.Unmarshal(env.Data, &preview))
	assert.Equal(t, 1, preview.TotalRecords)
	assert.Empty(t, preview.MissingHeaders)

	w, _ = upload("stations.txt", []byte("a,b\n1,2\n"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
