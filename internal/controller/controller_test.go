package controller

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/saxenaaman628/election-observer/internal/middleware"
	"github.com/saxenaaman628/election-observer/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestBindReportsFieldsByJSONName(t *testing.T) {
	for _, tc := range []struct {
		name string
		body string
		want string
	}{
		{"missing body", "", "Validation error: request body is required"},
		{"missing field", `{"name":"Nairobi"}`, `Validation error: "code" is required`},
		{"too long", `{"code":"` + strings.Repeat("9", 40) + `","name":"Nairobi"}`, `Validation error: "code" must be at most 32`},
		{"bad json", `{"code":`, "Validation error: unexpected EOF"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(middleware.ErrorHandler(zap.NewNop(), false))
			r.POST("/x", func(c *gin.Context) {
				var in services.CountyInput
				if Bind(c, &in) {
					c.Status(http.StatusNoContent)
				}
			})
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(tc.body)))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), jsonEscape(tc.want))
		})
	}
}

func TestBindNestedSliceNamespace(t *testing.T) {
	r := gin.New()
	r.Use(middleware.ErrorHandler(zap.NewNop(), false))
	r.POST("/x", func(c *gin.Context) {
		var req countyBulkRequest
		if Bind(c, &req) {
			c.Status(http.StatusNoContent)
		}
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"counties":[{"code":"001"}]}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), jsonEscape(`"counties[0].name" is required`))
}

func TestUploadOverLimitIsTooLarge(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(uploadField, "stations.csv")
	require.NoError(t, err)
	_, err = fw.Write(bytes.Repeat([]byte("047,Nairobi,274,Dagoretti North\n"), 70000))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	h := NewImportController(nil, 1<<20)
	r := gin.New()
	r.Use(middleware.ErrorHandler(zap.NewNop(), false))
	r.POST("/upload", h.Preview)

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "File too large. Maximum upload size is 1 MB")
	assert.NotContains(t, w.Body.String(), "No file uploaded")
}

func TestUploadMissingFileIsBadRequest(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("note", "no file here"))
	require.NoError(t, mw.Close())

	h := NewImportController(nil, 1<<20)
	r := gin.New()
	r.Use(middleware.ErrorHandler(zap.NewNop(), false))
	r.POST("/upload", h.Preview)

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "No file uploaded")
}

func jsonEscape(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}
