package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-report-api/internal/models"
	"github.com/noah-isme/lms-report-api/internal/service"
)

const testSecret = "report-secret"

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, userID string, role models.UserRole) string {
	t.Helper()
	claims := models.JWTClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/report/list", AdminJWT(testSecret), RequireRoles(models.RoleAdmin, models.RoleSuperAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func serve(r http.Handler, target, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAdminJWT(t *testing.T) {
	r := newAuthRouter()
	admin := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), "A0000001", models.RoleAdmin)

	cases := []struct {
		name   string
		target string
		token  string
		status int
	}{
		{"missing token", "/report/list?admin_id=A0000001", "", http.StatusUnauthorized},
		{"bad signature", "/report/list?admin_id=A0000001", signToken(t, jwt.SigningMethodHS256, []byte("other"), "A0000001", models.RoleAdmin), http.StatusUnauthorized},
		{"wrong algorithm", "/report/list?admin_id=A0000001", signToken(t, jwt.SigningMethodHS384, []byte(testSecret), "A0000001", models.RoleAdmin), http.StatusUnauthorized},
		{"not an admin", "/report/list?admin_id=A0000001", signToken(t, jwt.SigningMethodHS256, []byte(testSecret), "A0000001", models.UserRole("STUDENT")), http.StatusForbidden},
		{"other admin", "/report/list?admin_id=A0000002", admin, http.StatusForbidden},
		{"matching admin", "/report/list?admin_id=A0000001", admin, http.StatusOK},
		{"no admin_id", "/report/list", admin, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(r, tc.target, tc.token)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestRateLimitPerAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewRateLimiter(1, 2)
	frozen := time.Date(2025, 5, 8, 10, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return frozen }

	r := gin.New()
	r.GET("/report/student/general", RateLimit(limiter), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, "/report/student/general?admin_id=A1", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, "/report/student/general?admin_id=A1", "").Code)
	w := serve(r, "/report/student/general?admin_id=A1", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"too many report requests"}`, w.Body.String())
	assert.Equal(t, http.StatusOK, serve(r, "/report/student/general?admin_id=A2", "").Code)

	assert.Equal(t, http.StatusTooManyRequests, serve(r, "/report/student/general?admin_id=%20A1%20", "").Code)

	frozen = frozen.Add(time.Minute)
	assert.Equal(t, http.StatusOK, serve(r, "/report/student/general?admin_id=A1", "").Code)
}

func TestRateLimiterSweepsIdleKeys(t *testing.T) {
	limiter := NewRateLimiter(60, 1)
	now := time.Date(2025, 5, 8, 10, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	limiter.Allow("A1")

	now = now.Add(2 * time.Hour)
	limiter.Allow("A2")
	_, ok := limiter.limiters["A1"]
	assert.False(t, ok)
	assert.Len(t, limiter.limiters, 1)
}

func TestMetricsMiddlewareRecordsRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics))
	r.GET("/report/:rid", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	assert.Equal(t, http.StatusNoContent, serve(r, "/report/SG000001", "").Code)

	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), `http_requests_total{method="GET",path="/report/:rid",status="204"} 1`)

	assert.Equal(t, http.StatusNotFound, serve(r, "/probe/wp-login.php", "").Code)
	w = httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), `http_requests_total{method="GET",path="unmatched",status="404"} 1`)
	assert.NotContains(t, w.Body.String(), "wp-login")
}

func TestRequireRolesUsesSubjectWhenUserIDMissing(t *testing.T) {
	claims := models.JWTClaims{
		Role: models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "A0000003",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	r := newAuthRouter()
	assert.Equal(t, http.StatusOK, serve(r, "/report/list?admin_id=A0000003", token).Code)
	assert.Equal(t, http.StatusForbidden, serve(r, "/report/list?admin_id=A0000004", token).Code)
	assert.Equal(t, http.StatusOK, serve(r, "/report/list?admin_id=%20A0000003", token).Code)
}
