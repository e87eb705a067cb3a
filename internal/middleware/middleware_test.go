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

	"github.com/BruksfildServices01/homeservices-coverage/internal/config"
	"github.com/BruksfildServices01/homeservices-coverage/internal/domain/coverage"
)

func sign(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func newEngine(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	admin := r.Group("/admin", AuthMiddleware(cfg), RequireRole(RoleAdmin))
	admin.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"actor": coverage.ActorFrom(c.Request.Context())})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	cfg := &config.Config{JWTSecret: "s3cret"}
	r := newEngine(cfg)
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"bad signature", "Bearer " + sign(t, "other", jwt.MapClaims{"sub": "1", "role": "admin", "exp": exp}), http.StatusUnauthorized},
		{"expired", "Bearer " + sign(t, "s3cret", jwt.MapClaims{"sub": "1", "role": "admin", "exp": time.Now().Add(-time.Hour).Unix()}), http.StatusUnauthorized},
		{"no subject", "Bearer " + sign(t, "s3cret", jwt.MapClaims{"role": "admin", "exp": exp}), http.StatusUnauthorized},
		{"not admin", "Bearer " + sign(t, "s3cret", jwt.MapClaims{"sub": 7, "role": "worker", "exp": exp}), http.StatusForbidden},
		{"admin", "Bearer " + sign(t, "s3cret", jwt.MapClaims{"sub": 7, "role": "admin", "email": "ops@example.com", "exp": exp}), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.JSONEq(t, `{"actor":"ops@example.com"}`, w.Body.String())
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	r := newEngine(&config.Config{JWTSecret: "x"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/whoami", nil))
	assert.Len(t, w.Header().Get(HeaderRequestID), 36)

	req := httptest.NewRequest(http.MethodGet, "/admin/whoami", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORSMiddleware())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://admin.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}
