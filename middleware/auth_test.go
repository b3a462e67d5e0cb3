package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"settlement-service/middleware"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
)

const testSecret = "test-jwt-secret"

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	assert.NoError(t, err)
	return signed
}

func authedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", middleware.AuthMiddleware(testSecret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": middleware.GetUserID(c), "role": middleware.GetRole(c)})
	})
	r.GET("/ops", middleware.AuthMiddleware(testSecret), middleware.RequireRoles("ops"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func doGet(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	r := authedRouter()
	token := signToken(t, jwt.MapClaims{
		"sub": "b6a4f3e2-0000-4000-8000-000000000001",
		"exp": time.Now().Add(time.Hour).Unix(),
	}, testSecret)

	w := doGet(r, "/me", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "b6a4f3e2")
	// Missing role claim defaults to customer.
	assert.Contains(t, w.Body.String(), "customer")
}

func TestAuthMiddlewareRejectsBadTokens(t *testing.T) {
	r := authedRouter()

	assert.Equal(t, http.StatusUnauthorized, doGet(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, doGet(r, "/me", "garbage").Code)

	wrongKey := signToken(t, jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(time.Hour).Unix()}, "other-secret")
	assert.Equal(t, http.StatusUnauthorized, doGet(r, "/me", wrongKey).Code)

	expired := signToken(t, jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(-time.Hour).Unix()}, testSecret)
	assert.Equal(t, http.StatusUnauthorized, doGet(r, "/me", expired).Code)

	noSub := signToken(t, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}, testSecret)
	assert.Equal(t, http.StatusUnauthorized, doGet(r, "/me", noSub).Code)
}

func TestRequireRolesGatesByRole(t *testing.T) {
	r := authedRouter()

	customer := signToken(t, jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(time.Hour).Unix()}, testSecret)
	assert.Equal(t, http.StatusForbidden, doGet(r, "/ops", customer).Code)

	ops := signToken(t, jwt.MapClaims{"sub": "u1", "role": "ops", "exp": time.Now().Add(time.Hour).Unix()}, testSecret)
	assert.Equal(t, http.StatusOK, doGet(r, "/ops", ops).Code)
}
