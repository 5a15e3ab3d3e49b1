package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("middleware-test-secret")

func guardedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/guarded", Bearer(testSecret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": c.GetString(CtxUserID)})
	})
	return r
}

func signToken(t *testing.T, secret []byte, claims jwtlib.MapClaims) string {
	t.Helper()
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return token
}

func doGet(r *gin.Engine, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBearerAcceptsValidToken(t *testing.T) {
	r := guardedRouter()
	token := signToken(t, testSecret, jwtlib.MapClaims{
		"sub": "svc-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	w := doGet(r, "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "svc-1")
}

func TestBearerRejectsMissingHeader(t *testing.T) {
	w := doGet(guardedRouter(), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBearerRejectsWrongSecret(t *testing.T) {
	token := signToken(t, []byte("other"), jwtlib.MapClaims{
		"sub": "svc-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	w := doGet(guardedRouter(), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBearerRejectsExpiredToken(t *testing.T) {
	token := signToken(t, testSecret, jwtlib.MapClaims{
		"sub": "svc-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	w := doGet(guardedRouter(), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBearerRejectsTokenWithoutExpiry(t *testing.T) {
	token := signToken(t, testSecret, jwtlib.MapClaims{"sub": "svc-1"})
	w := doGet(guardedRouter(), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
