package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mesopotato/enrich-justice/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(jwt *token.JWTManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger())
	r.POST("/admin", AuthMiddleware(jwt), AdminAuthMiddleware(), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

func do(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/admin", strings.NewReader(`{"model":"x"}`))
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAdminRoute(t *testing.T) {
	jwt := token.NewJWTManager("key", 1, 1)
	r := newRouter(jwt)

	assert.Equal(t, http.StatusUnauthorized, do(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "Bearer garbage").Code)

	user, err := jwt.GenerateToken("reader", "USER")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, do(r, "Bearer "+user).Code)

	admin, err := jwt.GenerateToken("admin", token.RoleAdmin)
	require.NoError(t, err)
	w := do(r, "Bearer "+admin)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestTruncate(t *testing.T) {
	assert.Len(t, truncate(make([]byte, maxLoggedBody+10)), maxLoggedBody)
	assert.Equal(t, "abc", truncate([]byte("abc")))
}
