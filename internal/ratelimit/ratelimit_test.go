package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nxtgenia/miniaturia/internal/auth"
)

func newRouter(t *testing.T, rate string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := NewStore(nil)
	require.NoError(t, err)

	mw, err := Middleware(store, "generate", rate)
	require.NoError(t, err)

	r := gin.New()
	r.POST("/generate",
		func(c *gin.Context) {
			if user := c.GetHeader("X-Test-User"); user != "" {
				auth.SetUserID(c, user)
			}
			c.Next()
		},
		mw,
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)

	return r
}

func send(r *gin.Engine, user string) int {
	req := httptest.NewRequest(http.MethodPost, "/generate", nil)
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w.Code
}

func TestMiddleware_LimitsPerUser(t *testing.T) {
	r := newRouter(t, "2-M")

	assert.Equal(t, http.StatusOK, send(r, "user-1"))
	assert.Equal(t, http.StatusOK, send(r, "user-1"))
	assert.Equal(t, http.StatusTooManyRequests, send(r, "user-1"))

	// separate bucket
	assert.Equal(t, http.StatusOK, send(r, "user-2"))
}

func TestMiddleware_InvalidRate(t *testing.T) {
	store, err := NewStore(nil)
	require.NoError(t, err)

	_, err = Middleware(store, "generate", "ten per minute")
	assert.Error(t, err)
}

func TestKey_FollowsAuthContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/generate", nil)
	c.Request.RemoteAddr = "203.0.113.7:4000"

	assert.Equal(t, "ip:203.0.113.7", key(c))

	auth.SetUserID(c, "user-9")
	assert.Equal(t, "user:user-9", key(c))
}

func TestMiddleware_AnonymousSharesIPBucket(t *testing.T) {
	r := newRouter(t, "1-M")

	assert.Equal(t, http.StatusOK, send(r, ""))
	assert.Equal(t, http.StatusTooManyRequests, send(r, ""))

	// authenticated callers on the same address get their own bucket
	assert.Equal(t, http.StatusOK, send(r, "user-1"))
}
