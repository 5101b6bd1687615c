package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/nxtgenia/miniaturia/internal/auth"
	"github.com/nxtgenia/miniaturia/internal/cache"
	"github.com/nxtgenia/miniaturia/miniaturia/ledger"
)

func TestAllowedOrigin(t *testing.T) {
	tests := []struct {
		origin  string
		allowed bool
	}{
		{"http://localhost:5173", true},
		{"http://127.0.0.1:3000", true},
		{"https://miniatur-ia.com", true},
		{"https://www.miniatur-ia.com", true},
		{"https://miniaturia-git-main.vercel.app", true},
		{"https://app.example.com", true},
		{"https://evil.com", false},
		{"https://miniatur-ia.com.evil.com", false},
		{"https://vercel.app.evil.com", false},
		{"not a url", false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			assert.Equal(t, tt.allowed, allowedOrigin(tt.origin, "https://app.example.com/"))
		})
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(CORSMiddleware(""))
	r.POST("/api/v1/generate-thumbnail", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/generate-thumbnail", nil)
	req.Header.Set("Origin", "https://miniatur-ia.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Idempotency-Key")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://miniatur-ia.com", w.Header().Get("Access-Control-Allow-Origin"))
}

type mockEnsurer struct {
	mock.Mock
}

func (m *mockEnsurer) EnsureAccount(ctx context.Context, accountID, email string) (*ledger.Account, error) {
	args := m.Called(ctx, accountID, email)
	acc, _ := args.Get(0).(*ledger.Account)
	return acc, args.Error(1)
}

func newAccountRouter(ensurer accountEnsurer, seen *cache.TTL[string, struct{}], userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/me", func(c *gin.Context) {
		if userID != "" {
			auth.SetUserID(c, userID)
		}
		c.Next()
	}, AccountMiddleware(ensurer, seen), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	return r
}

func TestAccountMiddleware(t *testing.T) {
	seen := cache.New[string, struct{}](time.Minute, 0)
	defer seen.Close()

	ensurer := &mockEnsurer{}
	ensurer.On("EnsureAccount", mock.Anything, "user-1", "").Return(&ledger.Account{ID: "user-1"}, nil).Once()

	r := newAccountRouter(ensurer, seen, "user-1")

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	}

	ensurer.AssertExpectations(t)
	ensurer.AssertNumberOfCalls(t, "EnsureAccount", 1)
}

func TestAccountMiddleware_Failures(t *testing.T) {
	seen := cache.New[string, struct{}](time.Minute, 0)
	defer seen.Close()

	w := httptest.NewRecorder()
	newAccountRouter(&mockEnsurer{}, seen, "").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	failing := &mockEnsurer{}
	failing.On("EnsureAccount", mock.Anything, "user-2", "").Return(nil, fmt.Errorf("db down"))

	w = httptest.NewRecorder()
	newAccountRouter(failing, seen, "user-2").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 0, seen.Len())
}
