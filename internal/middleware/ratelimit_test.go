package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"ai-image-editor-backend/internal/middleware"
)

func limitedRouter(limiter *middleware.RateLimiter, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if userID != uuid.Nil {
			c.Set(middleware.UserIDKey, userID)
		}
		c.Next()
	})
	router.Use(limiter.Middleware())
	router.POST("/generate", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func hit(router *gin.Engine) int {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/generate", nil))
	return w.Code
}

func TestRateLimiter_BlocksAfterBurst(t *testing.T) {
	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{RequestsPerMinute: 1, Burst: 2})
	router := limitedRouter(limiter, uuid.New())

	assert.Equal(t, http.StatusOK, hit(router))
	assert.Equal(t, http.StatusOK, hit(router))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/generate", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRateLimiter_PerUser(t *testing.T) {
	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{RequestsPerMinute: 1, Burst: 1})

	first := limitedRouter(limiter, uuid.New())
	second := limitedRouter(limiter, uuid.New())

	assert.Equal(t, http.StatusOK, hit(first))
	assert.Equal(t, http.StatusTooManyRequests, hit(first))
	assert.Equal(t, http.StatusOK, hit(second))
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{})
	assert.Nil(t, limiter)

	router := limitedRouter(limiter, uuid.New())
	for i := 0; i < 20; i++ {
		assert.Equal(t, http.StatusOK, hit(router))
	}
}
