package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type countingLimiter struct {
	keys  []string
	allow int
	err   error
}

func (l *countingLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	l.keys = append(l.keys, key)
	if l.err != nil {
		return false, l.err
	}
	return len(l.keys) <= l.allow, nil
}

func serve(h gin.HandlerFunc) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(h)
	r.GET("/api/v1/books/:bid/index", func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/books/b1/index", nil))
	return w
}

func TestRateLimitRejectsOverLimit(t *testing.T) {
	limiter := &countingLimiter{allow: 1}
	mw := RateLimit(RateLimitConfig{Enabled: true, Limit: 1, Window: time.Second}, limiter)

	assert.Equal(t, http.StatusOK, serve(mw).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(mw).Code)
	assert.Contains(t, limiter.keys[0], "/api/v1/books/:bid/index")
}

func TestRateLimitFailsOpen(t *testing.T) {
	limiter := &countingLimiter{err: errors.New("redis down")}
	mw := RateLimit(RateLimitConfig{Enabled: true}, limiter)

	assert.Equal(t, http.StatusOK, serve(mw).Code)
}

func TestRateLimitDisabled(t *testing.T) {
	limiter := &countingLimiter{}
	mw := RateLimit(RateLimitConfig{Enabled: false}, limiter)

	assert.Equal(t, http.StatusOK, serve(mw).Code)
	assert.Empty(t, limiter.keys)
}
