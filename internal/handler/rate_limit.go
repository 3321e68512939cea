package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/scholar-spark/auth-service/internal/dto"
	"github.com/scholar-spark/auth-service/internal/service"
)

// RateLimitMiddleware throttles an action per identifier with a fixed
// window. Limiter backend failures never block the request.
func RateLimitMiddleware(rateLimiter *service.RateLimiter, action string, limit int, window time.Duration, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identifier := keyFunc(c)
		if identifier == "" {
			c.Next()
			return
		}

		if !rateLimiter.Allow(c.Request.Context(), action, identifier, limit, window) {
			c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))

			c.JSON(http.StatusTooManyRequests, dto.ErrorResponse{
				Error:   "Too Many Requests",
				Message: "Rate limit exceeded, please try again later",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// IPBasedKey extracts the client IP for rate limiting, preferring the
// first entry of X-Forwarded-For when the service sits behind a proxy
func IPBasedKey(c *gin.Context) string {
	ip := c.GetHeader("X-Forwarded-For")
	if ip != "" {
		ips := strings.Split(ip, ",")
		return strings.TrimSpace(ips[0])
	}
	return c.ClientIP()
}

// UserBasedKey keys the limit on the authenticated user ID. Must run
// after AuthMiddleware.
func UserBasedKey(c *gin.Context) string {
	userID, exists := c.Get("user_id")
	if !exists {
		return ""
	}
	return strconv.FormatInt(userID.(int64), 10)
}
