package api

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/redisclient"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/service"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/util"
)

const (
	ctxKeyClaims    = "auth_claims"
	ctxKeyRequestID = "request_id"
)

// requestIDMiddleware assigns (or propagates) an X-Request-ID.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(ctxKeyRequestID, requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}

// rateLimitMiddleware applies a per-client token bucket backed by redis.
// When redis is down the limiter fails open: throttling is protection, not
// correctness.
func rateLimitMiddleware(rdb *redisclient.Client, capacity int, refill time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := rdb.AllowRequest(c.Request.Context(), c.ClientIP(), capacity, refill)
		if err != nil {
			util.GetLogger().Warn("Rate limiter unavailable, allowing request", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		if !result.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())+1))
			renderError(c, util.RateLimited("too many requests"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// authMiddleware validates the bearer token and stores its claims.
func authMiddleware(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			renderError(c, util.AuthError("missing bearer token"))
			c.Abort()
			return
		}

		claims, err := auth.ValidateAccessToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			renderError(c, err)
			c.Abort()
			return
		}

		c.Set(ctxKeyClaims, claims)
		c.Next()
	}
}

// requireRole gates a route on the token's role.
func requireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := claimsFrom(c)
		if claims == nil || claims.Role != role {
			renderError(c, util.Forbidden("requires role: "+role))
			c.Abort()
			return
		}
		c.Next()
	}
}

// requirePermission gates a route on a capability in the token.
func requirePermission(perm string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := claimsFrom(c)
		if claims == nil || !claims.Permissions.Has(perm) {
			renderError(c, util.Forbidden("missing permission: "+perm))
			c.Abort()
			return
		}
		c.Next()
	}
}

func claimsFrom(c *gin.Context) *service.Claims {
	v, ok := c.Get(ctxKeyClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*service.Claims)
	return claims
}

// renderError maps an error to its HTTP status with a uniform body shape.
func renderError(c *gin.Context, err error) {
	appErr := util.AsAppError(err)

	if appErr.Kind == util.KindInternal {
		util.GetLogger().Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(ctxKeyRequestID)),
			zap.Error(err))
	}

	c.JSON(appErr.HTTPStatus(), gin.H{
		"error": appErr.Message,
		"code":  string(appErr.Kind),
	})
}
