package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"booking-service/internal/auth"
	"booking-service/internal/models"
	"booking-service/internal/util"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	ginlimiter "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

const principalKey = "principal"

// authenticate resolves the caller from a bearer token or the auth cookie
func (h *Handler) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			if cookie, err := c.Cookie(h.authn.CookieName()); err == nil {
				token = cookie
			}
		}

		p, err := h.authn.Parse(token)
		if err != nil {
			msg := "Invalid token"
			if err == auth.ErrNoToken {
				msg = "No token"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": msg})
			return
		}

		c.Set(principalKey, p)
		c.Next()
	}
}

// requireRole rejects callers whose role is not one of roles
func requireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := principalFrom(c)
		for _, role := range roles {
			if p != nil && p.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Forbidden"})
	}
}

func principalFrom(c *gin.Context) *models.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*models.Principal)
	return p
}

// corsMiddleware allows the configured origins, plus localhost when enabled
func corsMiddleware(opts Options) gin.HandlerFunc {
	allowed := make(map[string]bool, len(opts.AllowedOrigins))
	for _, o := range opts.AllowedOrigins {
		allowed[o] = true
	}

	return cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			if allowed[origin] {
				return true
			}
			if !opts.AllowLocalhost {
				return false
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false
			}
			host := u.Hostname()
			return host == "localhost" || host == "127.0.0.1"
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// rateLimiter limits payment calls per caller, e.g. "30-M" for 30 a minute
func rateLimiter(formatted string) (gin.HandlerFunc, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("invalid payment rate limit %q: %w", formatted, err)
	}

	instance := limiter.New(memory.NewStore(), rate)
	return ginlimiter.NewMiddleware(instance, ginlimiter.WithKeyGetter(func(c *gin.Context) string {
		if p := principalFrom(c); p != nil {
			return "user:" + p.ID
		}
		return "ip:" + c.ClientIP()
	})), nil
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
