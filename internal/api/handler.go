package api

import (
	"context"
	"net/http"
	"time"

	"booking-service/internal/apperr"
	"booking-service/internal/auth"
	"booking-service/internal/models"
	"booking-service/internal/service"
	"booking-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the HTTP middleware
type Options struct {
	AllowedOrigins   []string
	AllowLocalhost   bool
	PaymentRateLimit string
}

// Handler contains HTTP handlers
type Handler struct {
	bookings *service.BookingService
	payments *service.PaymentService
	webhooks *service.WebhookService
	authn    *auth.Authenticator
	db       Pinger
	opts     Options
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	bookings *service.BookingService,
	payments *service.PaymentService,
	webhooks *service.WebhookService,
	authn *auth.Authenticator,
	db Pinger,
	opts Options,
) *Handler {
	return &Handler{
		bookings: bookings,
		payments: payments,
		webhooks: webhooks,
		authn:    authn,
		db:       db,
		opts:     opts,
		logger:   util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) error {
	if err := registerValidators(); err != nil {
		return err
	}

	paymentLimit, err := rateLimiter(h.opts.PaymentRateLimit)
	if err != nil {
		return err
	}

	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())
	router.Use(corsMiddleware(h.opts))

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	bookings := router.Group("/bookings", h.authenticate())
	{
		bookings.POST("", requireRole(models.RoleTaker), h.createBooking)
		bookings.GET("/mine", requireRole(models.RoleTaker), h.myBookings)
		bookings.GET("/for-owner-assets", requireRole(models.RoleLister), h.ownerBookings)
		bookings.GET("/for-my-vehicles", requireRole(models.RoleLister), h.ownerBookings)
		bookings.GET("/:id", h.getBooking)
		bookings.GET("/:id/reviewable", requireRole(models.RoleTaker), h.reviewableBooking)
		bookings.PUT("/:id", requireRole(models.RoleTaker), h.updateBooking)
		bookings.DELETE("/:id", requireRole(models.RoleTaker), h.cancelBooking)
	}

	router.POST("/payments/webhook", paymentLimit, h.paymentWebhook)

	payments := router.Group("/payments", h.authenticate(), requireRole(models.RoleTaker), paymentLimit)
	{
		payments.POST("/order", h.createPaymentOrder)
		payments.POST("/verify", h.verifyPayment)
	}

	reports := router.Group("/reports", h.authenticate(), requireRole(models.RoleAdmin))
	{
		reports.GET("/bookings-per-day", h.bookingsPerDay)
	}

	return nil
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready once the database answers
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warn("Readiness check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// bookingsPerDay handles the admin report
func (h *Handler) bookingsPerDay(c *gin.Context) {
	rows, err := h.bookings.BookingsPerDay(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// respondError maps err to its status and a {message} body. Unclassified
// errors are logged and answered with a generic message.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("kind", apperr.KindOf(err).String()),
			zap.Error(err))
	}
	c.JSON(status, gin.H{"message": apperr.PublicMessage(err)})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"message": msg})
}
