package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ferramentastecnologia/rosamexicano-reservas/config"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/gateway"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/redisclient"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/service"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/tables"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/util"
)

// WebhookVerifier checks gateway webhook signatures.
type WebhookVerifier interface {
	VerifyWebhookSignature(signature string, payload []byte) bool
}

// Handler contains HTTP handlers
type Handler struct {
	reservations *service.ReservationService
	availability *service.AvailabilityService
	vouchers     *service.VoucherService
	auth         *service.AuthService
	verifier     WebhookVerifier
	rdb          *redisclient.Client
	cfg          *config.Config
}

// NewHandler creates a new HTTP handler
func NewHandler(
	reservations *service.ReservationService,
	availability *service.AvailabilityService,
	vouchers *service.VoucherService,
	auth *service.AuthService,
	verifier WebhookVerifier,
	rdb *redisclient.Client,
	cfg *config.Config,
) *Handler {
	return &Handler{
		reservations: reservations,
		availability: availability,
		vouchers:     vouchers,
		auth:         auth,
		verifier:     verifier,
		rdb:          rdb,
		cfg:          cfg,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(rateLimitMiddleware(h.rdb, h.cfg.Business.RateLimitCapacity, h.cfg.Business.RateLimitRefill))
	{
		v1.POST("/reservations", h.createReservation)
		v1.GET("/availability", h.checkAvailability)
		v1.GET("/tables/available", h.availableTables)
		v1.GET("/payments/status", h.paymentStatus)
		v1.POST("/payments/cancel", h.cancelPayment)
		v1.GET("/vouchers/:codigo", h.getVoucher)
	}

	// The webhook authenticates by signature, not by source; the gateway's
	// retry bursts must never be throttled.
	router.POST("/api/v1/webhooks/asaas", h.asaasWebhook)

	admin := router.Group("/api/v1/admin")
	{
		admin.POST("/auth/login", h.login)
		admin.POST("/auth/refresh", h.refresh)

		authed := admin.Group("")
		authed.Use(authMiddleware(h.auth))
		h.setupAdminRoutes(authed)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// createReservation opens a reservation with a PIX deposit charge.
func (h *Handler) createReservation(c *gin.Context) {
	var req service.CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, util.Validation("invalid request body: "+err.Error()))
		return
	}

	resp, err := h.reservations.Create(c.Request.Context(), &req)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// checkAvailability answers whether a party fits on a date and slot.
func (h *Handler) checkAvailability(c *gin.Context) {
	people, err := intQuery(c, "pessoas")
	if err != nil {
		renderError(c, err)
		return
	}

	check, err := h.availability.CheckAvailability(
		c.Request.Context(), c.Query("data"), c.Query("horario"), people)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, check)
}

// availableTables returns the per-table occupancy map for a date.
func (h *Handler) availableTables(c *gin.Context) {
	view, err := h.availability.AvailableTables(
		c.Request.Context(), c.Query("data"), c.Query("horario"), tables.Area(c.Query("area")))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// paymentStatus reports the lifecycle state of a charge for frontend
// polling.
func (h *Handler) paymentStatus(c *gin.Context) {
	resp, err := h.reservations.CheckPaymentStatus(c.Request.Context(), c.Query("payment_id"))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// cancelPayment cancels a still-pending reservation by charge id.
func (h *Handler) cancelPayment(c *gin.Context) {
	var req struct {
		PaymentID string `json:"payment_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, util.Validation("payment_id is required"))
		return
	}

	if err := h.reservations.CancelByPaymentID(c.Request.Context(), req.PaymentID); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}

// getVoucher shows a voucher with its reservation context.
func (h *Handler) getVoucher(c *gin.Context) {
	details, err := h.vouchers.Get(c.Request.Context(), c.Param("codigo"))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// asaasWebhook applies a gateway payment event. The handler acknowledges
// everything it recognizes, even when no action results, so the gateway
// stops retrying; only transport and storage failures return non-2xx.
func (h *Handler) asaasWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		renderError(c, util.Validation("unreadable body"))
		return
	}

	if !h.verifier.VerifyWebhookSignature(c.GetHeader("asaas-access-token"), body) {
		util.GetLogger().Warn("Webhook signature rejected",
			zap.String("request_id", c.GetString(ctxKeyRequestID)))
		renderError(c, util.AuthError("invalid webhook signature"))
		return
	}

	var payload gateway.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		renderError(c, util.Validation("invalid webhook payload"))
		return
	}
	if payload.Event == "" || payload.Payment.ID == "" {
		renderError(c, util.Validation("webhook payload missing event or payment id"))
		return
	}

	// Dedup on event + payment id. Redis being down only costs dedup;
	// all transitions are idempotent anyway.
	if h.rdb != nil {
		first, err := h.rdb.MarkWebhookEvent(c.Request.Context(),
			payload.Event+":"+payload.Payment.ID, 24*time.Hour)
		if err == nil && !first {
			c.JSON(http.StatusOK, &service.WebhookResult{Received: true, Duplicate: true})
			return
		}
	}

	result, err := h.reservations.ProcessPaymentEvent(c.Request.Context(), payload.Event, payload.Payment.ID)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func intQuery(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, util.Validation(name + " is required")
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, util.Validation(name + " must be a number")
	}
	return v, nil
}
