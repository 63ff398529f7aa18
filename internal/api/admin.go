package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/models"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/util"
)

func (h *Handler) setupAdminRoutes(g *gin.RouterGroup) {
	g.POST("/accounts", requireRole(models.RoleAdmin), h.createAccount)
	g.GET("/reservations", requirePermission(models.PermReservationsRead), h.listReservations)
	g.GET("/reservations/:id", requirePermission(models.PermReservationsRead), h.getReservation)
	g.POST("/reservations/:id/approve", requirePermission(models.PermReservationsWrite), h.approveReservation)
	g.POST("/reservations/:id/reject", requirePermission(models.PermReservationsWrite), h.rejectReservation)
	g.GET("/table-occupancy", requirePermission(models.PermReservationsRead), h.tableOccupancy)
	g.GET("/stats", requirePermission(models.PermStatsRead), h.stats)
	g.POST("/vouchers/:codigo/validate", requirePermission(models.PermVouchersValidate), h.validateVoucher)
	g.POST("/sweep", requirePermission(models.PermSweepRun), h.runSweep)
}

// login authenticates a staff account.
func (h *Handler) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, util.Validation("email and password are required"))
		return
	}

	resp, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// refresh rotates a token pair.
func (h *Handler) refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, util.Validation("refresh_token is required"))
		return
	}

	pair, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// createAccount registers a staff account. Restricted to the admin role.
func (h *Handler) createAccount(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
		Name     string `json:"name" binding:"required"`
		Role     string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, util.Validation("email, password, name and role are required"))
		return
	}

	admin, err := h.auth.Register(c.Request.Context(), req.Email, req.Password, req.Name, req.Role)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, admin)
}

// listReservations pages through reservations for the admin panel.
func (h *Handler) listReservations(c *gin.Context) {
	limit := 50
	offset := 0
	if raw := c.Query("limit"); raw != "" {
		if v, err := intQuery(c, "limit"); err == nil {
			limit = v
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if v, err := intQuery(c, "offset"); err == nil {
			offset = v
		}
	}

	reservations, err := h.reservations.List(c.Request.Context(), c.Query("status"), limit, offset)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reservations": reservations,
		"count":        len(reservations),
	})
}

// getReservation retrieves one reservation.
func (h *Handler) getReservation(c *gin.Context) {
	reservation, err := h.reservations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservation)
}

// approveReservation marks a confirmed reservation as reviewed.
func (h *Handler) approveReservation(c *gin.Context) {
	if err := h.reservations.Approve(c.Request.Context(), c.Param("id")); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.ReservationStatusApproved})
}

// rejectReservation rejects a confirmed reservation.
func (h *Handler) rejectReservation(c *gin.Context) {
	if err := h.reservations.Reject(c.Request.Context(), c.Param("id")); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.ReservationStatusRejected})
}

// tableOccupancy shows the floor map with per-table occupant info.
func (h *Handler) tableOccupancy(c *gin.Context) {
	view, err := h.availability.AvailableTables(
		c.Request.Context(), c.Query("data"), c.Query("horario"), "")
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// stats aggregates reservation counts by status plus voucher totals.
func (h *Handler) stats(c *gin.Context) {
	reservations, err := h.reservations.Stats(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	vouchers, err := h.vouchers.Stats(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reservations": reservations,
		"vouchers":     vouchers,
	})
}

// validateVoucher redeems a voucher at the door.
func (h *Handler) validateVoucher(c *gin.Context) {
	details, err := h.vouchers.Redeem(c.Request.Context(), c.Param("codigo"))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// runSweep triggers a reconciliation pass on demand.
func (h *Handler) runSweep(c *gin.Context) {
	result, err := h.reservations.CancelExpired(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
