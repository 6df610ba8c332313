package api

import (
	"net/http"

	"marketplace-service/internal/models"
	"marketplace-service/internal/reservation"
	"marketplace-service/internal/service"

	"github.com/gin-gonic/gin"
)

// createReservation reserves a product for the signed-in customer
func (h *Handler) createReservation(c *gin.Context) {
	var req service.CreateReservationRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	s := currentSession(c)
	req.UserID = s.Identity.UserID
	req.UserEmail = s.Identity.Email

	r, err := h.reservations.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to create reservation")
		return
	}

	c.JSON(http.StatusCreated, r)
}

// myReservations lists the caller's reservations, newest first
func (h *Handler) myReservations(c *gin.Context) {
	s := currentSession(c)

	list, err := h.reservations.List(c.Request.Context(), models.ReservationFilter{UserID: s.Identity.UserID})
	if err != nil {
		respondError(c, err, "Failed to load reservations")
		return
	}

	c.JSON(http.StatusOK, gin.H{"reservations": h.reservations.Views(list)})
}

// refreshBoard reloads the admin list. When the reload fails but an
// earlier list exists, that list is served and stale is true.
func (h *Handler) refreshBoard(c *gin.Context) (stale bool, ok bool) {
	err := h.board.Refresh(c.Request.Context())
	if err == nil {
		return false, true
	}
	if _, loadedAt := h.board.Snapshot(); loadedAt.IsZero() {
		respondError(c, err, "Failed to load reservations")
		return false, false
	}
	return true, true
}

// listReservations serves the admin list with expiry flags
func (h *Handler) listReservations(c *gin.Context) {
	status := models.ReservationStatus(c.Query("status"))
	if status != "" && !reservation.ValidStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status filter"})
		return
	}

	stale, ok := h.refreshBoard(c)
	if !ok {
		return
	}

	list, loadedAt := h.board.Filtered(status)
	c.JSON(http.StatusOK, gin.H{
		"reservations": h.reservations.Views(list),
		"stale":        stale,
		"loaded_at":    loadedAt,
	})
}

// reservationStats serves the admin overview counts
func (h *Handler) reservationStats(c *gin.Context) {
	stale, ok := h.refreshBoard(c)
	if !ok {
		return
	}

	list, loadedAt := h.board.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"stats":     h.reservations.Stats(list),
		"stale":     stale,
		"loaded_at": loadedAt,
	})
}

// reservationEvents serves the audit trail of one reservation
func (h *Handler) reservationEvents(c *gin.Context) {
	events, err := h.audit.ListReservationEvents(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to load reservation events")
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

// transitionReservation confirms or cancels a reservation
func (h *Handler) transitionReservation(c *gin.Context) {
	var req service.TransitionRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	req.ID = c.Param("id")
	req.Actor = currentSession(c).Identity.UserID

	r, err := h.board.Transition(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to update reservation")
		return
	}

	c.JSON(http.StatusOK, r)
}
