package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"parking-reservation-backend/internal/booking"
	"parking-reservation-backend/internal/model"
	"parking-reservation-backend/internal/notification"
	"parking-reservation-backend/internal/store"
	"parking-reservation-backend/internal/token"
)

// ReservationHandler serves the reservation write and query endpoints.
type ReservationHandler struct {
	guard    *booking.Guard
	ledger   store.Ledger
	verifier *token.Verifier
	pool     *notification.WorkerPool
}

// NewReservationHandler creates the reservation service handler set. pool
// may be nil when push notifications are disabled.
func NewReservationHandler(guard *booking.Guard, ledger store.Ledger, verifier *token.Verifier, pool *notification.WorkerPool) *ReservationHandler {
	return &ReservationHandler{guard: guard, ledger: ledger, verifier: verifier, pool: pool}
}

type bookRequest struct {
	SlotID       int64  `json:"slot_id" binding:"required"`
	HolderID     int64  `json:"holder_id"`
	VehiclePlate string `json:"vehicle_plate" binding:"required"`
	Category     string `json:"category" binding:"required"`
	Date         string `json:"date" binding:"required"`
	StartTime    string `json:"start_time" binding:"required"`
	EndTime      string `json:"end_time" binding:"required"`
}

// Book handles POST /api/reservations. The bearer token is verified before
// admission; the holder defaults to the verified identity.
func (h *ReservationHandler) Book(c *gin.Context) {
	identity, err := h.verifier.Verify(c.Request.Context(), bearerToken(c))
	if err != nil {
		respondError(c, err)
		return
	}

	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": err.Error()})
		return
	}

	start, err := model.ParseClock(req.StartTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": TagInvalidInterval, "message": err.Error()})
		return
	}
	end, err := model.ParseClock(req.EndTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": TagInvalidInterval, "message": err.Error()})
		return
	}

	reservation, err := h.guard.Book(c.Request.Context(), identity, booking.Request{
		SlotID:       req.SlotID,
		HolderID:     req.HolderID,
		VehiclePlate: req.VehiclePlate,
		Category:     req.Category,
		Date:         req.Date,
		StartMinute:  start,
		EndMinute:    end,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"ok":          true,
		"reservation": toReservationJSON(reservation),
		"message":     "reservation created",
	})
}

// List handles GET /api/reservations with optional date/category/floor
// filters.
func (h *ReservationHandler) List(c *gin.Context) {
	filter := store.ReservationFilter{
		Date:     c.Query("date"),
		Category: c.Query("category"),
	}
	if f := c.Query("floor"); f != "" {
		floor, err := strconv.Atoi(f)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "invalid floor"})
			return
		}
		filter.Floor = &floor
	}

	reservations, err := h.ledger.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]reservationJSON, 0, len(reservations))
	for i := range reservations {
		out = append(out, toReservationJSON(&reservations[i]))
	}
	c.JSON(http.StatusOK, gin.H{"reservations": out})
}

// Latest handles GET /api/reservations/latest?holder_id=N.
func (h *ReservationHandler) Latest(c *gin.Context) {
	holderID, err := strconv.ParseInt(c.Query("holder_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "holder_id is required"})
		return
	}

	reservation, err := h.ledger.LatestByHolder(c.Request.Context(), holderID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"ok": false, "reservation": nil, "message": "no reservations found"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "reservation": toReservationJSON(reservation)})
}

// Cancel handles POST /api/reservations/:id/cancel. The holder may cancel
// their own reservation; staff and admin may cancel any.
func (h *ReservationHandler) Cancel(c *gin.Context) {
	identity, err := h.verifier.Verify(c.Request.Context(), bearerToken(c))
	if err != nil {
		respondError(c, err)
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "invalid reservation id"})
		return
	}

	reservation, err := h.ledger.ByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if reservation.HolderID != identity.ID && identity.Role == model.RolePatron {
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": TagUnauthorized, "message": "insufficient role"})
		return
	}

	cancelled, err := h.ledger.Cancel(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	// Cancelling frees the slot for anyone watching it.
	if h.pool != nil {
		h.pool.Dispatch(cancelled.SlotID)
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "reservation": toReservationJSON(cancelled)})
}
