package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"parking-reservation-backend/internal/booking"
	"parking-reservation-backend/internal/model"
	"parking-reservation-backend/internal/store"
	"parking-reservation-backend/internal/token"
)

// Taxonomy tags surfaced to callers. Authentication failures and conflicts
// always carry their specific tag; unexpected storage errors are reported as
// Internal without leaking the underlying error text.
const (
	TagUnauthenticated = "Unauthenticated"
	TagUnauthorized    = "Unauthorized"
	TagInvalidInterval = "InvalidInterval"
	TagSlotUnavailable = "SlotUnavailable"
	TagConflict        = "Conflict"
	TagNotFound        = "NotFound"
	TagUnavailable     = "Unavailable"
	TagInternal        = "Internal"
)

// respondError maps a domain error onto an HTTP status and taxonomy tag.
func respondError(c *gin.Context, err error) {
	var conflict *booking.ConflictError
	switch {
	case errors.Is(err, token.ErrInvalidCredentials),
		errors.Is(err, token.ErrTokenExpired),
		errors.Is(err, token.ErrBadToken),
		errors.Is(err, token.ErrUnknownSubject):
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": TagUnauthenticated, "message": err.Error()})
	case errors.Is(err, booking.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": TagUnauthorized, "message": err.Error()})
	case errors.Is(err, booking.ErrInvalidInterval):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": TagInvalidInterval, "message": err.Error()})
	case errors.Is(err, booking.ErrSlotUnavailable):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"ok": false, "error": TagSlotUnavailable, "message": err.Error()})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{
			"ok":      false,
			"error":   TagConflict,
			"message": err.Error(),
			"conflicting_reservation": gin.H{
				"id":         conflict.Existing.ID,
				"start_time": conflict.Existing.StartTime(),
				"end_time":   conflict.Existing.EndTime(),
			},
		})
	case errors.Is(err, booking.ErrSlotNotFound),
		errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": TagNotFound, "message": "not found"})
	case errors.Is(err, store.ErrTerminal):
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": TagConflict, "message": err.Error()})
	default:
		requestID, _ := c.Get("request_id")
		log.Printf("internal error (request %v): %v", requestID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": TagInternal, "message": "internal error"})
	}
}

// reservationJSON is the wire form of a reservation; times render as "HH:MM".
type reservationJSON struct {
	ID           int64  `json:"id"`
	SlotID       int64  `json:"slot_id"`
	HolderID     int64  `json:"holder_id"`
	VehiclePlate string `json:"vehicle_plate"`
	Category     string `json:"category"`
	Date         string `json:"date"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	Status       string `json:"status"`
}

func toReservationJSON(r *model.Reservation) reservationJSON {
	return reservationJSON{
		ID:           r.ID,
		SlotID:       r.SlotID,
		HolderID:     r.HolderID,
		VehiclePlate: r.VehiclePlate,
		Category:     r.Category,
		Date:         r.Date,
		StartTime:    r.StartTime(),
		EndTime:      r.EndTime(),
		Status:       string(r.Status),
	}
}
