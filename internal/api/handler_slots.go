package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"parking-reservation-backend/internal/model"
	"parking-reservation-backend/internal/parse"
	"parking-reservation-backend/internal/projection"
	"parking-reservation-backend/internal/store"
	"parking-reservation-backend/internal/token"
)

// SlotHandler serves the slot catalog and projected status endpoints.
type SlotHandler struct {
	projector *projection.Projector
	slots     store.SlotStore
	verifier  *token.Verifier
}

// NewSlotHandler creates the slot service handler set.
func NewSlotHandler(projector *projection.Projector, slots store.SlotStore, verifier *token.Verifier) *SlotHandler {
	return &SlotHandler{projector: projector, slots: slots, verifier: verifier}
}

type slotJSON struct {
	ID       int64  `json:"id"`
	Label    string `json:"label"`
	Zone     string `json:"zone"`
	Floor    int    `json:"floor"`
	Category string `json:"category"`
	Status   string `json:"status"`
}

// List handles GET /api/slots. Status is the projected value: static
// Maintenance/Retired win, otherwise live occupancy decides.
func (h *SlotHandler) List(c *gin.Context) {
	filter := store.SlotFilter{Category: c.Query("category")}
	if f := c.Query("floor"); f != "" {
		floor, err := strconv.Atoi(f)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "invalid floor"})
			return
		}
		filter.Floor = &floor
	}

	views, err := h.projector.Project(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]slotJSON, 0, len(views))
	for _, v := range views {
		out = append(out, slotJSON{
			ID:       v.Slot.ID,
			Label:    v.Slot.Label,
			Zone:     v.Slot.Zone,
			Floor:    v.Slot.Floor,
			Category: v.Slot.Category,
			Status:   string(v.ProjectedStatus),
		})
	}
	c.JSON(http.StatusOK, gin.H{"slots": out})
}

type createSlotRequest struct {
	Label    string `json:"label" binding:"required"`
	Category string `json:"category" binding:"required"`
}

// Create handles POST /api/slots. Admin only; zone and floor are derived
// from the label.
func (h *SlotHandler) Create(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}

	var req createSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": err.Error()})
		return
	}

	parsed, err := parse.ParseLabel(req.Label)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": err.Error()})
		return
	}

	slot := &model.Slot{
		Label:    req.Label,
		Zone:     parsed.Zone,
		Floor:    parsed.Floor,
		Category: req.Category,
		Status:   model.SlotAvailable,
	}
	if err := h.slots.Create(c.Request.Context(), slot); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "slot": slot})
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus handles PATCH /api/slots/:id/status, the administrative
// maintenance toggle. Only static statuses may be written; Occupied is a
// projection, not a stored state.
func (h *SlotHandler) UpdateStatus(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "invalid slot id"})
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": err.Error()})
		return
	}

	status := model.SlotStatus(req.Status)
	switch status {
	case model.SlotAvailable, model.SlotMaintenance, model.SlotRetired:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "status must be Available, Maintenance or Retired"})
		return
	}

	if err := h.slots.UpdateStatus(c.Request.Context(), id, status); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "message": "status updated"})
}

func (h *SlotHandler) requireAdmin(c *gin.Context) bool {
	identity, err := h.verifier.Verify(c.Request.Context(), bearerToken(c))
	if err != nil {
		respondError(c, err)
		return false
	}
	if identity.Role != model.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": TagUnauthorized, "message": "insufficient role"})
		return false
	}
	return true
}
