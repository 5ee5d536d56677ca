package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"parking-reservation-backend/internal/model"
)

// SubscriptionHandler manages browser push subscriptions for slot
// availability notifications.
type SubscriptionHandler struct {
	db             *gorm.DB
	vapidPublicKey string
}

// NewSubscriptionHandler creates the subscription handler set.
func NewSubscriptionHandler(db *gorm.DB, vapidPublicKey string) *SubscriptionHandler {
	return &SubscriptionHandler{db: db, vapidPublicKey: vapidPublicKey}
}

type putSubscriptionRequest struct {
	Endpoint        string  `json:"endpoint" binding:"required"`
	P256DH          string  `json:"p256dh" binding:"required"`
	Auth            string  `json:"auth" binding:"required"`
	SubscribedSlots []int64 `json:"subscribed_slots"`
}

// Put handles PUT /api/subscriptions, creating or replacing a subscription
// and its watched-slot set.
func (h *SubscriptionHandler) Put(c *gin.Context) {
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	subscription := model.PushSubscription{
		Endpoint: req.Endpoint,
		P256DH:   req.P256DH,
		Auth:     req.Auth,
	}

	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Create(&subscription).Error; err != nil {
			return err
		}

		var slots []model.Slot
		if len(req.SubscribedSlots) > 0 {
			if err := tx.Find(&slots, req.SubscribedSlots).Error; err != nil {
				return err
			}
		}
		return tx.Model(&subscription).Association("Slots").Replace(&slots)
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusCreated)
}

// Get handles GET /api/subscriptions?endpoint=..., returning the watched
// slot IDs for a known subscription.
func (h *SubscriptionHandler) Get(c *gin.Context) {
	endpoint := c.Query("endpoint")
	if endpoint == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endpoint is required"})
		return
	}

	var subscription model.PushSubscription
	err := h.db.WithContext(c.Request.Context()).
		Preload("Slots").
		First(&subscription, "endpoint = ?", endpoint).Error
	if err == gorm.ErrRecordNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	slotIDs := make([]int64, len(subscription.Slots))
	for i, slot := range subscription.Slots {
		slotIDs[i] = slot.ID
	}
	c.JSON(http.StatusOK, gin.H{"subscribed_slots": slotIDs})
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// Delete handles DELETE /api/subscriptions.
func (h *SubscriptionHandler) Delete(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.db.WithContext(c.Request.Context()).
		Delete(&model.PushSubscription{Endpoint: req.Endpoint}).Error; err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// VAPIDPublicKey handles GET /api/vapid_public_key.
func (h *SubscriptionHandler) VAPIDPublicKey(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"public_key": h.vapidPublicKey})
}
