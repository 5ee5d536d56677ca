package notification

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"parking-reservation-backend/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool manages a pool of workers notifying subscribers that a slot has
// become available. Jobs are slot IDs, dispatched by the sweeper when a
// reservation completes and by the cancel path.
type WorkerPool struct {
	size    int
	jobs    chan int64
	db      *gorm.DB
	webpush *webpush.Options
	sender  NotificationSender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan int64, size),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("notification worker %d started", id)
	for {
		select {
		case slotID := <-wp.jobs:
			wp.notifySlotAvailable(ctx, slotID)
		case <-ctx.Done():
			log.Printf("notification worker %d shutting down", id)
			return
		}
	}
}

// Dispatch sends a job to the worker pool.
func (wp *WorkerPool) Dispatch(slotID int64) {
	wp.jobs <- slotID
}

// notifySlotAvailable fetches the subscriptions watching a slot and pushes an
// availability message to each, pruning endpoints the push service rejects.
func (wp *WorkerPool) notifySlotAvailable(ctx context.Context, slotID int64) {
	var slot model.Slot
	if err := wp.db.WithContext(ctx).First(&slot, slotID).Error; err != nil {
		log.Printf("cannot load slot %d for notification: %v", slotID, err)
		return
	}

	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Joins("JOIN subscription_slot_mapping ssm ON ssm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("ssm.slot_id = ?", slotID).
		Find(&subscriptions).Error
	if err != nil {
		log.Printf("cannot load subscriptions for slot %d: %v", slotID, err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload := []byte(fmt.Sprintf("Parking slot %s is now available.", slot.Label))
	for _, sub := range subscriptions {
		resp, err := wp.sender.Send(payload, &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys:     webpush.Keys{P256dh: sub.P256DH, Auth: sub.Auth},
		}, wp.webpush)
		if err != nil {
			log.Printf("push send failed for %s: %v", sub.Endpoint, err)
			continue
		}
		resp.Body.Close()

		// 404/410 mean the subscription is gone on the push service side.
		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
			if err := wp.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: sub.Endpoint}).Error; err != nil {
				log.Printf("cannot prune dead subscription %s: %v", sub.Endpoint, err)
			}
		}
	}
	log.Printf("notified %d subscriber(s) that slot %s is available", len(subscriptions), slot.Label)
}
