package sweeper

import (
	"context"
	"log"
	"time"

	"parking-reservation-backend/internal/model"
	"parking-reservation-backend/internal/store"
)

// Dispatcher receives the IDs of slots freed by completed reservations.
type Dispatcher interface {
	Dispatch(slotID int64)
}

// Sweeper periodically transitions Active reservations whose interval has
// elapsed to Completed, keeping projected slot statuses honest without any
// write at read time, and hands freed slots to the notification dispatcher.
type Sweeper struct {
	ledger     store.Ledger
	dispatcher Dispatcher
	loc        *time.Location
	interval   time.Duration
}

// New creates a sweeper evaluating "now" in the deployment timezone.
func New(ledger store.Ledger, dispatcher Dispatcher, loc *time.Location, interval time.Duration) *Sweeper {
	return &Sweeper{ledger: ledger, dispatcher: dispatcher, loc: loc, interval: interval}
}

// Run sweeps once immediately and then on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	log.Println("Starting reservation sweeper...")
	s.SweepOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Reservation sweeper shutting down.")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce performs a single completion pass.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	completed, err := s.ledger.CompleteElapsed(ctx, time.Now(), s.loc)
	if err != nil {
		log.Printf("sweep failed: %v", err)
		return
	}
	if len(completed) == 0 {
		return
	}
	log.Printf("completed %d elapsed reservation(s)", len(completed))

	if s.dispatcher == nil {
		return
	}
	for _, slotID := range freedSlots(completed) {
		s.dispatcher.Dispatch(slotID)
	}
}

// freedSlots deduplicates the slot IDs touched by a batch of completions.
func freedSlots(completed []model.Reservation) []int64 {
	seen := make(map[int64]struct{}, len(completed))
	var out []int64
	for _, r := range completed {
		if _, ok := seen[r.SlotID]; ok {
			continue
		}
		seen[r.SlotID] = struct{}{}
		out = append(out, r.SlotID)
	}
	return out
}
