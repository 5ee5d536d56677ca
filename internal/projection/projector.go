package projection

import (
	"context"
	"log"
	"time"

	"parking-reservation-backend/internal/model"
	"parking-reservation-backend/internal/store"
)

// SlotView is one slot together with its projected status.
type SlotView struct {
	Slot            model.Slot       `json:"slot"`
	ProjectedStatus model.SlotStatus `json:"status"`
}

// Projector computes the externally observable status of slots by combining
// the static catalog entry with a live occupancy query against the ledger.
type Projector struct {
	slots  store.SlotStore
	ledger store.Ledger
	loc    *time.Location
	now    func() time.Time
}

// New creates a projector evaluating "now" in the given deployment timezone.
func New(slots store.SlotStore, ledger store.Ledger, loc *time.Location) *Projector {
	return &Projector{slots: slots, ledger: ledger, loc: loc, now: time.Now}
}

// Project lists the slots matching filter with their projected status.
// Maintenance and Retired always win; otherwise a slot is Occupied iff an
// Active reservation covers the current instant, else its static status.
// If the occupancy query fails the listing degrades to static statuses
// rather than failing as a whole.
func (p *Projector) Project(ctx context.Context, filter store.SlotFilter) ([]SlotView, error) {
	slots, err := p.slots.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	local := p.now().In(p.loc)
	date := local.Format(model.DateLayout)
	minute := local.Hour()*60 + local.Minute()

	occupied, err := p.ledger.ActiveSlotIDs(ctx, date, minute)
	if err != nil {
		log.Printf("occupancy query unavailable, projecting static statuses only: %v", err)
		occupied = nil
	}

	views := make([]SlotView, 0, len(slots))
	for _, s := range slots {
		status := s.Status
		if status == model.SlotAvailable {
			if _, busy := occupied[s.ID]; busy {
				status = model.SlotOccupied
			}
		}
		views = append(views, SlotView{Slot: s, ProjectedStatus: status})
	}
	return views, nil
}
