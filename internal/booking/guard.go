package booking

import (
	"context"
	"errors"
	"fmt"
	"log"

	"parking-reservation-backend/internal/model"
	"parking-reservation-backend/internal/store"
	"parking-reservation-backend/internal/token"
)

var (
	// ErrInvalidInterval means start/end do not form a half-open interval
	// within a single calendar day.
	ErrInvalidInterval = errors.New("invalid reservation interval")
	// ErrSlotUnavailable means the slot's static status rules out booking.
	ErrSlotUnavailable = errors.New("slot is not available for booking")
	// ErrSlotNotFound means the requested slot does not exist.
	ErrSlotNotFound = errors.New("slot not found")
	// ErrForbidden means the verified identity's role does not allow the
	// requested booking.
	ErrForbidden = errors.New("insufficient role")
)

// ConflictError rejects a booking that overlaps an existing Active
// reservation, carrying the conflicting record for caller diagnostics.
type ConflictError struct {
	Existing model.Reservation
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("interval overlaps reservation %d (%s-%s)",
		e.Existing.ID, e.Existing.StartTime(), e.Existing.EndTime())
}

// Request describes one booking attempt. Times are minutes since midnight.
type Request struct {
	SlotID       int64
	HolderID     int64
	VehiclePlate string
	Category     string
	Date         string
	StartMinute  int
	EndMinute    int
}

// Guard is the write-path gate for the reservation ledger. It validates the
// request, checks the slot's static status, and runs the overlap check and
// insert as one critical section per (slot, date) key. The ledger itself
// never re-checks; every insert goes through here.
type Guard struct {
	ledger store.Ledger
	slots  store.SlotStore
	locks  *keyedMutex
}

// NewGuard creates a booking guard over the given ledger and slot catalog.
func NewGuard(ledger store.Ledger, slots store.SlotStore) *Guard {
	return &Guard{ledger: ledger, slots: slots, locks: newKeyedMutex()}
}

// Book admits or rejects a reservation request for an already verified
// identity. The identity's current role is trusted as resolved by the
// verifier; patrons may only book for themselves.
func (g *Guard) Book(ctx context.Context, identity *token.Identity, req Request) (*model.Reservation, error) {
	if req.HolderID == 0 {
		req.HolderID = identity.ID
	}
	if req.HolderID != identity.ID && identity.Role == model.RolePatron {
		return nil, fmt.Errorf("%w: patrons may only book for themselves", ErrForbidden)
	}

	if req.StartMinute < 0 || req.EndMinute > 24*60 || req.StartMinute >= req.EndMinute {
		return nil, ErrInvalidInterval
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInterval, err)
	}
	req.Date = date

	slot, err := g.slots.ByID(ctx, req.SlotID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, err
	}
	if slot.Status != model.SlotAvailable {
		return nil, fmt.Errorf("%w: slot %s is %s", ErrSlotUnavailable, slot.Label, slot.Status)
	}

	// Concurrent attempts for the same slot and date must not interleave
	// between the overlap check and the insert.
	unlock := g.locks.Lock(fmt.Sprintf("%d@%s", req.SlotID, req.Date))
	defer unlock()

	overlapping, err := g.ledger.FindOverlapping(ctx, req.SlotID, req.Date, req.StartMinute, req.EndMinute)
	if err != nil {
		return nil, err
	}
	if len(overlapping) > 0 {
		return nil, &ConflictError{Existing: overlapping[0]}
	}

	reservation := &model.Reservation{
		SlotID:       req.SlotID,
		HolderID:     req.HolderID,
		VehiclePlate: req.VehiclePlate,
		Category:     req.Category,
		Date:         req.Date,
		StartMinute:  req.StartMinute,
		EndMinute:    req.EndMinute,
	}
	if err := g.ledger.Insert(ctx, reservation); err != nil {
		return nil, err
	}

	log.Printf("reservation %d admitted: slot %d on %s [%s, %s) for holder %d",
		reservation.ID, req.SlotID, req.Date,
		reservation.StartTime(), reservation.EndTime(), req.HolderID)
	return reservation, nil
}
