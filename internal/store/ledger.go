package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"parking-reservation-backend/internal/model"
)

// ErrTerminal is returned when a state change is requested on a reservation
// that has already reached Cancelled or Completed.
var ErrTerminal = errors.New("reservation is in a terminal state")

// ReservationFilter narrows a ledger listing. Floor filtering requires a join
// against the slot catalog.
type ReservationFilter struct {
	Date     string
	Category string
	Floor    *int
	HolderID int64
}

// Ledger is the durable ordered collection of reservation records. It owns
// storage and querying only; admission control (the overlap gate) lives in
// the booking guard, which is the sole caller of Insert.
type Ledger interface {
	// FindOverlapping returns the Active reservations for slotID on date
	// whose half-open minute interval intersects [start, end).
	FindOverlapping(ctx context.Context, slotID int64, date string, start, end int) ([]model.Reservation, error)

	// Insert stores a new reservation, assigning its ID and Active status.
	Insert(ctx context.Context, r *model.Reservation) error

	// ActiveSlotIDs returns the set of slot IDs with an Active reservation
	// covering the given minute on the given date.
	ActiveSlotIDs(ctx context.Context, date string, minute int) (map[int64]struct{}, error)

	List(ctx context.Context, filter ReservationFilter) ([]model.Reservation, error)
	LatestByHolder(ctx context.Context, holderID int64) (*model.Reservation, error)
	ByID(ctx context.Context, id int64) (*model.Reservation, error)

	// Cancel transitions an Active reservation to Cancelled.
	Cancel(ctx context.Context, id int64) (*model.Reservation, error)

	// CompleteElapsed transitions every Active reservation whose interval has
	// fully elapsed at now (in the given location) to Completed, returning
	// the affected reservations.
	CompleteElapsed(ctx context.Context, now time.Time, loc *time.Location) ([]model.Reservation, error)
}

type gormLedger struct {
	db *gorm.DB
}

// NewLedger creates a GORM-backed reservation ledger.
func NewLedger(db *gorm.DB) Ledger {
	return &gormLedger{db: db}
}

// Overlaps reports whether two half-open minute intervals on the same date
// intersect. Adjacent intervals ([9:00,10:00) and [10:00,11:00)) do not.
func Overlaps(s1, e1, s2, e2 int) bool {
	return s1 < e2 && s2 < e1
}

func (l *gormLedger) FindOverlapping(ctx context.Context, slotID int64, date string, start, end int) ([]model.Reservation, error) {
	var out []model.Reservation
	err := l.db.WithContext(ctx).
		Where("slot_id = ? AND date = ? AND status = ?", slotID, date, model.ReservationActive).
		Where("start_minute < ? AND end_minute > ?", end, start).
		Order("start_minute").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("overlap query: %w", err)
	}
	return out, nil
}

func (l *gormLedger) Insert(ctx context.Context, r *model.Reservation) error {
	r.Status = model.ReservationActive
	if err := l.db.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("reservation insert: %w", err)
	}
	return nil
}

func (l *gormLedger) ActiveSlotIDs(ctx context.Context, date string, minute int) (map[int64]struct{}, error) {
	var ids []int64
	err := l.db.WithContext(ctx).Model(&model.Reservation{}).
		Where("date = ? AND status = ?", date, model.ReservationActive).
		Where("start_minute <= ? AND end_minute > ?", minute, minute).
		Distinct().
		Pluck("slot_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("active slot query: %w", err)
	}
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

func (l *gormLedger) List(ctx context.Context, filter ReservationFilter) ([]model.Reservation, error) {
	q := l.db.WithContext(ctx).Model(&model.Reservation{})
	if filter.Date != "" {
		q = q.Where("reservations.date = ?", filter.Date)
	}
	if filter.Category != "" {
		q = q.Where("reservations.category = ?", filter.Category)
	}
	if filter.HolderID != 0 {
		q = q.Where("reservations.holder_id = ?", filter.HolderID)
	}
	if filter.Floor != nil {
		q = q.Joins("JOIN slots ON slots.id = reservations.slot_id").
			Where("slots.floor = ?", *filter.Floor)
	}

	var out []model.Reservation
	if err := q.Order("reservations.date DESC, reservations.start_minute").
		Limit(100).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("reservation list: %w", err)
	}
	return out, nil
}

func (l *gormLedger) LatestByHolder(ctx context.Context, holderID int64) (*model.Reservation, error) {
	var r model.Reservation
	err := l.db.WithContext(ctx).
		Where("holder_id = ?", holderID).
		Order("date DESC, start_minute DESC").
		First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest reservation lookup: %w", err)
	}
	return &r, nil
}

func (l *gormLedger) ByID(ctx context.Context, id int64) (*model.Reservation, error) {
	var r model.Reservation
	err := l.db.WithContext(ctx).First(&r, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reservation lookup: %w", err)
	}
	return &r, nil
}

func (l *gormLedger) Cancel(ctx context.Context, id int64) (*model.Reservation, error) {
	var r model.Reservation
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&r, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if r.Status != model.ReservationActive {
			return ErrTerminal
		}
		r.Status = model.ReservationCancelled
		return tx.Save(&r).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrTerminal) {
			return nil, err
		}
		return nil, fmt.Errorf("reservation cancel: %w", err)
	}
	return &r, nil
}

func (l *gormLedger) CompleteElapsed(ctx context.Context, now time.Time, loc *time.Location) ([]model.Reservation, error) {
	local := now.In(loc)
	today := local.Format(model.DateLayout)
	minute := local.Hour()*60 + local.Minute()

	var elapsed []model.Reservation
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Past days entirely, or today with the end boundary already passed.
		if err := tx.Where("status = ?", model.ReservationActive).
			Where("date < ? OR (date = ? AND end_minute <= ?)", today, today, minute).
			Find(&elapsed).Error; err != nil {
			return err
		}
		if len(elapsed) == 0 {
			return nil
		}
		ids := make([]int64, len(elapsed))
		for i := range elapsed {
			ids[i] = elapsed[i].ID
			elapsed[i].Status = model.ReservationCompleted
		}
		return tx.Model(&model.Reservation{}).Where("id IN ?", ids).
			Update("status", model.ReservationCompleted).Error
	})
	if err != nil {
		return nil, fmt.Errorf("complete elapsed reservations: %w", err)
	}
	return elapsed, nil
}
