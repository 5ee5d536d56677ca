package model

import (
	"fmt"
	"time"
)

// ReservationStatus is the lifecycle state of a reservation. Transitions are
// monotonic: Active moves to Completed (time elapses) or Cancelled (explicit
// action), both terminal.
type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "Active"
	ReservationCancelled ReservationStatus = "Cancelled"
	ReservationCompleted ReservationStatus = "Completed"
)

// Reservation is one entry in the reservation ledger. Date plus
// [StartMinute, EndMinute) define a half-open interval on a single calendar
// day; times are stored as minutes since midnight so overlap checks are plain
// integer comparisons.
type Reservation struct {
	ID           int64             `gorm:"primaryKey" json:"id"`
	SlotID       int64             `gorm:"index;not null" json:"slot_id"`
	HolderID     int64             `gorm:"index;not null" json:"holder_id"`
	VehiclePlate string            `gorm:"size:32" json:"vehicle_plate"`
	Category     string            `gorm:"size:32;index" json:"category"`
	Date         string            `gorm:"size:10;index;not null" json:"date"`
	StartMinute  int               `gorm:"not null" json:"-"`
	EndMinute    int               `gorm:"not null" json:"-"`
	Status       ReservationStatus `gorm:"size:16;index;not null" json:"status"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"-"`
}

// DateLayout is the calendar-day format used throughout the ledger.
const DateLayout = "2006-01-02"

// minutesPerDay bounds a reservation to a single calendar day.
const minutesPerDay = 24 * 60

// ParseClock converts "HH:MM" to minutes since midnight.
func ParseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock value %q: %w", s, err)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || h*60+m > minutesPerDay {
		return 0, fmt.Errorf("clock value %q out of range", s)
	}
	return h*60 + m, nil
}

// FormatClock converts minutes since midnight back to "HH:MM".
func FormatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// ParseDate validates a calendar day string.
func ParseDate(s string) (string, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t.Format(DateLayout), nil
}

// StartTime and EndTime render the interval bounds for API responses.
func (r *Reservation) StartTime() string { return FormatClock(r.StartMinute) }
func (r *Reservation) EndTime() string   { return FormatClock(r.EndMinute) }
