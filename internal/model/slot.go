package model

import "time"

// SlotStatus is a slot's state. Available, Maintenance and Retired are the
// administrator-controlled static values stored in the catalog; Occupied is
// only ever produced by projection over the reservation ledger and is never
// written to the slots table.
type SlotStatus string

const (
	SlotAvailable   SlotStatus = "Available"
	SlotOccupied    SlotStatus = "Occupied"
	SlotMaintenance SlotStatus = "Maintenance"
	SlotRetired     SlotStatus = "Retired"
)

// Slot represents one parking slot in the static catalog.
type Slot struct {
	ID        int64      `gorm:"primaryKey" json:"id"`
	Label     string     `gorm:"uniqueIndex;size:64;not null" json:"label"`
	Zone      string     `gorm:"size:16" json:"zone"`
	Floor     int        `gorm:"index" json:"floor"`
	Category  string     `gorm:"size:32;index" json:"category"`
	Status    SlotStatus `gorm:"size:32;not null;default:Available" json:"status"`
	CreatedAt time.Time  `json:"-"`
	UpdatedAt time.Time  `json:"-"`
}
