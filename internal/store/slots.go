package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"parking-reservation-backend/internal/model"
)

// SlotFilter narrows a slot listing. Zero values mean "no filter".
type SlotFilter struct {
	Category string
	Floor    *int
}

// SlotStore is the static slot catalog.
type SlotStore interface {
	ByID(ctx context.Context, id int64) (*model.Slot, error)
	List(ctx context.Context, filter SlotFilter) ([]model.Slot, error)
	Create(ctx context.Context, s *model.Slot) error
	UpdateStatus(ctx context.Context, id int64, status model.SlotStatus) error
}

type gormSlots struct {
	db *gorm.DB
}

// NewSlotStore creates a GORM-backed slot store.
func NewSlotStore(db *gorm.DB) SlotStore {
	return &gormSlots{db: db}
}

func (s *gormSlots) ByID(ctx context.Context, id int64) (*model.Slot, error) {
	var slot model.Slot
	err := s.db.WithContext(ctx).First(&slot, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("slot lookup: %w", err)
	}
	return &slot, nil
}

func (s *gormSlots) List(ctx context.Context, filter SlotFilter) ([]model.Slot, error) {
	q := s.db.WithContext(ctx).Model(&model.Slot{})
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Floor != nil {
		q = q.Where("floor = ?", *filter.Floor)
	}

	var slots []model.Slot
	if err := q.Order("floor, label").Find(&slots).Error; err != nil {
		return nil, fmt.Errorf("slot list: %w", err)
	}
	return slots, nil
}

func (s *gormSlots) Create(ctx context.Context, slot *model.Slot) error {
	if err := s.db.WithContext(ctx).Create(slot).Error; err != nil {
		return fmt.Errorf("slot create: %w", err)
	}
	return nil
}

func (s *gormSlots) UpdateStatus(ctx context.Context, id int64, status model.SlotStatus) error {
	res := s.db.WithContext(ctx).Model(&model.Slot{}).Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("slot status update: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
