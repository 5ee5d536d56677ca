package projection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"parking-reservation-backend/internal/model"
	"parking-reservation-backend/internal/store"
)

func setupProjector(t *testing.T) (*Projector, store.Ledger, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.Slot{}, &model.Reservation{}))

	ledger := store.NewLedger(db)
	slots := store.NewSlotStore(db)
	return New(slots, ledger, time.UTC), ledger, db
}

func reserve(t *testing.T, ledger store.Ledger, slotID int64, date string, start, end int) {
	require.NoError(t, ledger.Insert(context.Background(), &model.Reservation{
		SlotID: slotID, HolderID: 1, Date: date, StartMinute: start, EndMinute: end,
	}))
}

func at(date string, hour, minute int) func() time.Time {
	d, _ := time.Parse(model.DateLayout, date)
	return func() time.Time {
		return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, time.UTC)
	}
}

func TestProjectOccupancy(t *testing.T) {
	projector, ledger, db := setupProjector(t)
	ctx := context.Background()

	slot := model.Slot{Label: "B2-07", Zone: "B", Floor: 2, Status: model.SlotAvailable}
	require.NoError(t, db.Create(&slot).Error)

	// Reservation covers [09:00, 10:00) today.
	reserve(t, ledger, slot.ID, "2025-07-01", 9*60, 10*60)

	testCases := []struct {
		name     string
		now      func() time.Time
		expected model.SlotStatus
	}{
		{name: "Inside the interval", now: at("2025-07-01", 9, 30), expected: model.SlotOccupied},
		{name: "At the start boundary", now: at("2025-07-01", 9, 0), expected: model.SlotOccupied},
		{name: "At the end boundary", now: at("2025-07-01", 10, 0), expected: model.SlotAvailable},
		{name: "After the interval", now: at("2025-07-01", 10, 30), expected: model.SlotAvailable},
		{name: "Before the interval", now: at("2025-07-01", 8, 0), expected: model.SlotAvailable},
		{name: "Different date", now: at("2025-07-02", 9, 30), expected: model.SlotAvailable},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			projector.now = tc.now
			views, err := projector.Project(ctx, store.SlotFilter{})
			require.NoError(t, err)
			require.Len(t, views, 1)
			assert.Equal(t, tc.expected, views[0].ProjectedStatus)
		})
	}
}

func TestProjectStaticStatusWins(t *testing.T) {
	projector, ledger, db := setupProjector(t)
	ctx := context.Background()

	maintenance := model.Slot{Label: "B2-07", Status: model.SlotMaintenance}
	retired := model.Slot{Label: "B2-08", Status: model.SlotRetired}
	require.NoError(t, db.Create(&maintenance).Error)
	require.NoError(t, db.Create(&retired).Error)

	// Even with a covering reservation, non-Available statuses are reported
	// unchanged.
	reserve(t, ledger, maintenance.ID, "2025-07-01", 0, 1440)
	reserve(t, ledger, retired.ID, "2025-07-01", 0, 1440)

	projector.now = at("2025-07-01", 12, 0)
	views, err := projector.Project(ctx, store.SlotFilter{})
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, model.SlotMaintenance, views[0].ProjectedStatus)
	assert.Equal(t, model.SlotRetired, views[1].ProjectedStatus)
}

func TestProjectIgnoresCancelledReservations(t *testing.T) {
	projector, ledger, db := setupProjector(t)
	ctx := context.Background()

	slot := model.Slot{Label: "B2-07", Status: model.SlotAvailable}
	require.NoError(t, db.Create(&slot).Error)

	r := model.Reservation{SlotID: slot.ID, HolderID: 1, Date: "2025-07-01", StartMinute: 0, EndMinute: 1440}
	require.NoError(t, ledger.Insert(ctx, &r))
	_, err := ledger.Cancel(ctx, r.ID)
	require.NoError(t, err)

	projector.now = at("2025-07-01", 12, 0)
	views, err := projector.Project(ctx, store.SlotFilter{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, model.SlotAvailable, views[0].ProjectedStatus)
}

// failingLedger simulates a ledger whose occupancy query is unavailable.
type failingLedger struct {
	store.Ledger
}

func (failingLedger) ActiveSlotIDs(ctx context.Context, date string, minute int) (map[int64]struct{}, error) {
	return nil, errors.New("ledger unavailable")
}

func TestProjectDegradesToStaticStatuses(t *testing.T) {
	projector, ledger, db := setupProjector(t)
	ctx := context.Background()

	slot := model.Slot{Label: "B2-07", Status: model.SlotAvailable}
	require.NoError(t, db.Create(&slot).Error)
	reserve(t, ledger, slot.ID, "2025-07-01", 0, 1440)

	projector.ledger = failingLedger{}
	projector.now = at("2025-07-01", 12, 0)

	views, err := projector.Project(ctx, store.SlotFilter{})
	require.NoError(t, err, "a failing occupancy query must not fail the listing")
	require.Len(t, views, 1)
	assert.Equal(t, model.SlotAvailable, views[0].ProjectedStatus)
}
