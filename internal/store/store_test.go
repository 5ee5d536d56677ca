package store

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"parking-reservation-backend/internal/model"
)

// A helper function to create a mock database connection.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestAccountsByUsername(t *testing.T) {
	db, mock := newMockDB(t)
	accounts := NewAccountStore(db)

	rows := sqlmock.NewRows([]string{"id", "username", "password_hash", "role"}).
		AddRow(1, "alice", "$2a$10$hash", "patron")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "accounts" WHERE username = $1`)).
		WillReturnRows(rows)

	a, err := accounts.ByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, model.RolePatron, a.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountsByUsernameNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	accounts := NewAccountStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "accounts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := accounts.ByUsername(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLedgerFindOverlappingQueryShape(t *testing.T) {
	db, mock := newMockDB(t)
	ledger := NewLedger(db)

	rows := sqlmock.NewRows([]string{"id", "slot_id", "holder_id", "date", "start_minute", "end_minute", "status"}).
		AddRow(5, 3, 1, "2025-07-01", 540, 600, "Active")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "reservations"`)).
		WithArgs(int64(3), "2025-07-01", "Active", 630, 570).
		WillReturnRows(rows)

	// Probe [09:30, 10:30) against a stored [09:00, 10:00).
	out, err := ledger.FindOverlapping(context.Background(), 3, "2025-07-01", 570, 630)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(5), out[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotsUpdateStatusNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	slots := NewSlotStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "slots"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := slots.UpdateStatus(context.Background(), 999, model.SlotMaintenance)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOverlaps(t *testing.T) {
	testCases := []struct {
		name           string
		s1, e1, s2, e2 int
		expected       bool
	}{
		{name: "Identical", s1: 540, e1: 600, s2: 540, e2: 600, expected: true},
		{name: "Contained", s1: 540, e1: 600, s2: 555, e2: 585, expected: true},
		{name: "Partial overlap", s1: 540, e1: 600, s2: 570, e2: 630, expected: true},
		{name: "Adjacent", s1: 540, e1: 600, s2: 600, e2: 660, expected: false},
		{name: "Adjacent reversed", s1: 600, e1: 660, s2: 540, e2: 600, expected: false},
		{name: "Disjoint", s1: 540, e1: 600, s2: 700, e2: 760, expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Overlaps(tc.s1, tc.e1, tc.s2, tc.e2))
		})
	}
}
