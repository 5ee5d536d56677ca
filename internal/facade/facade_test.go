package facade

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonHandler(status int, body any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}
}

// downServer is a base URL nothing listens on.
const downServer = "http://127.0.0.1:1"

func TestVerify(t *testing.T) {
	auth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req["token"] == "good-token" {
			jsonHandler(http.StatusOK, map[string]any{
				"ok": true, "subject_id": 7, "username": "alice", "role": "patron",
			})(w, r)
			return
		}
		jsonHandler(http.StatusUnauthorized, map[string]any{"ok": false})(w, r)
	}))
	defer auth.Close()

	f := New(auth.URL, downServer, downServer, time.Second)

	identity, ok := f.Verify(context.Background(), "good-token")
	require.True(t, ok)
	assert.Equal(t, int64(7), identity.SubjectID)
	assert.Equal(t, "alice", identity.Username)
	assert.Equal(t, "patron", identity.Role)

	_, ok = f.Verify(context.Background(), "bad-token")
	assert.False(t, ok)
}

func TestVerifyTreatsUnreachableAuthAsUnauthenticated(t *testing.T) {
	f := New(downServer, downServer, downServer, 200*time.Millisecond)

	_, ok := f.Verify(context.Background(), "any-token")
	assert.False(t, ok, "an unreachable auth service must never authenticate anyone")
}

func TestLoginUnavailable(t *testing.T) {
	f := New(downServer, downServer, downServer, 200*time.Millisecond)

	result := f.Login(context.Background(), "alice", "hunter2")
	assert.False(t, result.OK)
	assert.Empty(t, result.Token)
}

func TestListSlotsDegradesOnFailure(t *testing.T) {
	f := New(downServer, downServer, downServer, 200*time.Millisecond)

	slots, degraded := f.ListSlots(context.Background(), "", "")
	assert.True(t, degraded)
	assert.Empty(t, slots)
	assert.NotNil(t, slots, "degraded listing is empty, not nil")
}

func TestListSlotsForwardsFilters(t *testing.T) {
	var gotQuery string
	slotSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		jsonHandler(http.StatusOK, map[string]any{
			"slots": []SlotView{{ID: 1, Label: "B2-07", Status: "Available"}},
		})(w, r)
	}))
	defer slotSrv.Close()

	f := New(downServer, slotSrv.URL, downServer, time.Second)

	slots, degraded := f.ListSlots(context.Background(), "ev", "2")
	assert.False(t, degraded)
	require.Len(t, slots, 1)
	assert.Equal(t, "B2-07", slots[0].Label)
	assert.Contains(t, gotQuery, "category=ev")
	assert.Contains(t, gotQuery, "floor=2")
}

func TestBookPassesThroughConflict(t *testing.T) {
	resvSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		jsonHandler(http.StatusConflict, map[string]any{
			"ok":      false,
			"error":   "Conflict",
			"message": "interval overlaps reservation 5",
			"conflicting_reservation": map[string]any{
				"id": 5, "start_time": "09:00", "end_time": "10:00",
			},
		})(w, r)
	}))
	defer resvSrv.Close()

	f := New(downServer, downServer, resvSrv.URL, time.Second)

	result := f.Book(context.Background(), "tok", map[string]any{"slot_id": 3})
	assert.False(t, result.OK)
	assert.Equal(t, "Conflict", result.ErrorTag)
	require.NotNil(t, result.Conflict)
	assert.Equal(t, int64(5), result.Conflict.ID)
	assert.Equal(t, "09:00", result.Conflict.StartTime)
}

func TestBookUnavailable(t *testing.T) {
	f := New(downServer, downServer, downServer, 200*time.Millisecond)

	result := f.Book(context.Background(), "tok", map[string]any{"slot_id": 3})
	assert.False(t, result.OK)
	assert.Equal(t, "Unavailable", result.ErrorTag)
}

func TestLatestReservation(t *testing.T) {
	resvSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "holder_id=7", r.URL.RawQuery)
		jsonHandler(http.StatusOK, map[string]any{
			"ok": true,
			"reservation": ReservationView{
				ID: 11, SlotID: 3, HolderID: 7, Date: "2025-07-01",
				StartTime: "09:00", EndTime: "10:00", Status: "Active",
			},
		})(w, r)
	}))
	defer resvSrv.Close()

	f := New(downServer, downServer, resvSrv.URL, time.Second)

	reservation, ok := f.LatestReservation(context.Background(), 7)
	require.True(t, ok)
	assert.Equal(t, int64(11), reservation.ID)
	assert.Equal(t, "09:00", reservation.StartTime)
}
