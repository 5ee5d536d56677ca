// Package facade aggregates the backend services for the web front end.
// Every call is bounded by a timeout and folds downstream failure into a
// typed result: a broken backend degrades one feature (empty listing,
// unauthenticated caller) instead of cascading.
package facade

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

// Facade is the single aggregation point used by the gateway.
type Facade struct {
	authURL        string
	slotURL        string
	reservationURL string
	client         *http.Client
	timeout        time.Duration
}

// New creates a facade over the three backend base URLs.
func New(authURL, slotURL, reservationURL string, timeout time.Duration) *Facade {
	return &Facade{
		authURL:        authURL,
		slotURL:        slotURL,
		reservationURL: reservationURL,
		client:         &http.Client{Timeout: timeout},
		timeout:        timeout,
	}
}

// Identity is a verified caller as reported by the auth service.
type Identity struct {
	SubjectID int64  `json:"subject_id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
}

// LoginResult is the outcome of an Issue call.
type LoginResult struct {
	OK        bool   `json:"ok"`
	Token     string `json:"token"`
	SubjectID int64  `json:"subject_id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	Message   string `json:"message"`
}

// SlotView mirrors the slot service's projected listing entry.
type SlotView struct {
	ID       int64  `json:"id"`
	Label    string `json:"label"`
	Zone     string `json:"zone"`
	Floor    int    `json:"floor"`
	Category string `json:"category"`
	Status   string `json:"status"`
}

// ReservationView mirrors the reservation service's wire form.
type ReservationView struct {
	ID           int64  `json:"id"`
	SlotID       int64  `json:"slot_id"`
	HolderID     int64  `json:"holder_id"`
	VehiclePlate string `json:"vehicle_plate"`
	Category     string `json:"category"`
	Date         string `json:"date"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	Status       string `json:"status"`
}

// ConflictInfo identifies the reservation a rejected booking collided with.
type ConflictInfo struct {
	ID        int64  `json:"id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// BookResult is the typed outcome of a booking attempt. ErrorTag carries the
// taxonomy tag on rejection; Unavailable means the reservation service could
// not be reached (the attempt is never retried automatically).
type BookResult struct {
	OK          bool             `json:"ok"`
	Reservation *ReservationView `json:"reservation"`
	ErrorTag    string           `json:"error,omitempty"`
	Message     string           `json:"message"`
	Conflict    *ConflictInfo    `json:"conflicting_reservation,omitempty"`
}

// Login issues a token for the given credentials. Any transport failure is
// reported as a failed login, never an error.
func (f *Facade) Login(ctx context.Context, username, password string) LoginResult {
	var out LoginResult
	status, err := f.doJSON(ctx, http.MethodPost, f.authURL+"/api/auth/login", "",
		map[string]string{"username": username, "password": password}, &out)
	if err != nil {
		log.Printf("auth service unreachable for login: %v", err)
		return LoginResult{OK: false, Message: "authentication temporarily unavailable"}
	}
	if status != http.StatusOK {
		out.OK = false
	}
	return out
}

// Verify resolves a bearer token to an identity. Every failure mode,
// including an unreachable auth service, is treated as unauthenticated:
// the fail-safe default for the write path.
func (f *Facade) Verify(ctx context.Context, tokenStr string) (Identity, bool) {
	var out struct {
		OK bool `json:"ok"`
		Identity
	}
	status, err := f.doJSON(ctx, http.MethodPost, f.authURL+"/api/auth/verify", "",
		map[string]string{"token": tokenStr}, &out)
	if err != nil {
		log.Printf("auth service unreachable for verify: %v", err)
		return Identity{}, false
	}
	if status != http.StatusOK || !out.OK {
		return Identity{}, false
	}
	return out.Identity, true
}

// GetIdentity fetches account details for a subject.
func (f *Facade) GetIdentity(ctx context.Context, subjectID int64) (json.RawMessage, bool) {
	var out struct {
		OK      bool            `json:"ok"`
		Account json.RawMessage `json:"account"`
	}
	status, err := f.doJSON(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/auth/accounts/%d", f.authURL, subjectID), "", nil, &out)
	if err != nil || status != http.StatusOK || !out.OK {
		return nil, false
	}
	return out.Account, true
}

// ListAccounts fetches the account listing on behalf of a privileged caller.
func (f *Facade) ListAccounts(ctx context.Context, tokenStr string) (json.RawMessage, bool) {
	var out struct {
		OK       bool            `json:"ok"`
		Accounts json.RawMessage `json:"accounts"`
		Count    int             `json:"count"`
	}
	status, err := f.doJSON(ctx, http.MethodGet, f.authURL+"/api/auth/accounts", tokenStr, nil, &out)
	if err != nil || status != http.StatusOK || !out.OK {
		return nil, false
	}
	return out.Accounts, true
}

// ListSlots returns the projected slot listing. On failure it degrades to an
// empty listing with degraded=true rather than failing the caller's page.
func (f *Facade) ListSlots(ctx context.Context, category, floor string) (slots []SlotView, degraded bool) {
	endpoint := f.slotURL + "/api/slots"
	if q := encodeQuery(map[string]string{"category": category, "floor": floor}); q != "" {
		endpoint += "?" + q
	}

	var out struct {
		Slots []SlotView `json:"slots"`
	}
	status, err := f.doJSON(ctx, http.MethodGet, endpoint, "", nil, &out)
	if err != nil || status != http.StatusOK {
		log.Printf("slot service unavailable, degrading to empty listing: status=%d err=%v", status, err)
		return []SlotView{}, true
	}
	return out.Slots, false
}

// Book submits a booking attempt. Transport failure maps to an Unavailable
// result; write calls are never retried to avoid duplicate admissions.
func (f *Facade) Book(ctx context.Context, tokenStr string, payload map[string]any) BookResult {
	var out BookResult
	status, err := f.doJSON(ctx, http.MethodPost, f.reservationURL+"/api/reservations", tokenStr, payload, &out)
	if err != nil {
		log.Printf("reservation service unreachable for booking: %v", err)
		return BookResult{OK: false, ErrorTag: "Unavailable", Message: "booking temporarily unavailable"}
	}
	if status != http.StatusCreated {
		out.OK = false
	}
	return out
}

// ListReservations returns the reservation listing, degrading to empty on
// failure (idempotent read, safe to retry upstream if the caller refreshes).
func (f *Facade) ListReservations(ctx context.Context, date, category, floor string) (reservations []ReservationView, degraded bool) {
	endpoint := f.reservationURL + "/api/reservations"
	if q := encodeQuery(map[string]string{"date": date, "category": category, "floor": floor}); q != "" {
		endpoint += "?" + q
	}

	var out struct {
		Reservations []ReservationView `json:"reservations"`
	}
	status, err := f.doJSON(ctx, http.MethodGet, endpoint, "", nil, &out)
	if err != nil || status != http.StatusOK {
		log.Printf("reservation service unavailable, degrading to empty listing: status=%d err=%v", status, err)
		return []ReservationView{}, true
	}
	return out.Reservations, false
}

// LatestReservation returns a holder's most recent reservation, or ok=false
// when there is none or the service is unreachable.
func (f *Facade) LatestReservation(ctx context.Context, holderID int64) (*ReservationView, bool) {
	var out struct {
		OK          bool             `json:"ok"`
		Reservation *ReservationView `json:"reservation"`
	}
	endpoint := fmt.Sprintf("%s/api/reservations/latest?holder_id=%d", f.reservationURL, holderID)
	status, err := f.doJSON(ctx, http.MethodGet, endpoint, "", nil, &out)
	if err != nil || status != http.StatusOK || !out.OK {
		return nil, false
	}
	return out.Reservation, true
}

// CancelReservation cancels a reservation on behalf of the token's holder.
func (f *Facade) CancelReservation(ctx context.Context, tokenStr string, id int64) BookResult {
	var out BookResult
	endpoint := fmt.Sprintf("%s/api/reservations/%d/cancel", f.reservationURL, id)
	status, err := f.doJSON(ctx, http.MethodPost, endpoint, tokenStr, struct{}{}, &out)
	if err != nil {
		return BookResult{OK: false, ErrorTag: "Unavailable", Message: "cancellation temporarily unavailable"}
	}
	if status != http.StatusOK {
		out.OK = false
	}
	return out
}

// doJSON performs one bounded request/response cycle. The context carries
// caller cancellation; the deadline is the shorter of the caller's and the
// facade's own.
func (f *Facade) doJSON(ctx context.Context, method, endpoint, bearer string, body, out any) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("call %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return resp.StatusCode, fmt.Errorf("decode response from %s: %w", endpoint, err)
		}
	}
	return resp.StatusCode, nil
}

// encodeQuery builds a query string from the non-empty parameters.
func encodeQuery(params map[string]string) string {
	values := url.Values{}
	for k, v := range params {
		if v != "" {
			values.Set(k, v)
		}
	}
	return values.Encode()
}
