// Package gateway exposes the public HTTP surface of the fleet. It owns no
// domain state: every request is authenticated and served through the facade,
// which talks to the backend services.
package gateway

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"parking-reservation-backend/internal/facade"
	"parking-reservation-backend/internal/mw"
)

const sessionCookie = "session_token"

// Handler serves the gateway routes.
type Handler struct {
	facade *facade.Facade
}

// NewHandler creates a gateway handler over the given facade.
func NewHandler(f *facade.Facade) *Handler {
	return &Handler{facade: f}
}

// NewRouter builds the gateway's gin engine.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.Default()
	r.Use(mw.RequestID())

	r.POST("/api/login", h.Login)
	r.POST("/api/logout", h.Logout)
	r.GET("/api/slots", h.ListSlots)

	authed := r.Group("/", h.Authenticate)
	{
		authed.GET("/api/me", h.Me)
		authed.POST("/api/reservations", h.Book)
		authed.GET("/api/reservations", h.ListReservations)
		authed.GET("/api/reservations/latest", h.LatestReservation)
		authed.POST("/api/reservations/:id/cancel", h.CancelReservation)
		authed.GET("/api/accounts", h.ListAccounts)
	}

	return r
}

// Authenticate resolves the caller's token (session cookie or bearer header)
// through the auth service. Anything short of a positive verification is
// rejected as unauthenticated.
func (h *Handler) Authenticate(c *gin.Context) {
	tokenStr := h.callerToken(c)
	if tokenStr == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"ok": false, "error": "Unauthenticated", "message": "login required",
		})
		return
	}

	identity, ok := h.facade.Verify(c.Request.Context(), tokenStr)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"ok": false, "error": "Unauthenticated", "message": "session expired or invalid",
		})
		return
	}

	c.Set("identity", identity)
	c.Set("token", tokenStr)
	c.Next()
}

// Login authenticates the caller and establishes a session cookie. The token
// is also returned in the body for clients that prefer bearer headers.
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "username and password are required"})
		return
	}

	result := h.facade.Login(c.Request.Context(), req.Username, req.Password)
	if !result.OK {
		status := http.StatusUnauthorized
		if result.Message == "authentication temporarily unavailable" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"ok": false, "message": result.Message})
		return
	}

	c.SetCookie(sessionCookie, result.Token, int((24 * time.Hour).Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"token":      result.Token,
		"subject_id": result.SubjectID,
		"username":   result.Username,
		"role":       result.Role,
	})
}

// Logout clears the session cookie. The token itself stays valid until it
// expires; sessions are stateless.
func (h *Handler) Logout(c *gin.Context) {
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Me returns the verified identity of the current session, with the full
// account record when the auth service can supply it.
func (h *Handler) Me(c *gin.Context) {
	identity := c.MustGet("identity").(facade.Identity)
	resp := gin.H{
		"ok":         true,
		"subject_id": identity.SubjectID,
		"username":   identity.Username,
		"role":       identity.Role,
	}
	if account, ok := h.facade.GetIdentity(c.Request.Context(), identity.SubjectID); ok {
		resp["account"] = account
	}
	c.JSON(http.StatusOK, resp)
}

// ListSlots returns the projected slot listing. This route is public; a
// degraded backend yields an empty listing flagged as degraded.
func (h *Handler) ListSlots(c *gin.Context) {
	slots, degraded := h.facade.ListSlots(c.Request.Context(), c.Query("category"), c.Query("floor"))
	c.JSON(http.StatusOK, gin.H{"slots": slots, "count": len(slots), "degraded": degraded})
}

// Book forwards a booking attempt to the reservation service and translates
// its typed result onto the gateway response.
func (h *Handler) Book(c *gin.Context) {
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "InvalidInterval", "message": "malformed booking request"})
		return
	}

	result := h.facade.Book(c.Request.Context(), c.MustGet("token").(string), payload)
	if result.OK {
		c.JSON(http.StatusCreated, result)
		return
	}
	c.JSON(bookStatus(result), result)
}

// ListReservations returns the reservation listing for the given filters.
func (h *Handler) ListReservations(c *gin.Context) {
	reservations, degraded := h.facade.ListReservations(c.Request.Context(),
		c.Query("date"), c.Query("category"), c.Query("floor"))
	c.JSON(http.StatusOK, gin.H{"reservations": reservations, "count": len(reservations), "degraded": degraded})
}

// LatestReservation returns the caller's most recent reservation.
func (h *Handler) LatestReservation(c *gin.Context) {
	identity := c.MustGet("identity").(facade.Identity)
	reservation, ok := h.facade.LatestReservation(c.Request.Context(), identity.SubjectID)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"ok": false, "reservation": nil, "message": "no reservations found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "reservation": reservation})
}

// CancelReservation cancels one of the caller's reservations.
func (h *Handler) CancelReservation(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "NotFound", "message": "invalid reservation id"})
		return
	}

	result := h.facade.CancelReservation(c.Request.Context(), c.MustGet("token").(string), id)
	c.JSON(bookStatus(result), result)
}

// ListAccounts returns the account listing for staff and admin callers. The
// auth service enforces the role; the gateway only relays the answer.
func (h *Handler) ListAccounts(c *gin.Context) {
	accounts, ok := h.facade.ListAccounts(c.Request.Context(), c.MustGet("token").(string))
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "Unauthorized", "message": "account listing not permitted"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "accounts": accounts})
}

// callerToken extracts the session token from the cookie, falling back to a
// bearer header.
func (h *Handler) callerToken(c *gin.Context) string {
	if cookie, err := c.Cookie(sessionCookie); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	if len(header) > 7 && header[:7] == "Bearer " {
		return header[7:]
	}
	return ""
}

// bookStatus maps a facade result's taxonomy tag onto an HTTP status.
func bookStatus(result facade.BookResult) int {
	if result.OK {
		return http.StatusOK
	}
	switch result.ErrorTag {
	case "Unauthenticated":
		return http.StatusUnauthorized
	case "Unauthorized":
		return http.StatusForbidden
	case "InvalidInterval":
		return http.StatusBadRequest
	case "SlotUnavailable":
		return http.StatusUnprocessableEntity
	case "Conflict":
		return http.StatusConflict
	case "NotFound":
		return http.StatusNotFound
	case "Unavailable":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
