package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"parking-reservation-backend/internal/model"
	"parking-reservation-backend/internal/store"
	"parking-reservation-backend/internal/token"
)

// AuthHandler serves the identity service endpoints.
type AuthHandler struct {
	issuer   *token.Issuer
	verifier *token.Verifier
	accounts store.AccountStore
}

// NewAuthHandler creates the identity service handler set.
func NewAuthHandler(issuer *token.Issuer, verifier *token.Verifier, accounts store.AccountStore) *AuthHandler {
	return &AuthHandler{issuer: issuer, verifier: verifier, accounts: accounts}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": err.Error()})
		return
	}

	signed, identity, err := h.issuer.Issue(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"token":      signed,
		"subject_id": identity.ID,
		"username":   identity.Username,
		"role":       identity.Role,
		"message":    "login successful",
	})
}

type verifyRequest struct {
	Token string `json:"token" binding:"required"`
}

// Verify handles POST /api/auth/verify.
func (h *AuthHandler) Verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": err.Error()})
		return
	}

	identity, err := h.verifier.Verify(c.Request.Context(), req.Token)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"subject_id": identity.ID,
		"username":   identity.Username,
		"role":       identity.Role,
	})
}

// GetAccount handles GET /api/auth/accounts/:id.
func (h *AuthHandler) GetAccount(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "invalid account id"})
		return
	}

	account, err := h.accounts.ByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "account": account})
}

// ListAccounts handles GET /api/auth/accounts. Staff/admin only.
func (h *AuthHandler) ListAccounts(c *gin.Context) {
	if _, ok := h.requireRole(c, model.RoleStaff, model.RoleAdmin); !ok {
		return
	}

	accounts, err := h.accounts.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "accounts": accounts, "count": len(accounts)})
}

type createAccountRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

// CreateAccount handles POST /api/auth/accounts, the administrative
// provisioning step. Admin only.
func (h *AuthHandler) CreateAccount(c *gin.Context) {
	if _, ok := h.requireRole(c, model.RoleAdmin); !ok {
		return
	}

	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": err.Error()})
		return
	}
	if !model.ValidRole(model.Role(req.Role)) {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "unknown role"})
		return
	}

	hash, err := token.HashPassword(req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	account := &model.Account{
		Username:     req.Username,
		PasswordHash: hash,
		Role:         model.Role(req.Role),
	}
	if err := h.accounts.Create(c.Request.Context(), account); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "account": account})
}

// requireRole verifies the bearer token on the request and checks the
// resolved identity's current role against the allowed set.
func (h *AuthHandler) requireRole(c *gin.Context, roles ...model.Role) (*token.Identity, bool) {
	identity, err := h.verifier.Verify(c.Request.Context(), bearerToken(c))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	for _, r := range roles {
		if identity.Role == r {
			return identity, true
		}
	}
	c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": TagUnauthorized, "message": "insufficient role"})
	return nil, false
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(c *gin.Context) string {
	return strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
}
