package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"parking-reservation-backend/internal/model"
	"parking-reservation-backend/internal/store"
	"parking-reservation-backend/internal/token"
)

const testSecret = "test-signing-secret"

func setupAuthRouter(t *testing.T) (*gin.Engine, store.AccountStore) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&model.Account{}))

	accounts := store.NewAccountStore(db)
	issuer := token.NewIssuer(accounts, testSecret, time.Hour)
	verifier := token.NewVerifier(accounts, testSecret)
	handler := NewAuthHandler(issuer, verifier, accounts)

	r := gin.New()
	r.POST("/api/auth/login", handler.Login)
	r.POST("/api/auth/verify", handler.Verify)
	r.GET("/api/auth/accounts", handler.ListAccounts)
	r.POST("/api/auth/accounts", handler.CreateAccount)
	return r, accounts
}

func seedAccount(t *testing.T, accounts store.AccountStore, username, password string, role model.Role) *model.Account {
	hash, err := token.HashPassword(password)
	require.NoError(t, err)
	a := &model.Account{Username: username, PasswordHash: hash, Role: role}
	require.NoError(t, accounts.Create(context.Background(), a))
	return a
}

func newJSONRequest(method, path string, body any) *http.Request {
	encoded, _ := json.Marshal(body)
	req, _ := http.NewRequest(method, path, bytes.NewReader(encoded))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func postJSON(router *gin.Engine, path, bearer string, body any) *httptest.ResponseRecorder {
	req := newJSONRequest(http.MethodPost, path, body)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestLoginEndpoint(t *testing.T) {
	router, accounts := setupAuthRouter(t)
	seedAccount(t, accounts, "alice", "hunter2", model.RolePatron)

	w := postJSON(router, "/api/auth/login", "", gin.H{"username": "alice", "password": "hunter2"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["ok"])
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, "patron", body["role"])

	w = postJSON(router, "/api/auth/login", "", gin.H{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	body = decodeBody(t, w)
	assert.Equal(t, TagUnauthenticated, body["error"])

	// Unknown user gets the same response shape as a wrong password.
	w = postJSON(router, "/api/auth/login", "", gin.H{"username": "nobody", "password": "hunter2"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = postJSON(router, "/api/auth/login", "", gin.H{"username": "alice"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifyEndpoint(t *testing.T) {
	router, accounts := setupAuthRouter(t)
	seedAccount(t, accounts, "alice", "hunter2", model.RolePatron)

	w := postJSON(router, "/api/auth/login", "", gin.H{"username": "alice", "password": "hunter2"})
	require.Equal(t, http.StatusOK, w.Code)
	tokenStr := decodeBody(t, w)["token"].(string)

	w = postJSON(router, "/api/auth/verify", "", gin.H{"token": tokenStr})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "alice", body["username"])

	w = postJSON(router, "/api/auth/verify", "", gin.H{"token": "garbage"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, TagUnauthenticated, decodeBody(t, w)["error"])
}

func TestAccountEndpointsRequireRole(t *testing.T) {
	router, accounts := setupAuthRouter(t)
	seedAccount(t, accounts, "alice", "hunter2", model.RolePatron)
	seedAccount(t, accounts, "root", "changeme", model.RoleAdmin)

	login := func(username, password string) string {
		w := postJSON(router, "/api/auth/login", "", gin.H{"username": username, "password": password})
		require.Equal(t, http.StatusOK, w.Code)
		return decodeBody(t, w)["token"].(string)
	}
	patronToken := login("alice", "hunter2")
	adminToken := login("root", "changeme")

	// Listing is staff/admin only.
	req, _ := http.NewRequest(http.MethodGet, "/api/auth/accounts", nil)
	req.Header.Set("Authorization", "Bearer "+patronToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req, _ = http.NewRequest(http.MethodGet, "/api/auth/accounts", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(2), body["count"])

	// Provisioning is admin only.
	w = postJSON(router, "/api/auth/accounts", patronToken, gin.H{
		"username": "mallory", "password": "pw", "role": "admin",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = postJSON(router, "/api/auth/accounts", adminToken, gin.H{
		"username": "bob", "password": "secret", "role": "staff",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(router, "/api/auth/accounts", adminToken, gin.H{
		"username": "carol", "password": "secret", "role": "superuser",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
