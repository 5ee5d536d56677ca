package token

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"parking-reservation-backend/internal/model"
	"parking-reservation-backend/internal/store"
)

const testSecret = "test-signing-secret"

func setupAccounts(t *testing.T) (store.AccountStore, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.Account{}))
	return store.NewAccountStore(db), db
}

func seedAccount(t *testing.T, accounts store.AccountStore, username, password string, role model.Role) *model.Account {
	hash, err := HashPassword(password)
	require.NoError(t, err)
	a := &model.Account{Username: username, PasswordHash: hash, Role: role}
	require.NoError(t, accounts.Create(context.Background(), a))
	return a
}

func TestIssueAndVerify(t *testing.T) {
	accounts, _ := setupAccounts(t)
	seedAccount(t, accounts, "alice", "hunter2", model.RolePatron)

	issuer := NewIssuer(accounts, testSecret, time.Hour)
	verifier := NewVerifier(accounts, testSecret)
	ctx := context.Background()

	tokenStr, identity, err := issuer.Issue(ctx, "alice", "hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, tokenStr)
	assert.Equal(t, "alice", identity.Username)
	assert.Equal(t, model.RolePatron, identity.Role)

	verified, err := verifier.Verify(ctx, tokenStr)
	require.NoError(t, err)
	assert.Equal(t, identity.ID, verified.ID)
	assert.Equal(t, "alice", verified.Username)
	assert.Equal(t, model.RolePatron, verified.Role)
}

func TestIssueRejectsBadCredentials(t *testing.T) {
	accounts, _ := setupAccounts(t)
	seedAccount(t, accounts, "alice", "hunter2", model.RolePatron)

	issuer := NewIssuer(accounts, testSecret, time.Hour)
	ctx := context.Background()

	_, _, err := issuer.Issue(ctx, "alice", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Unknown usernames surface the exact same error as a wrong password.
	_, _, err = issuer.Issue(ctx, "nobody", "hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestIssueAcceptsLegacyPlaintextCredential(t *testing.T) {
	accounts, _ := setupAccounts(t)
	a := &model.Account{Username: "legacy", PasswordHash: "oldpassword", Role: model.RolePatron}
	require.NoError(t, accounts.Create(context.Background(), a))

	issuer := NewIssuer(accounts, testSecret, time.Hour)
	tokenStr, identity, err := issuer.Issue(context.Background(), "legacy", "oldpassword")
	require.NoError(t, err)
	assert.NotEmpty(t, tokenStr)
	assert.Equal(t, "legacy", identity.Username)

	_, _, err = issuer.Issue(context.Background(), "legacy", "otherpassword")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	accounts, _ := setupAccounts(t)
	seedAccount(t, accounts, "alice", "hunter2", model.RolePatron)

	issuer := NewIssuer(accounts, testSecret, time.Hour)
	verifier := NewVerifier(accounts, testSecret)
	ctx := context.Background()

	tokenStr, _, err := issuer.Issue(ctx, "alice", "hunter2")
	require.NoError(t, err)

	// Flip a character in the signature segment.
	tampered := tokenStr[:len(tokenStr)-2] + "xx"
	_, err = verifier.Verify(ctx, tampered)
	assert.ErrorIs(t, err, ErrBadToken)

	_, err = verifier.Verify(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrBadToken)

	// A token signed under a different secret must not verify.
	otherIssuer := NewIssuer(accounts, "other-secret", time.Hour)
	foreign, _, err := otherIssuer.Issue(ctx, "alice", "hunter2")
	require.NoError(t, err)
	_, err = verifier.Verify(ctx, foreign)
	assert.ErrorIs(t, err, ErrBadToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	accounts, _ := setupAccounts(t)
	seedAccount(t, accounts, "alice", "hunter2", model.RolePatron)

	issuer := NewIssuer(accounts, testSecret, -time.Minute)
	verifier := NewVerifier(accounts, testSecret)
	ctx := context.Background()

	tokenStr, _, err := issuer.Issue(ctx, "alice", "hunter2")
	require.NoError(t, err)

	_, err = verifier.Verify(ctx, tokenStr)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyReturnsCurrentRole(t *testing.T) {
	accounts, _ := setupAccounts(t)
	a := seedAccount(t, accounts, "alice", "hunter2", model.RolePatron)

	issuer := NewIssuer(accounts, testSecret, time.Hour)
	verifier := NewVerifier(accounts, testSecret)
	ctx := context.Background()

	tokenStr, _, err := issuer.Issue(ctx, "alice", "hunter2")
	require.NoError(t, err)

	// Promote the account after the token was minted. The token payload
	// still says patron, but verification resolves the live role.
	require.NoError(t, accounts.UpdateRole(ctx, a.ID, model.RoleStaff))

	verified, err := verifier.Verify(ctx, tokenStr)
	require.NoError(t, err)
	assert.Equal(t, model.RoleStaff, verified.Role)
}

func TestVerifyRejectsDeletedSubject(t *testing.T) {
	accounts, db := setupAccounts(t)
	a := seedAccount(t, accounts, "alice", "hunter2", model.RolePatron)

	issuer := NewIssuer(accounts, testSecret, time.Hour)
	verifier := NewVerifier(accounts, testSecret)
	ctx := context.Background()

	tokenStr, _, err := issuer.Issue(ctx, "alice", "hunter2")
	require.NoError(t, err)

	require.NoError(t, db.Delete(&model.Account{}, a.ID).Error)

	_, err = verifier.Verify(ctx, tokenStr)
	assert.ErrorIs(t, err, ErrUnknownSubject)
}
