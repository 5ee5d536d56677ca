package token

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"parking-reservation-backend/internal/model"
	"parking-reservation-backend/internal/store"
)

var (
	// ErrInvalidCredentials covers both unknown usernames and wrong
	// passwords; the two are deliberately indistinguishable to callers.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrTokenExpired means the token's expiry is not strictly in the future.
	ErrTokenExpired = errors.New("token expired")
	// ErrBadToken means the token is malformed or its signature does not
	// verify under the current signing key.
	ErrBadToken = errors.New("invalid token")
	// ErrUnknownSubject means the token verified but its subject no longer
	// resolves to an account.
	ErrUnknownSubject = errors.New("unknown subject")
)

// Claims is the signed payload embedded in a bearer token. The embedded role
// is informational only: authorization decisions always use the re-fetched
// role returned by Verifier.Verify.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Identity is the verified caller identity. Role is the account's current
// role at verification time, not the one minted into the token.
type Identity struct {
	ID       int64      `json:"id"`
	Username string     `json:"username"`
	Role     model.Role `json:"role"`
}

// Issuer mints bearer tokens for valid username/password pairs.
type Issuer struct {
	accounts store.AccountStore
	secret   []byte
	ttl      time.Duration
}

// NewIssuer creates a token issuer with the given signing secret and TTL.
func NewIssuer(accounts store.AccountStore, secret string, ttl time.Duration) *Issuer {
	return &Issuer{accounts: accounts, secret: []byte(secret), ttl: ttl}
}

// dummyHash is compared against on the unknown-user path so that failure
// timing does not reveal whether the username exists.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Issue verifies the presented credentials and mints a signed token carrying
// identity, role and expiry. No server-side session state is written.
func (i *Issuer) Issue(ctx context.Context, username, password string) (string, *Identity, error) {
	account, err := i.accounts.ByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		Credential{Kind: CredentialHashed, Value: dummyHash}.Verify(password)
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("issue: %w", err)
	}

	ok, legacy := ParseCredential(account.PasswordHash).Verify(password)
	if !ok {
		return "", nil, ErrInvalidCredentials
	}
	if legacy {
		log.Printf("account %d (%s) authenticated with a legacy plaintext credential; flag for rehash", account.ID, account.Username)
	}

	now := time.Now()
	claims := &Claims{
		UserID:   account.ID,
		Username: account.Username,
		Role:     string(account.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", account.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}

	identity := &Identity{ID: account.ID, Username: account.Username, Role: account.Role}
	return signed, identity, nil
}

// Verifier validates bearer tokens and resolves them to a live identity.
type Verifier struct {
	accounts store.AccountStore
	secret   []byte
}

// NewVerifier creates a token verifier sharing the issuer's signing secret.
func NewVerifier(accounts store.AccountStore, secret string) *Verifier {
	return &Verifier{accounts: accounts, secret: []byte(secret)}
}

// Verify checks the token's signature and expiry, then re-fetches the
// account so the returned Identity carries the current role. A role change
// therefore takes effect on the next verified call even though the token's
// embedded role is stale.
func (v *Verifier) Verify(ctx context.Context, tokenStr string) (*Identity, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrBadToken
	}
	if !parsed.Valid {
		return nil, ErrBadToken
	}

	account, err := v.accounts.ByID(ctx, claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnknownSubject
	}
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}

	return &Identity{ID: account.ID, Username: account.Username, Role: account.Role}, nil
}
