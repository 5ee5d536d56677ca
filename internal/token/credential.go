package token

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// CredentialKind distinguishes the stored password formats still present in
// the accounts table.
type CredentialKind int

const (
	// CredentialHashed is a bcrypt hash, the only format new accounts get.
	CredentialHashed CredentialKind = iota
	// CredentialPlaintext is a legacy value carried over from the initial
	// import. Matching against one succeeds but is reported so the account
	// can be forced through a rehash.
	CredentialPlaintext
)

// Credential is the tagged variant for a stored password value.
type Credential struct {
	Kind  CredentialKind
	Value string
}

// ParseCredential classifies a stored password_hash column value.
func ParseCredential(stored string) Credential {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(stored, prefix) {
			return Credential{Kind: CredentialHashed, Value: stored}
		}
	}
	return Credential{Kind: CredentialPlaintext, Value: stored}
}

// Verify checks a presented password against the credential. legacy is true
// when the match used plaintext comparison.
func (c Credential) Verify(presented string) (ok, legacy bool) {
	switch c.Kind {
	case CredentialHashed:
		return bcrypt.CompareHashAndPassword([]byte(c.Value), []byte(presented)) == nil, false
	case CredentialPlaintext:
		return c.Value != "" && c.Value == presented, true
	}
	return false, false
}

// HashPassword produces a bcrypt hash for storage.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}
