// Package auth provides the credential-verification capability used by the
// basic-auth middleware. Handlers depend on the Verifier interface only, so
// the static two-credential scheme can be swapped for something stronger
// without touching call sites.
package auth

import (
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrNoCredentials means the server was started without any usable
	// credential pairs. Surfaces as a 500, never a 401/403.
	ErrNoCredentials = errors.New("no credentials configured")

	// ErrInvalidCredentials means the supplied username/password matched
	// no configured pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Verifier checks a username/password pair against the configured identities.
type Verifier interface {
	// Configured reports whether any credential pairs are available.
	Configured() bool

	// Verify returns nil when the pair matches a configured identity,
	// ErrInvalidCredentials when it does not, and ErrNoCredentials when
	// the verifier has nothing to check against.
	Verify(username, password string) error
}

// Credential is one configured identity. Secret is either a plaintext
// password or a bcrypt hash (recognized by its "$2" prefix).
type Credential struct {
	Username string
	Secret   string
}

// StaticVerifier verifies against a fixed set of credentials loaded at
// startup. Incomplete pairs (empty username or secret) are dropped.
type StaticVerifier struct {
	creds []Credential
}

// NewStaticVerifier builds a verifier from the given pairs, skipping any
// with an empty username or secret.
func NewStaticVerifier(creds ...Credential) *StaticVerifier {
	v := &StaticVerifier{}
	for _, c := range creds {
		if c.Username != "" && c.Secret != "" {
			v.creds = append(v.creds, c)
		}
	}
	return v
}

func (v *StaticVerifier) Configured() bool {
	return len(v.creds) > 0
}

func (v *StaticVerifier) Verify(username, password string) error {
	if len(v.creds) == 0 {
		return ErrNoCredentials
	}
	for _, c := range v.creds {
		if c.matches(username, password) {
			return nil
		}
	}
	return ErrInvalidCredentials
}

func (c Credential) matches(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(c.Username), []byte(username)) == 1

	var passOK bool
	if strings.HasPrefix(c.Secret, "$2") {
		passOK = bcrypt.CompareHashAndPassword([]byte(c.Secret), []byte(password)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(c.Secret), []byte(password)) == 1
	}

	return userOK && passOK
}
