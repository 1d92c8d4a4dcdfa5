// Package auth authenticates requests that policy marks auth-required.
// Authentication is pluggable behind the Authenticator interface; the
// shipped implementation checks HTTP basic credentials against a configured
// user list.
package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
)

// ErrUnauthenticated reports absent or invalid credentials.
var ErrUnauthenticated = errors.New("unauthenticated")

// Authenticator validates a request's credentials and returns the claims
// they prove, in the shape a token issuer would use ("name", "email", ...).
// Implementations must not write to the response.
type Authenticator interface {
	Authenticate(r *http.Request) (map[string]any, error)
}

// User is one configured basic-auth credential.
type User struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// Basic authenticates HTTP basic credentials against a fixed user list.
type Basic struct {
	users []User
}

// NewBasic creates a basic authenticator. An empty user list rejects
// everyone.
func NewBasic(users []User) *Basic {
	return &Basic{users: users}
}

// Authenticate checks the request's basic-auth credentials.
func (b *Basic) Authenticate(r *http.Request) (map[string]any, error) {
	username, password, ok := r.BasicAuth()
	if !ok {
		return nil, ErrUnauthenticated
	}
	for _, u := range b.users {
		if constantTimeEqual(username, u.Name) && constantTimeEqual(password, u.Password) {
			return map[string]any{"name": u.Name, "email": u.Email}, nil
		}
	}
	return nil, ErrUnauthenticated
}

func constantTimeEqual(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// AllowAll accepts every request without claims. Used when authentication is
// disabled but a policy still says auth-required.
type AllowAll struct{}

func (AllowAll) Authenticate(*http.Request) (map[string]any, error) {
	return nil, nil
}
