// Package identity resolves who is making a request. Identity arrives either
// from a trusted reverse proxy via headers or from an authenticated
// principal's claims, and travels on the request context from there.
package identity

import (
	"context"
	"net/http"
)

// Identity is the resolved user behind a request. Either field may be empty
// when the request is anonymous.
type Identity struct {
	Name  string
	Email string
}

// IsAnonymous reports whether no user could be resolved.
func (id Identity) IsAnonymous() bool {
	return id.Name == "" && id.Email == ""
}

type identityKey struct{}

// WithIdentity attaches the identity to the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity carried on the context, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// Proxy-supplied identity headers, checked in order. The first non-empty
// value wins.
var (
	userHeaders  = []string{"X-FitNesse-User", "X-Remote-User", "Remote-User"}
	emailHeaders = []string{"X-FitNesse-Email", "X-Remote-Email"}
)

// FromRequest resolves identity from trusted proxy headers.
func FromRequest(r *http.Request) Identity {
	return Identity{
		Name:  firstHeader(r, userHeaders),
		Email: firstHeader(r, emailHeaders),
	}
}

func firstHeader(r *http.Request, names []string) string {
	for _, name := range names {
		if v := r.Header.Get(name); v != "" {
			return v
		}
	}
	return ""
}

// FromClaims resolves identity from token claims. Name prefers the display
// name, then the login name, then the subject; email falls back to the UPN.
func FromClaims(claims map[string]any) Identity {
	return Identity{
		Name:  firstClaim(claims, "name", "preferred_username", "sub"),
		Email: firstClaim(claims, "email", "upn"),
	}
}

func firstClaim(claims map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := claims[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// Resolve merges header identity over claim identity: headers win per field
// because the proxy sits closer to the user than the token issuer.
func Resolve(r *http.Request, claims map[string]any) Identity {
	id := FromRequest(r)
	fromClaims := FromClaims(claims)
	if id.Name == "" {
		id.Name = fromClaims.Name
	}
	if id.Email == "" {
		id.Email = fromClaims.Email
	}
	return id
}
