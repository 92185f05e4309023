package shared

import (
	"context"
	"net/http"
	"strings"
)

// Identity headers set by the upstream session provider.
const (
	HeaderUserID      = "X-User-ID"
	HeaderUserEmail   = "X-User-Email"
	HeaderUserName    = "X-User-Name"
	HeaderUserRole    = "X-User-Role"
	HeaderUserCompany = "X-User-Company"
)

// Identity is the signed-in user as supplied by the session provider.
type Identity struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
	Company  string `json:"company,omitempty"`
}

// Anonymous reports whether no user information is present.
func (i Identity) Anonymous() bool {
	return i.ID == "" && i.Email == "" && i.FullName == ""
}

// Actor returns the best available identifier for audit records.
func (i Identity) Actor() string {
	switch {
	case i.ID != "":
		return i.ID
	case i.Email != "":
		return i.Email
	case i.FullName != "":
		return i.FullName
	default:
		return "system"
	}
}

type identityContextKey struct{}

// ContextWithIdentity stores the identity in context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity from context.
func IdentityFromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(identityContextKey{}).(Identity)
	return id
}

// IdentityFromRequest reads the identity headers.
func IdentityFromRequest(r *http.Request) Identity {
	return Identity{
		ID:       strings.TrimSpace(r.Header.Get(HeaderUserID)),
		Email:    strings.TrimSpace(r.Header.Get(HeaderUserEmail)),
		FullName: strings.TrimSpace(r.Header.Get(HeaderUserName)),
		Role:     strings.TrimSpace(r.Header.Get(HeaderUserRole)),
		Company:  strings.TrimSpace(r.Header.Get(HeaderUserCompany)),
	}
}

// IdentityMiddleware places the request identity in the request context.
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := ContextWithIdentity(r.Context(), IdentityFromRequest(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
