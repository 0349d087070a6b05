package authz

import (
	"context"
	"errors"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

// Roles known to the API.
const (
	RolePlayer    = "player"
	RoleTurfOwner = "turf_owner"
	RoleAdmin     = "admin"
)

// AuthUser is the identity extracted from a verified bearer token.
type AuthUser struct {
	ID    string
	Phone string
	Role  string
}

type userContextKey struct{}

func ContextWithUser(ctx context.Context, user *AuthUser) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext retrieves the AuthUser stored in ctx.
// It returns nil if ctx is nil, if no user is stored, or if the stored value
// has a different type.
func UserFromContext(ctx context.Context) *AuthUser {
	if ctx == nil {
		return nil
	}

	user, ok := ctx.Value(userContextKey{}).(*AuthUser)
	if !ok {
		return nil
	}

	return user
}

// RequireUser returns the authenticated caller or ErrUnauthenticated.
func RequireUser(ctx context.Context) (*AuthUser, error) {
	user := UserFromContext(ctx)
	if user == nil {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

// RequireRole checks that the caller holds one of the allowed roles. All
// role-gated actions go through here rather than inlining role lists in
// handlers.
func RequireRole(ctx context.Context, allowed ...string) (*AuthUser, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	for _, role := range allowed {
		if user.Role == role {
			return user, nil
		}
	}
	return nil, ErrForbidden
}

// IsAdmin reports whether the given AuthUser has the admin role.
func IsAdmin(user *AuthUser) bool {
	return user != nil && user.Role == RoleAdmin
}

// CanAccessOwned reports whether the caller may act on a resource owned by
// ownerID: the owner themselves, or an admin.
func CanAccessOwned(user *AuthUser, ownerID string) bool {
	if user == nil {
		return false
	}
	return user.ID == ownerID || user.Role == RoleAdmin
}
