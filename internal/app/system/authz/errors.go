// internal/app/system/authz/errors.go
package authz

import (
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuthError means the request carries no authenticated user. Handlers map
// it to 401.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return "authentication required: " + e.Reason
}

// AuthorizationError means the user is signed in but the policy denies the
// action. Handlers map it to 403. Role is the caller's role at denial time
// so the refusal can be logged with context.
type AuthorizationError struct {
	Role   string
	Reason string
}

func (e *AuthorizationError) Error() string {
	return "permission denied for " + e.Role + ": " + e.Reason
}

// The Require* helpers mirror the Can* predicates but return a typed error
// instead of a bare false, so callers can tell "not signed in" apart from
// "signed in but denied" and respond 401 or 403 accordingly.

// RequireAdmin allows only admins through.
func RequireAdmin(r *http.Request) error {
	role, _, _, ok := UserCtx(r)
	if !ok {
		return &AuthError{Reason: "admin access"}
	}
	if role != "admin" {
		return &AuthorizationError{Role: role, Reason: "admin only"}
	}
	return nil
}

// RequireRole allows users holding any of the given roles.
func RequireRole(r *http.Request, roles ...string) error {
	role, _, _, ok := UserCtx(r)
	if !ok {
		return &AuthError{Reason: "role-restricted access"}
	}
	if !HasAnyRole(r, roles...) {
		return &AuthorizationError{Role: role, Reason: "role not permitted"}
	}
	return nil
}

// RequireTenantAccess allows admins everywhere and tenant members within
// their own tenant.
func RequireTenantAccess(r *http.Request, tenantID primitive.ObjectID) error {
	role, _, _, ok := UserCtx(r)
	if !ok {
		return &AuthError{Reason: "tenant access"}
	}
	if !CanAccessTenant(r, tenantID) {
		return &AuthorizationError{Role: role, Reason: "outside own tenant"}
	}
	return nil
}

// RequireOwnership allows admins and the resource owner.
func RequireOwnership(r *http.Request, ownerID primitive.ObjectID) error {
	role, _, _, ok := UserCtx(r)
	if !ok {
		return &AuthError{Reason: "resource access"}
	}
	if !CanModifyResource(r, ownerID) {
		return &AuthorizationError{Role: role, Reason: "not the resource owner"}
	}
	return nil
}

// RequireProductManager allows sellers and admins.
func RequireProductManager(r *http.Request) error {
	role, _, _, ok := UserCtx(r)
	if !ok {
		return &AuthError{Reason: "catalog management"}
	}
	if !CanManageProducts(r) {
		return &AuthorizationError{Role: role, Reason: "catalog is seller territory"}
	}
	return nil
}

// RequireModerator allows forum moderators (admins).
func RequireModerator(r *http.Request) error {
	role, _, _, ok := UserCtx(r)
	if !ok {
		return &AuthError{Reason: "moderation"}
	}
	if !CanModerateForum(r) {
		return &AuthorizationError{Role: role, Reason: "moderators only"}
	}
	return nil
}
