// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mercatohq/mercato/internal/app/system/auth"
)

// UserCtx returns the user's role (lowercased), name, Mongo ObjectID, and a found flag.
// If no user is present in context or the user ID is malformed, it returns
// "visitor", "", NilObjectID, false. This ensures callers can trust that
// ok=true means a valid, authenticated user with a valid ObjectID.
func UserCtx(r *http.Request) (role string, name string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Malformed user ID in session - fail closed.
		return "visitor", "", primitive.NilObjectID, false
	}
	return strings.ToLower(user.Role), user.Name, userID, true
}

// IsAdmin reports whether the current request's user is an admin.
func IsAdmin(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == "admin"
}

// IsSeller reports whether the current request's user is a seller.
func IsSeller(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == "seller"
}

// IsCustomer reports whether the current request's user is a customer.
func IsCustomer(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == "customer"
}

// UserTenantID returns the current user's tenant ID as an ObjectID.
// Returns NilObjectID if the user is not signed in or has no tenant (admins).
func UserTenantID(r *http.Request) primitive.ObjectID {
	user, ok := auth.CurrentUser(r)
	if !ok || user.TenantID == "" {
		return primitive.NilObjectID
	}
	oid, err := primitive.ObjectIDFromHex(user.TenantID)
	if err != nil {
		return primitive.NilObjectID
	}
	return oid
}

// CanAccessTenant reports whether the current user can act within the given
// tenant. Admins can access every tenant; customers and sellers only their own.
func CanAccessTenant(r *http.Request, tenantID primitive.ObjectID) bool {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return false
	}
	if strings.ToLower(user.Role) == "admin" {
		return true
	}
	if user.TenantID == "" {
		return false
	}
	own, err := primitive.ObjectIDFromHex(user.TenantID)
	if err != nil {
		return false
	}
	return own == tenantID
}

// CanModifyResource reports whether the current user may mutate a resource
// owned by ownerID. Admins always can; everyone else only their own.
func CanModifyResource(r *http.Request, ownerID primitive.ObjectID) bool {
	role, _, userID, ok := UserCtx(r)
	if !ok {
		return false
	}
	if role == "admin" {
		return true
	}
	return userID == ownerID
}

// CanManageProducts reports whether the current user can create/edit/delete
// products. Sellers and admins can; customers cannot.
func CanManageProducts(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && (role == "seller" || role == "admin")
}

// CanModerateForum reports whether the current user can pin, lock, or delete
// other users' forum content.
func CanModerateForum(r *http.Request) bool {
	return IsAdmin(r)
}
