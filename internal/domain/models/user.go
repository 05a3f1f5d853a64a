// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents customers, sellers, and admins.
//
// NOTE:
//   - Role is immutable except through an admin mutation (user.role_changed).
//   - TenantID is nil for admins, who may span tenants. Customers and sellers
//     are always scoped to exactly one tenant.
type User struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name         string              `bson:"name" json:"name"`
	NameCI       string              `bson:"name_ci,omitempty" json:"-"` // case/diacritic-folded Name for search
	Email        string              `bson:"email" json:"email"`
	PasswordHash string              `bson:"password_hash,omitempty" json:"-"`
	Role         string              `bson:"role" json:"role"` // customer | seller | admin
	TenantID     *primitive.ObjectID `bson:"tenant_id,omitempty" json:"tenant_id,omitempty"`

	Username      string `bson:"username,omitempty" json:"username,omitempty"`
	Bio           string `bson:"bio,omitempty" json:"bio,omitempty"`
	Image         string `bson:"image,omitempty" json:"image,omitempty"`
	EmailVerified bool   `bson:"email_verified" json:"email_verified"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool { return u != nil && u.Role == "admin" }

// IsSeller reports whether the user has the seller role.
func (u *User) IsSeller() bool { return u != nil && u.Role == "seller" }

// IsCustomer reports whether the user has the customer role.
func (u *User) IsCustomer() bool { return u != nil && u.Role == "customer" }
