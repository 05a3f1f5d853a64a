// internal/domain/models/tenant.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Tenant is an isolated storefront/community namespace. Every tenant-scoped
// document carries the tenant's ObjectID as a foreign key; there is no
// implicit row-level partitioning below that.
//
// Tenants are provisioned once and updated rarely (branding changes). They
// are never hard-deleted.
type Tenant struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name     string             `bson:"name" json:"name"`
	Slug     string             `bson:"slug" json:"slug"`     // unique, URL-safe
	Domain   string             `bson:"domain" json:"domain"` // marketplace | forum | admin | seller
	Settings TenantSettings     `bson:"settings" json:"settings"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// TenantSettings holds per-tenant display and branding configuration.
type TenantSettings struct {
	SiteName        string `bson:"site_name" json:"site_name"`
	SiteDescription string `bson:"site_description" json:"site_description"`
	LogoURL         string `bson:"logo_url,omitempty" json:"logo_url,omitempty"`
	FaviconURL      string `bson:"favicon_url,omitempty" json:"favicon_url,omitempty"`
	PrimaryColor    string `bson:"primary_color" json:"primary_color"`
	SecondaryColor  string `bson:"secondary_color" json:"secondary_color"`
	CustomDomain    string `bson:"custom_domain,omitempty" json:"custom_domain,omitempty"`
}
