// internal/domain/models/product.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product is a marketplace listing owned by a seller within a tenant.
// Only the owning seller or an admin may mutate it.
type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TenantID    primitive.ObjectID `bson:"tenant_id" json:"tenant_id"`
	SellerID    primitive.ObjectID `bson:"seller_id" json:"seller_id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description" json:"description"`
	Price       float64            `bson:"price" json:"price"`       // 0 < price < 1,000,000
	Currency    string             `bson:"currency" json:"currency"` // closed set, see inputval
	Images      []string           `bson:"images" json:"images"`
	Category    string             `bson:"category" json:"category"`
	Tags        []string           `bson:"tags" json:"tags"`
	Stock       int                `bson:"stock" json:"stock"`
	Status      string             `bson:"status" json:"status"` // draft | active | archived

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
