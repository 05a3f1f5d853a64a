// internal/domain/models/order.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order statuses. Transitions are validated by orderstore.CanTransition;
// status is never a free-form overwrite.
const (
	OrderPending    = "pending"
	OrderProcessing = "processing"
	OrderShipped    = "shipped"
	OrderDelivered  = "delivered"
	OrderCancelled  = "cancelled"
	OrderRefunded   = "refunded"
)

// OrderItem is a line item captured at order time. Name and price are copied
// from the product so later product edits do not rewrite order history.
type OrderItem struct {
	ProductID primitive.ObjectID `bson:"product_id" json:"product_id"`
	Name      string             `bson:"name" json:"name"`
	Price     float64            `bson:"price" json:"price"`
	Quantity  int                `bson:"quantity" json:"quantity"`
}

// Order is a customer purchase within a tenant.
type Order struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TenantID   primitive.ObjectID `bson:"tenant_id" json:"tenant_id"`
	CustomerID primitive.ObjectID `bson:"customer_id" json:"customer_id"`
	Items      []OrderItem        `bson:"items" json:"items"`
	Total      float64            `bson:"total" json:"total"`
	Currency   string             `bson:"currency" json:"currency"`
	Status     string             `bson:"status" json:"status"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
