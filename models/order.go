package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order is written once at checkout and never modified.
type Order struct {
	ID          primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	OrderNumber string             `json:"orderNumber" bson:"orderNumber"`
	User        string             `json:"user" bson:"user"`
	Items       []OrderLine        `json:"items" bson:"items"`
	TotalAmount float64            `json:"totalAmount" bson:"totalAmount"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
}

// OrderLine snapshots name and unit price at purchase time.
type OrderLine struct {
	Item            primitive.ObjectID `json:"item" bson:"item"`
	Name            string             `json:"name" bson:"name"`
	Quantity        int                `json:"quantity" bson:"quantity"`
	PriceAtPurchase float64            `json:"priceAtPurchase" bson:"priceAtPurchase"`
}

// OrderView is an order with item details populated where the item still
// exists.
type OrderView struct {
	ID          primitive.ObjectID `json:"_id"`
	OrderNumber string             `json:"orderNumber"`
	User        string             `json:"user"`
	Items       []OrderViewLine    `json:"items"`
	TotalAmount float64            `json:"totalAmount"`
	CreatedAt   time.Time          `json:"createdAt"`
}

type OrderViewLine struct {
	Item            *Item              `json:"item"`
	ItemID          primitive.ObjectID `json:"itemId"`
	Name            string             `json:"name"`
	Quantity        int                `json:"quantity"`
	PriceAtPurchase float64            `json:"priceAtPurchase"`
}
