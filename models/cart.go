package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Cart is the stored form: lines reference items by id.
type Cart struct {
	ID        primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	User      string             `json:"user" bson:"user"`
	Items     []CartLine         `json:"items" bson:"items"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

type CartLine struct {
	ID       primitive.ObjectID `json:"_id" bson:"_id"`
	Item     primitive.ObjectID `json:"item" bson:"item"`
	Quantity int                `json:"quantity" bson:"quantity"`
}

// FindLine returns the index of the line addressed by ref, matching the line
// id first and the item id second. -1 if none matches.
func (c *Cart) FindLine(ref primitive.ObjectID) int {
	for i, line := range c.Items {
		if line.ID == ref {
			return i
		}
	}
	for i, line := range c.Items {
		if line.Item == ref {
			return i
		}
	}
	return -1
}

// PopulatedCart is the cart as returned to clients, with item details
// inlined on every line.
type PopulatedCart struct {
	ID        primitive.ObjectID  `json:"_id,omitempty"`
	User      string              `json:"user"`
	Items     []PopulatedCartLine `json:"items"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

type PopulatedCartLine struct {
	ID       primitive.ObjectID `json:"_id"`
	Item     *Item              `json:"item"`
	Quantity int                `json:"quantity"`
}
