package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	CategoryFruit     = "Fruit"
	CategoryVegetable = "Vegetable"
	CategoryNonVeg    = "Non-veg"
	CategoryBreads    = "Breads"
	CategoryOther     = "Other"
)

// Categories lists every category an item may belong to.
var Categories = []string{CategoryFruit, CategoryVegetable, CategoryNonVeg, CategoryBreads, CategoryOther}

// IsValidCategory reports whether c is one of Categories.
func IsValidCategory(c string) bool {
	for _, known := range Categories {
		if known == c {
			return true
		}
	}
	return false
}

type Item struct {
	ID            primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	Name          string             `json:"name" bson:"name"`
	Price         float64            `json:"price" bson:"price"`
	StockQuantity int                `json:"stockQuantity" bson:"stockQuantity"`
	Category      string             `json:"category" bson:"category"`
	Description   string             `json:"description,omitempty" bson:"description,omitempty"`
	ImageURL      string             `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
	CreatedAt     time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt" bson:"updatedAt"`
}
