package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestIsValidCategory(t *testing.T) {
	for _, c := range Categories {
		assert.True(t, IsValidCategory(c), c)
	}
	assert.False(t, IsValidCategory("fruit"))
	assert.False(t, IsValidCategory(""))
}

func TestCartFindLine(t *testing.T) {
	lineA, itemA := primitive.NewObjectID(), primitive.NewObjectID()
	lineB, itemB := primitive.NewObjectID(), primitive.NewObjectID()
	cart := &Cart{Items: []CartLine{
		{ID: lineA, Item: itemA, Quantity: 1},
		{ID: lineB, Item: itemB, Quantity: 2},
	}}

	assert.Equal(t, 1, cart.FindLine(lineB))
	assert.Equal(t, 0, cart.FindLine(itemA))
	assert.Equal(t, -1, cart.FindLine(primitive.NewObjectID()))
}
