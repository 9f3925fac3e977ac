package services

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	apperrors "github.com/yashrajoria/grocery-backend/common/errors"
)

// ParseID parses a hex ObjectID from a path or body value.
func ParseID(raw, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, apperrors.Validation("Invalid " + what + " id")
	}
	return id, nil
}
