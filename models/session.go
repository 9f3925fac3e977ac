package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DeviceSession binds an issued token to one (user, device) pair. Logging
// out flips IsActive; rows are never deleted.
type DeviceSession struct {
	ID         primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	User       string             `json:"user" bson:"user"`
	DeviceID   string             `json:"deviceId" bson:"deviceId"`
	Token      string             `json:"-" bson:"token"`
	LastActive time.Time          `json:"lastActive" bson:"lastActive"`
	IsActive   bool               `json:"isActive" bson:"isActive"`
	CreatedAt  time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt" bson:"updatedAt"`
}
