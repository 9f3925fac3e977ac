package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/yashrajoria/grocery-backend/models"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicate         = errors.New("duplicate record")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
)

// UserRepository stores accounts. Emails are matched exactly; callers
// normalise them first.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}

// SessionRepository tracks device sessions. IsActive is the revocation check
// run on every authenticated request.
type SessionRepository interface {
	Upsert(ctx context.Context, userID, deviceID, token string, at time.Time) error
	IsActive(ctx context.Context, userID, deviceID, token string) (bool, error)
	Touch(ctx context.Context, userID, deviceID, token string, at time.Time) error
	Deactivate(ctx context.Context, userID, deviceID string) (bool, error)
	ListActive(ctx context.Context, userID string) ([]models.DeviceSession, error)
}

// ItemFilter narrows and orders a catalog query. Nil bounds are ignored.
type ItemFilter struct {
	Category  string
	MinPrice  *float64
	MaxPrice  *float64
	SortField string
	SortDesc  bool
}

type ItemRepository interface {
	Find(ctx context.Context, filter ItemFilter) ([]models.Item, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Item, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.Item, error)
	// DecrementStock takes qty units only if at least qty are in stock and
	// returns the item as it is after the update. ErrInsufficientStock
	// otherwise (including when the item no longer exists).
	DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) (*models.Item, error)
	IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error
}

type CartRepository interface {
	FindByUser(ctx context.Context, userID string) (*models.Cart, error)
	GetOrCreate(ctx context.Context, userID string) (*models.Cart, error)
	Save(ctx context.Context, cart *models.Cart) error
	Clear(ctx context.Context, userID string) error
}

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByUser(ctx context.Context, userID string) ([]models.Order, error)
}

// Transactor runs fn atomically when the backing store supports it.
// Transactional reports whether it does; callers compensate otherwise.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	Transactional() bool
}
