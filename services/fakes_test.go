package services

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/yashrajoria/grocery-backend/models"
	"github.com/yashrajoria/grocery-backend/repository"
)

// memItems is an in-memory ItemRepository with atomic conditional
// decrements.
type memItems struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]*models.Item
	// failDecrementAfter makes the n-th DecrementStock call (1-based) fail
	// with a store error. Zero disables.
	failDecrementAfter int
	decrements         int
}

func newMemItems(items ...*models.Item) *memItems {
	m := &memItems{items: make(map[primitive.ObjectID]*models.Item)}
	for _, it := range items {
		if it.ID.IsZero() {
			it.ID = primitive.NewObjectID()
		}
		m.items[it.ID] = it
	}
	return m
}

func (m *memItems) stock(id primitive.ObjectID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id].StockQuantity
}

func (m *memItems) Find(_ context.Context, f repository.ItemFilter) ([]models.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Item{}
	for _, it := range m.items {
		if f.Category != "" && it.Category != f.Category {
			continue
		}
		out = append(out, *it)
	}
	return out, nil
}

func (m *memItems) FindByID(_ context.Context, id primitive.ObjectID) (*models.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (m *memItems) FindByIDs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[primitive.ObjectID]*models.Item)
	for _, id := range ids {
		if it, ok := m.items[id]; ok {
			cp := *it
			out[id] = &cp
		}
	}
	return out, nil
}

func (m *memItems) DecrementStock(_ context.Context, id primitive.ObjectID, qty int) (*models.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decrements++
	if m.failDecrementAfter > 0 && m.decrements == m.failDecrementAfter {
		return nil, errStore
	}
	it, ok := m.items[id]
	if !ok || it.StockQuantity < qty {
		return nil, repository.ErrInsufficientStock
	}
	it.StockQuantity -= qty
	cp := *it
	return &cp, nil
}

func (m *memItems) IncrementStock(_ context.Context, id primitive.ObjectID, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	it.StockQuantity += qty
	return nil
}

type memCarts struct {
	mu    sync.Mutex
	carts map[string]*models.Cart
}

func newMemCarts() *memCarts {
	return &memCarts{carts: make(map[string]*models.Cart)}
}

func (m *memCarts) put(userID string, lines ...models.CartLine) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range lines {
		if lines[i].ID.IsZero() {
			lines[i].ID = primitive.NewObjectID()
		}
	}
	m.carts[userID] = &models.Cart{ID: primitive.NewObjectID(), User: userID, Items: lines}
}

func (m *memCarts) lines(userID string) []models.CartLine {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[userID]
	if !ok {
		return nil
	}
	return append([]models.CartLine(nil), c.Items...)
}

func copyCart(c *models.Cart) *models.Cart {
	cp := *c
	cp.Items = append([]models.CartLine{}, c.Items...)
	return &cp
}

func (m *memCarts) FindByUser(_ context.Context, userID string) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyCart(c), nil
}

func (m *memCarts) GetOrCreate(_ context.Context, userID string) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[userID]
	if !ok {
		c = &models.Cart{ID: primitive.NewObjectID(), User: userID, Items: []models.CartLine{}, CreatedAt: time.Now()}
		m.carts[userID] = c
	}
	return copyCart(c), nil
}

func (m *memCarts) Save(_ context.Context, cart *models.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.carts[cart.User]; !ok {
		return repository.ErrNotFound
	}
	m.carts[cart.User] = copyCart(cart)
	return nil
}

func (m *memCarts) Clear(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.carts[userID]; ok {
		c.Items = []models.CartLine{}
	}
	return nil
}

type memOrders struct {
	mu      sync.Mutex
	orders  []models.Order
	failErr error
}

func (m *memOrders) Create(_ context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	m.orders = append(m.orders, *o)
	return nil
}

func (m *memOrders) FindByUser(_ context.Context, userID string) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Order{}
	for i := len(m.orders) - 1; i >= 0; i-- {
		if m.orders[i].User == userID {
			out = append(out, m.orders[i])
		}
	}
	return out, nil
}

func (m *memOrders) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

type fakePublisher struct {
	mu       sync.Mutex
	messages [][]byte
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, _, _ string, message []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	return f.err
}

type fakeInvalidator struct{ calls int }

func (f *fakeInvalidator) Invalidate(context.Context) error {
	f.calls++
	return nil
}

// MockUserRepository is a mock implementation of repository.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	if args.Error(0) == nil {
		user.ID = "u-1"
	}
	return args.Error(0)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// memSessions mirrors the Mongo session semantics: one row per
// (user, device), deactivated rather than deleted.
type memSessions struct {
	mu       sync.Mutex
	sessions map[[2]string]*models.DeviceSession
	touches  int
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: make(map[[2]string]*models.DeviceSession)}
}

func (m *memSessions) Upsert(_ context.Context, userID, deviceID, token string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[[2]string{userID, deviceID}] = &models.DeviceSession{
		User: userID, DeviceID: deviceID, Token: token, LastActive: at, IsActive: true,
	}
	return nil
}

func (m *memSessions) IsActive(_ context.Context, userID, deviceID, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[[2]string{userID, deviceID}]
	return ok && s.IsActive && s.Token == token, nil
}

func (m *memSessions) Touch(_ context.Context, userID, deviceID, _ string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[[2]string{userID, deviceID}]; ok {
		s.LastActive = at
		m.touches++
	}
	return nil
}

func (m *memSessions) Deactivate(_ context.Context, userID, deviceID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[[2]string{userID, deviceID}]
	if !ok || !s.IsActive {
		return false, nil
	}
	s.IsActive = false
	return true, nil
}

func (m *memSessions) ListActive(_ context.Context, userID string) ([]models.DeviceSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.DeviceSession{}
	for _, s := range m.sessions {
		if s.User == userID && s.IsActive {
			out = append(out, *s)
		}
	}
	return out, nil
}
