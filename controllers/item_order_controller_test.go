package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	apperrors "github.com/yashrajoria/grocery-backend/common/errors"
	"github.com/yashrajoria/grocery-backend/models"
	"github.com/yashrajoria/grocery-backend/services"
)

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) List(ctx context.Context, q services.ItemQuery) ([]models.Item, error) {
	args := m.Called(ctx, q)
	items, _ := args.Get(0).([]models.Item)
	return items, args.Error(1)
}

func (m *MockCatalog) Get(ctx context.Context, rawID string) (*models.Item, error) {
	args := m.Called(ctx, rawID)
	item, _ := args.Get(0).(*models.Item)
	return item, args.Error(1)
}

type MockOrders struct {
	mock.Mock
}

func (m *MockOrders) Checkout(ctx context.Context, userID string) (*models.Order, error) {
	args := m.Called(ctx, userID)
	order, _ := args.Get(0).(*models.Order)
	return order, args.Error(1)
}

func (m *MockOrders) History(ctx context.Context, userID string) ([]models.OrderView, error) {
	args := m.Called(ctx, userID)
	orders, _ := args.Get(0).([]models.OrderView)
	return orders, args.Error(1)
}

func TestGetItemsPassesQuery(t *testing.T) {
	catalog := new(MockCatalog)
	q := services.ItemQuery{Category: "Fruit", MinPrice: "1", SortBy: "price:desc"}
	catalog.On("List", mock.Anything, q).Return([]models.Item{{Name: "Apple", Category: models.CategoryFruit}}, nil).Once()

	router, _ := newTestRouter()
	router.GET("/items", NewItemController(catalog).GetItems)

	rec, _ := doJSON(t, router, http.MethodGet, "/items?category=Fruit&minPrice=1&sortBy=price:desc", "", false)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Apple")
	catalog.AssertExpectations(t)
}

func TestGetItemsInvalidQuery(t *testing.T) {
	catalog := new(MockCatalog)
	catalog.On("List", mock.Anything, mock.Anything).Return(nil, apperrors.Validation("Invalid sort field")).Once()

	router, _ := newTestRouter()
	router.GET("/items", NewItemController(catalog).GetItems)

	rec, body := doJSON(t, router, http.MethodGet, "/items?sortBy=color:asc", "", false)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid sort field", body["message"])
}

func TestGetItemNotFound(t *testing.T) {
	id := primitive.NewObjectID().Hex()
	catalog := new(MockCatalog)
	catalog.On("Get", mock.Anything, id).Return(nil, apperrors.NotFound("Item not found")).Once()

	router, _ := newTestRouter()
	router.GET("/items/:id", NewItemController(catalog).GetItem)

	rec, body := doJSON(t, router, http.MethodGet, "/items/"+id, "", false)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Item not found", body["message"])
}

func TestCreateOrderController(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		orders := new(MockOrders)
		orders.On("Checkout", mock.Anything, "u-1").Return(&models.Order{OrderNumber: "ORD-1", User: "u-1", TotalAmount: 12.5}, nil).Once()

		router, protected := newTestRouter()
		protected.POST("/orders/create", NewOrderController(orders).CreateOrder)

		rec, body := doJSON(t, router, http.MethodPost, "/orders/create", "", true)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, 12.5, body["totalAmount"])
	})

	t.Run("stock error", func(t *testing.T) {
		orders := new(MockOrders)
		stockErr := services.NewStockError([]services.StockShortage{{Name: "Milk", Available: 1, Requested: 2}})
		orders.On("Checkout", mock.Anything, "u-1").Return(nil, stockErr).Once()

		router, protected := newTestRouter()
		protected.POST("/orders/create", NewOrderController(orders).CreateOrder)

		rec, body := doJSON(t, router, http.MethodPost, "/orders/create", "", true)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Not enough stock for Milk. Available: 1, Requested: 2", body["stockError"])
		assert.Len(t, body["stockErrors"], 1)
	})
}

func TestOrderHistoryController(t *testing.T) {
	orders := new(MockOrders)
	orders.On("History", mock.Anything, "u-1").Return(nil, nil).Once()

	router, protected := newTestRouter()
	protected.GET("/orders/history", NewOrderController(orders).History)

	rec, _ := doJSON(t, router, http.MethodGet, "/orders/history", "", true)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
