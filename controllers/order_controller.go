package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yashrajoria/grocery-backend/models"
)

type OrderService interface {
	Checkout(ctx context.Context, userID string) (*models.Order, error)
	History(ctx context.Context, userID string) ([]models.OrderView, error)
}

type OrderController struct {
	Service OrderService
}

func NewOrderController(svc OrderService) *OrderController {
	return &OrderController{Service: svc}
}

// CreateOrder checks out the caller's cart. POST /api/orders/create
func (oc *OrderController) CreateOrder(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	order, err := oc.Service.Checkout(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

func (oc *OrderController) History(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	orders, err := oc.Service.History(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if orders == nil {
		orders = []models.OrderView{}
	}

	c.JSON(http.StatusOK, orders)
}
