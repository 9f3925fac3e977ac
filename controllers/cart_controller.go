package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	apperrors "github.com/yashrajoria/grocery-backend/common/errors"
	"github.com/yashrajoria/grocery-backend/middleware"
	"github.com/yashrajoria/grocery-backend/models"
	"github.com/yashrajoria/grocery-backend/services"
)

type CartService interface {
	GetCart(ctx context.Context, userID string) (*models.PopulatedCart, []string, error)
	AddItem(ctx context.Context, userID string, itemID primitive.ObjectID, quantity int) (*models.PopulatedCart, error)
	UpdateQuantity(ctx context.Context, userID string, ref primitive.ObjectID, quantity int) (*services.UpdateResult, error)
	RemoveItem(ctx context.Context, userID string, ref primitive.ObjectID) (*models.PopulatedCart, error)
	ReplaceCart(ctx context.Context, userID string, lines []services.CartLineInput) (*models.PopulatedCart, error)
}

type CartController struct {
	Service CartService
}

func NewCartController(svc CartService) *CartController {
	return &CartController{Service: svc}
}

type addItemRequest struct {
	ItemID   string `json:"itemId" binding:"required"`
	Quantity int    `json:"quantity"`
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// itemRef accepts a populated item as sent back by clients that echo the
// cart they received.
type itemRef struct {
	ID string `json:"_id"`
}

type saveCartLine struct {
	ItemID   string   `json:"itemId"`
	Item     *itemRef `json:"item"`
	Quantity int      `json:"quantity"`
}

type saveCartRequest struct {
	Items []saveCartLine `json:"items" binding:"required"`
}

func (l saveCartLine) ref() string {
	if l.ItemID != "" {
		return l.ItemID
	}
	if l.Item != nil {
		return l.Item.ID
	}
	return ""
}

// GetCart returns the caller's cart reconciled against live stock.
func (cc *CartController) GetCart(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	cart, unavailable, err := cc.Service.GetCart(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if unavailable == nil {
		unavailable = []string{}
	}

	c.JSON(http.StatusOK, gin.H{"cart": cart, "unavailableItems": unavailable})
}

// AddItem adds quantity units of an item, merging into an existing line.
func (cc *CartController) AddItem(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError("itemId is required", err))
		return
	}

	itemID, err := services.ParseID(req.ItemID, "item")
	if err != nil {
		_ = c.Error(err)
		return
	}

	cart, err := cc.Service.AddItem(c.Request.Context(), userID, itemID, req.Quantity)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, cart)
}

// UpdateQuantity sets the quantity of a line. PUT /api/cart/update/:itemId
func (cc *CartController) UpdateQuantity(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	ref, err := services.ParseID(c.Param("itemId"), "item")
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req updateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError("quantity is required", err))
		return
	}

	result, err := cc.Service.UpdateQuantity(c.Request.Context(), userID, ref, *req.Quantity)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// RemoveItem drops a line. DELETE /api/cart/remove/:itemId
func (cc *CartController) RemoveItem(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	ref, err := services.ParseID(c.Param("itemId"), "item")
	if err != nil {
		_ = c.Error(err)
		return
	}

	cart, err := cc.Service.RemoveItem(c.Request.Context(), userID, ref)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, cart)
}

// SaveCart replaces the whole cart. POST /api/cart/save
func (cc *CartController) SaveCart(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req saveCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError("Invalid cart data", err))
		return
	}

	lines := make([]services.CartLineInput, 0, len(req.Items))
	for _, l := range req.Items {
		raw := l.ref()
		if raw == "" {
			_ = c.Error(apperrors.Validation("Invalid cart data"))
			return
		}
		id, err := services.ParseID(raw, "item")
		if err != nil {
			_ = c.Error(err)
			return
		}
		lines = append(lines, services.CartLineInput{ItemID: id, Quantity: l.Quantity})
	}

	cart, err := cc.Service.ReplaceCart(c.Request.Context(), userID, lines)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Cart saved successfully", "cart": cart})
}

func requireUser(c *gin.Context) (string, bool) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		_ = c.Error(apperrors.AuthRequired("No token, authorization denied"))
		return "", false
	}
	return userID, true
}
