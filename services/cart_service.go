package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	apperrors "github.com/yashrajoria/grocery-backend/common/errors"
	"github.com/yashrajoria/grocery-backend/common/logger"
	"github.com/yashrajoria/grocery-backend/models"
	"github.com/yashrajoria/grocery-backend/repository"
)

const unknownItemName = "Unknown item"

// CartLineInput is one line of a full cart replacement.
type CartLineInput struct {
	ItemID   primitive.ObjectID
	Quantity int
}

// UpdateResult is returned by UpdateQuantity.
type UpdateResult struct {
	Message           string                `json:"message"`
	ItemID            string                `json:"itemId"`
	RequestedQuantity int                   `json:"requestedQuantity"`
	AvailableStock    int                   `json:"availableStock"`
	Cart              *models.PopulatedCart `json:"cart"`
}

type CartService struct {
	carts  repository.CartRepository
	items  repository.ItemRepository
	logger *zap.Logger
}

func NewCartService(carts repository.CartRepository, items repository.ItemRepository, log *zap.Logger) *CartService {
	return &CartService{carts: carts, items: items, logger: log}
}

// GetCart loads (or creates) the cart and reconciles it with live stock:
// lines whose item is gone or sold out are dropped and reported by name,
// lines above stock are clamped. The reconciled cart is persisted.
func (s *CartService) GetCart(ctx context.Context, userID string) (*models.PopulatedCart, []string, error) {
	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, nil, apperrors.Internal("Error fetching cart", err)
	}

	items, err := s.items.FindByIDs(ctx, lineItemIDs(cart.Items))
	if err != nil {
		return nil, nil, apperrors.Internal("Error fetching cart", err)
	}

	unavailable := []string{}
	kept := make([]models.CartLine, 0, len(cart.Items))
	changed := false

	for _, line := range cart.Items {
		item, ok := items[line.Item]
		switch {
		case !ok:
			unavailable = append(unavailable, unknownItemName)
			changed = true
		case item.StockQuantity <= 0:
			unavailable = append(unavailable, item.Name)
			changed = true
		case line.Quantity > item.StockQuantity:
			line.Quantity = item.StockQuantity
			kept = append(kept, line)
			changed = true
		default:
			kept = append(kept, line)
		}
	}

	if changed {
		cart.Items = kept
		if err := s.carts.Save(ctx, cart); err != nil {
			return nil, nil, apperrors.Internal("Error fetching cart", err)
		}
		logger.ForRequest(ctx, s.logger).Info("cart reconciled with stock",
			zap.String("user_id", userID),
			zap.Strings("unavailable", unavailable),
		)
	}

	return populateCart(cart, items), unavailable, nil
}

// AddItem merges quantity into the line for itemID, or appends a new line.
// Only the requested quantity is checked against stock; GetCart and
// checkout catch merged totals that exceed it.
func (s *CartService) AddItem(ctx context.Context, userID string, itemID primitive.ObjectID, quantity int) (*models.PopulatedCart, error) {
	if quantity < 1 {
		return nil, apperrors.Validation("Quantity must be at least 1")
	}

	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("Item not found")
		}
		return nil, apperrors.Internal("Error adding item to cart", err)
	}
	if item.StockQuantity < quantity {
		return nil, apperrors.Validation("Not enough stock available")
	}

	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("Error adding item to cart", err)
	}

	merged := false
	for i := range cart.Items {
		if cart.Items[i].Item == itemID {
			cart.Items[i].Quantity = addQuantity(cart.Items[i].Quantity, quantity)
			merged = true
			break
		}
	}
	if !merged {
		cart.Items = append(cart.Items, models.CartLine{
			ID:       primitive.NewObjectID(),
			Item:     itemID,
			Quantity: quantity,
		})
	}

	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, apperrors.Internal("Error adding item to cart", err)
	}

	return s.populate(ctx, cart, "Error adding item to cart")
}

// UpdateQuantity sets the quantity of the line addressed by ref (line id or
// item id). Stock is only checked when the quantity grows; zero removes the
// line.
func (s *CartService) UpdateQuantity(ctx context.Context, userID string, ref primitive.ObjectID, quantity int) (*UpdateResult, error) {
	if quantity < 0 {
		return nil, apperrors.Validation("Quantity cannot be negative")
	}

	cart, err := s.findCart(ctx, userID, "Error updating cart")
	if err != nil {
		return nil, err
	}

	idx := cart.FindLine(ref)
	if idx < 0 {
		return nil, apperrors.NotFound("Item not found in cart")
	}
	line := cart.Items[idx]

	item, err := s.items.FindByID(ctx, line.Item)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("Item not found in inventory")
		}
		return nil, apperrors.Internal("Error updating cart", err)
	}

	if quantity > line.Quantity && item.StockQuantity < quantity {
		return nil, apperrors.Validation("Not enough stock available").
			With("availableStock", item.StockQuantity).
			With("requestedQuantity", quantity)
	}

	if quantity == 0 {
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
	} else {
		cart.Items[idx].Quantity = quantity
	}

	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, apperrors.Internal("Error updating cart", err)
	}

	populated, err := s.populate(ctx, cart, "Error updating cart")
	if err != nil {
		return nil, err
	}

	return &UpdateResult{
		Message:           "Cart updated",
		ItemID:            ref.Hex(),
		RequestedQuantity: quantity,
		AvailableStock:    item.StockQuantity,
		Cart:              populated,
	}, nil
}

// RemoveItem drops the line addressed by ref (line id or item id).
func (s *CartService) RemoveItem(ctx context.Context, userID string, ref primitive.ObjectID) (*models.PopulatedCart, error) {
	cart, err := s.findCart(ctx, userID, "Error removing item from cart")
	if err != nil {
		return nil, err
	}

	idx := cart.FindLine(ref)
	if idx < 0 {
		return nil, apperrors.NotFound("Item not found in cart")
	}
	cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)

	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, apperrors.Internal("Error removing item from cart", err)
	}

	return s.populate(ctx, cart, "Error removing item from cart")
}

// ReplaceCart overwrites the cart with lines. Duplicate items are merged,
// zero quantities dropped; every remaining line must exist and fit in stock.
func (s *CartService) ReplaceCart(ctx context.Context, userID string, lines []CartLineInput) (*models.PopulatedCart, error) {
	order := make([]primitive.ObjectID, 0, len(lines))
	totals := make(map[primitive.ObjectID]int, len(lines))

	for _, l := range lines {
		if l.Quantity < 0 {
			return nil, apperrors.Validation("Quantity cannot be negative")
		}
		if _, seen := totals[l.ItemID]; !seen {
			order = append(order, l.ItemID)
		}
		totals[l.ItemID] = addQuantity(totals[l.ItemID], l.Quantity)
	}

	items, err := s.items.FindByIDs(ctx, order)
	if err != nil {
		return nil, apperrors.Internal("Error saving cart", err)
	}

	newLines := make([]models.CartLine, 0, len(order))
	for _, id := range order {
		item, ok := items[id]
		if !ok {
			return nil, apperrors.NotFound(fmt.Sprintf("Item %s not found", id.Hex()))
		}

		qty := totals[id]
		if qty == 0 {
			continue
		}
		if qty > item.StockQuantity {
			return nil, apperrors.Validation(fmt.Sprintf("Not enough stock for %s", item.Name)).
				With("availableStock", item.StockQuantity).
				With("requestedQuantity", qty)
		}

		newLines = append(newLines, models.CartLine{
			ID:       primitive.NewObjectID(),
			Item:     id,
			Quantity: qty,
		})
	}

	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("Error saving cart", err)
	}
	cart.Items = newLines

	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, apperrors.Internal("Error saving cart", err)
	}

	return populateCart(cart, items), nil
}

// addQuantity sums two non-negative quantities, saturating at math.MaxInt so
// the result is always rejected by a stock check instead of wrapping.
func addQuantity(a, b int) int {
	if a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}

func (s *CartService) findCart(ctx context.Context, userID, failMsg string) (*models.Cart, error) {
	cart, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("Cart not found")
		}
		return nil, apperrors.Internal(failMsg, err)
	}
	return cart, nil
}

func (s *CartService) populate(ctx context.Context, cart *models.Cart, failMsg string) (*models.PopulatedCart, error) {
	items, err := s.items.FindByIDs(ctx, lineItemIDs(cart.Items))
	if err != nil {
		return nil, apperrors.Internal(failMsg, err)
	}
	return populateCart(cart, items), nil
}

func lineItemIDs(lines []models.CartLine) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.Item)
	}
	return ids
}

// populateCart inlines item details. A line whose item vanished keeps a nil
// item.
func populateCart(cart *models.Cart, items map[primitive.ObjectID]*models.Item) *models.PopulatedCart {
	out := &models.PopulatedCart{
		ID:        cart.ID,
		User:      cart.User,
		Items:     make([]models.PopulatedCartLine, 0, len(cart.Items)),
		CreatedAt: cart.CreatedAt,
		UpdatedAt: cart.UpdatedAt,
	}
	for _, line := range cart.Items {
		out.Items = append(out.Items, models.PopulatedCartLine{
			ID:       line.ID,
			Item:     items[line.Item],
			Quantity: line.Quantity,
		})
	}
	return out
}
