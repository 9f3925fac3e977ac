package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	apperrors "github.com/yashrajoria/grocery-backend/common/errors"
	"github.com/yashrajoria/grocery-backend/common/logger"
	"github.com/yashrajoria/grocery-backend/models"
	awspkg "github.com/yashrajoria/grocery-backend/pkg/aws"
	"github.com/yashrajoria/grocery-backend/repository"
)

const EventOrderCreated = "order.created"

// StockShortage describes one cart line that cannot be fulfilled.
type StockShortage struct {
	ItemID    string `json:"itemId"`
	Name      string `json:"name"`
	Available int    `json:"available"`
	Requested int    `json:"requested"`
}

func (s StockShortage) String() string {
	return fmt.Sprintf("Not enough stock for %s. Available: %d, Requested: %d", s.Name, s.Available, s.Requested)
}

// NewStockError aggregates shortages into one 400 error carrying both a
// joined message and the structured list.
func NewStockError(shortages []StockShortage) *apperrors.Error {
	msgs := make([]string, 0, len(shortages))
	for _, sh := range shortages {
		msgs = append(msgs, sh.String())
	}
	return apperrors.ErrInsufficientStock.
		With("stockError", strings.Join(msgs, "; ")).
		With("stockErrors", shortages)
}

// CatalogInvalidator is notified after stock changes.
type CatalogInvalidator interface {
	Invalidate(ctx context.Context) error
}

// OrderCreatedEvent is published to SNS after a successful checkout.
type OrderCreatedEvent struct {
	EventType   string             `json:"eventType"`
	OrderID     string             `json:"orderId"`
	OrderNumber string             `json:"orderNumber"`
	UserID      string             `json:"userId"`
	TotalAmount float64            `json:"totalAmount"`
	Items       []models.OrderLine `json:"items"`
	CreatedAt   time.Time          `json:"createdAt"`
}

type CheckoutService struct {
	carts  repository.CartRepository
	items  repository.ItemRepository
	orders repository.OrderRepository
	tx     repository.Transactor

	catalog   CatalogInvalidator
	publisher awspkg.SNSPublisher
	topicArn  string
	metrics   *awspkg.MetricsClient

	logger *zap.Logger
	now    func() time.Time
}

func NewCheckoutService(carts repository.CartRepository, items repository.ItemRepository, orders repository.OrderRepository, tx repository.Transactor, log *zap.Logger) *CheckoutService {
	return &CheckoutService{
		carts:  carts,
		items:  items,
		orders: orders,
		tx:     tx,
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *CheckoutService) WithCatalog(c CatalogInvalidator) *CheckoutService {
	s.catalog = c
	return s
}

// WithEvents enables order.created publishing. An empty topic disables it.
func (s *CheckoutService) WithEvents(p awspkg.SNSPublisher, topicArn string) *CheckoutService {
	s.publisher = p
	s.topicArn = topicArn
	return s
}

func (s *CheckoutService) WithMetrics(m *awspkg.MetricsClient) *CheckoutService {
	s.metrics = m
	return s
}

type takenStock struct {
	id  primitive.ObjectID
	qty int
}

// Checkout turns the user's cart into an order. Stock is pre-checked for
// every line, then taken with conditional decrements; either every line is
// taken and the order written, or no stock changes and no order exists.
func (s *CheckoutService) Checkout(ctx context.Context, userID string) (*models.Order, error) {
	log := logger.ForRequest(ctx, s.logger).With(zap.String("user_id", userID))

	cart, err := s.carts.FindByUser(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Internal("Error creating order", err)
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, apperrors.ErrEmptyCart
	}

	items, err := s.items.FindByIDs(ctx, lineItemIDs(cart.Items))
	if err != nil {
		return nil, apperrors.Internal("Error creating order", err)
	}

	var shortages []StockShortage
	for _, line := range cart.Items {
		if line.Quantity < 1 {
			name := unknownItemName
			if item, ok := items[line.Item]; ok {
				name = item.Name
			}
			return nil, apperrors.Validation(fmt.Sprintf("Invalid quantity for %s", name)).
				With("requestedQuantity", line.Quantity)
		}
		item, ok := items[line.Item]
		if !ok {
			shortages = append(shortages, StockShortage{ItemID: line.Item.Hex(), Name: unknownItemName, Requested: line.Quantity})
			continue
		}
		if line.Quantity > item.StockQuantity {
			shortages = append(shortages, StockShortage{
				ItemID:    line.Item.Hex(),
				Name:      item.Name,
				Available: item.StockQuantity,
				Requested: line.Quantity,
			})
		}
	}
	if len(shortages) > 0 {
		log.Info("checkout rejected for stock", zap.Int("shortages", len(shortages)))
		s.recordFailure(awspkg.MetricStockShortages)
		return nil, NewStockError(shortages)
	}

	var (
		order *models.Order
		taken []takenStock
	)

	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		// The callback may be retried by the driver; start clean each time.
		taken = taken[:0]
		order = &models.Order{
			OrderNumber: uuid.NewString(),
			User:        userID,
			Items:       make([]models.OrderLine, 0, len(cart.Items)),
			CreatedAt:   s.now(),
		}
		total := decimal.Zero

		for _, line := range cart.Items {
			updated, err := s.items.DecrementStock(txCtx, line.Item, line.Quantity)
			if err != nil {
				if errors.Is(err, repository.ErrInsufficientStock) {
					return NewStockError([]StockShortage{s.lostRace(txCtx, line, items[line.Item])})
				}
				return err
			}
			taken = append(taken, takenStock{id: line.Item, qty: line.Quantity})

			order.Items = append(order.Items, models.OrderLine{
				Item:            line.Item,
				Name:            updated.Name,
				Quantity:        line.Quantity,
				PriceAtPurchase: updated.Price,
			})
			total = total.Add(decimal.NewFromFloat(updated.Price).Mul(decimal.NewFromInt(int64(line.Quantity))))
		}
		order.TotalAmount = total.Round(2).InexactFloat64()

		if err := s.orders.Create(txCtx, order); err != nil {
			return err
		}

		if err := s.carts.Clear(txCtx, userID); err != nil {
			if s.tx.Transactional() {
				return err
			}
			// The order is already written; a stale cart is the lesser evil.
			log.Error("order created but cart not cleared", zap.String("order_id", order.ID.Hex()), zap.Error(err))
		}
		return nil
	})

	if err != nil {
		if !s.tx.Transactional() {
			s.compensate(ctx, log, taken)
		}
		s.recordFailure(awspkg.MetricCheckoutsFailed)
		if _, ok := apperrors.As(err); ok {
			return nil, err
		}
		return nil, apperrors.Internal("Error creating order", err)
	}

	log.Info("order created",
		zap.String("order_id", order.ID.Hex()),
		zap.String("order_number", order.OrderNumber),
		zap.Float64("total", order.TotalAmount),
	)

	s.afterCheckout(ctx, log, order)
	return order, nil
}

// lostRace builds the shortage for a line whose decrement failed after the
// pre-check passed.
func (s *CheckoutService) lostRace(ctx context.Context, line models.CartLine, seen *models.Item) StockShortage {
	sh := StockShortage{ItemID: line.Item.Hex(), Name: unknownItemName, Requested: line.Quantity}
	if seen != nil {
		sh.Name = seen.Name
	}
	if current, err := s.items.FindByID(ctx, line.Item); err == nil {
		sh.Name = current.Name
		sh.Available = current.StockQuantity
	}
	return sh
}

// compensate returns stock taken by a failed non-transactional checkout.
func (s *CheckoutService) compensate(ctx context.Context, log *zap.Logger, taken []takenStock) {
	if len(taken) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	for _, t := range taken {
		if err := s.items.IncrementStock(ctx, t.id, t.qty); err != nil {
			log.Error("failed to release stock",
				zap.String("item_id", t.id.Hex()),
				zap.Int("quantity", t.qty),
				zap.Error(err),
			)
		}
	}
}

func (s *CheckoutService) afterCheckout(ctx context.Context, log *zap.Logger, order *models.Order) {
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if s.catalog != nil {
		if err := s.catalog.Invalidate(bg); err != nil {
			log.Warn("failed to invalidate catalog cache", zap.Error(err))
		}
	}

	if s.publisher != nil && s.topicArn != "" {
		payload, err := json.Marshal(OrderCreatedEvent{
			EventType:   EventOrderCreated,
			OrderID:     order.ID.Hex(),
			OrderNumber: order.OrderNumber,
			UserID:      order.User,
			TotalAmount: order.TotalAmount,
			Items:       order.Items,
			CreatedAt:   order.CreatedAt,
		})
		if err == nil {
			err = s.publisher.Publish(bg, s.topicArn, EventOrderCreated, payload)
		}
		if err != nil {
			log.Warn("failed to publish order event", zap.String("order_id", order.ID.Hex()), zap.Error(err))
		}
	}

	recordCount(s.metrics, awspkg.MetricOrdersCreated)
	recordValue(s.metrics, awspkg.MetricOrderValue, order.TotalAmount)
}

func (s *CheckoutService) recordFailure(metric string) {
	recordCount(s.metrics, metric)
}

// History lists the user's orders newest first, with item details attached
// where the item still exists.
func (s *CheckoutService) History(ctx context.Context, userID string) ([]models.OrderView, error) {
	orders, err := s.orders.FindByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("Error fetching order history", err)
	}

	var ids []primitive.ObjectID
	seen := make(map[primitive.ObjectID]bool)
	for _, o := range orders {
		for _, l := range o.Items {
			if !seen[l.Item] {
				seen[l.Item] = true
				ids = append(ids, l.Item)
			}
		}
	}

	items, err := s.items.FindByIDs(ctx, ids)
	if err != nil {
		return nil, apperrors.Internal("Error fetching order history", err)
	}

	views := make([]models.OrderView, 0, len(orders))
	for _, o := range orders {
		v := models.OrderView{
			ID:          o.ID,
			OrderNumber: o.OrderNumber,
			User:        o.User,
			Items:       make([]models.OrderViewLine, 0, len(o.Items)),
			TotalAmount: o.TotalAmount,
			CreatedAt:   o.CreatedAt,
		}
		for _, l := range o.Items {
			v.Items = append(v.Items, models.OrderViewLine{
				Item:            items[l.Item],
				ItemID:          l.Item,
				Name:            l.Name,
				Quantity:        l.Quantity,
				PriceAtPurchase: l.PriceAtPurchase,
			})
		}
		views = append(views, v)
	}
	return views, nil
}
