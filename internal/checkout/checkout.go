package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/feastline/orderhub/internal/domain"
)

// DefaultMaxDistanceKm is how far from the restaurant an order may be
// delivered.
const DefaultMaxDistanceKm = 15.0

// ValidationError reports the first failing checkout check. Validation
// failures never reach the store.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

type OrderCreator interface {
	Create(ctx context.Context, order *domain.Order) (string, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, foodItemID string, quantity int) error
}

type CartStore interface {
	Load(ctx context.Context) ([]domain.CartItem, error)
	Clear(ctx context.Context) error
}

type Config struct {
	// OriginLat/OriginLng is the restaurant location the delivery
	// distance is measured from.
	OriginLat     float64
	OriginLng     float64
	MaxDistanceKm float64
	DeliveryFee   int64
}

type Request struct {
	Customer      domain.CustomerInfo
	Delivery      domain.DeliveryInfo
	PaymentMethod domain.PaymentMethod
}

// Service gathers validated checkout data, computes the order payload
// and hands it to the store. Side-effect dispatch and cart clearing
// happen only after a successful write; a failed write leaves the cart
// in place for retry.
type Service struct {
	repo       OrderCreator
	dispatcher Dispatcher
	cart       CartStore
	cfg        Config
	logger     *slog.Logger
}

func NewService(repo OrderCreator, dispatcher Dispatcher, cart CartStore, cfg Config, logger *slog.Logger) *Service {
	if cfg.MaxDistanceKm <= 0 {
		cfg.MaxDistanceKm = DefaultMaxDistanceKm
	}
	return &Service{
		repo:       repo,
		dispatcher: dispatcher,
		cart:       cart,
		cfg:        cfg,
		logger:     logger,
	}
}

// Validate runs the checkout checks in their fixed order and returns
// the first failure.
func (s *Service) Validate(req Request) error {
	if strings.TrimSpace(req.Customer.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be blank"}
	}
	if strings.TrimSpace(req.Customer.Email) == "" {
		return &ValidationError{Field: "email", Reason: "must not be blank"}
	}
	if _, err := mail.ParseAddress(req.Customer.Email); err != nil {
		return &ValidationError{Field: "email", Reason: "must be a valid email address"}
	}
	if strings.TrimSpace(req.Customer.Phone) == "" {
		return &ValidationError{Field: "phone", Reason: "must not be blank"}
	}
	if strings.TrimSpace(req.Delivery.Address) == "" {
		return &ValidationError{Field: "address", Reason: "must not be blank"}
	}

	distance := DistanceKm(s.cfg.OriginLat, s.cfg.OriginLng, req.Delivery.Latitude, req.Delivery.Longitude)
	if distance > s.cfg.MaxDistanceKm {
		return &ValidationError{
			Field:  "delivery_distance",
			Reason: fmt.Sprintf("%.2f km exceeds the %.2f km delivery limit", distance, s.cfg.MaxDistanceKm),
		}
	}

	return nil
}

// PlaceOrder validates the request, builds the order from the current
// cart snapshot and writes it. On success it enqueues one sales-count
// job per cart line and clears the cart; enqueue and clear failures
// are logged but never fail the placed order.
func (s *Service) PlaceOrder(ctx context.Context, req Request) (*domain.Order, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}

	items, err := s.cart.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if len(items) == 0 {
		return nil, &ValidationError{Field: "cart", Reason: "must not be empty"}
	}

	var subtotal int64
	for i := range items {
		if items[i].Quantity <= 0 {
			return nil, &ValidationError{
				Field:  "cart",
				Reason: fmt.Sprintf("item %s has non-positive quantity", items[i].FoodItemID),
			}
		}
		items[i].Total = int64(items[i].Quantity) * items[i].UnitPrice
		subtotal += items[i].Total
	}

	order := &domain.Order{
		Customer:      req.Customer,
		Delivery:      req.Delivery,
		PaymentMethod: req.PaymentMethod,
		Items:         items,
		Amounts: domain.Amounts{
			Subtotal:    subtotal,
			DeliveryFee: s.cfg.DeliveryFee,
			Total:       subtotal + s.cfg.DeliveryFee,
		},
		Tracking: domain.OrderTracking{
			Status: domain.TrackingStatusPlaced,
		},
		CreatedAt: time.Now().UTC(),
	}

	orderID, err := s.repo.Create(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	for _, item := range order.Items {
		if err := s.dispatcher.Dispatch(ctx, item.FoodItemID, item.Quantity); err != nil {
			s.logger.Error("failed to dispatch sales count job", "error", err,
				"order_id", orderID, "food_item_id", item.FoodItemID)
		}
	}

	if err := s.cart.Clear(ctx); err != nil {
		s.logger.Error("failed to clear cart", "error", err, "order_id", orderID)
	}

	s.logger.Info("order placed", "order_id", orderID, "items", len(order.Items), "total", order.Amounts.Total)
	return order, nil
}
