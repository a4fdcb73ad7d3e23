package checkout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/feastline/orderhub/internal/domain"
)

type fakeRepo struct {
	createErr   error
	createCalls int
	created     *domain.Order
}

func (f *fakeRepo) Create(_ context.Context, order *domain.Order) (string, error) {
	f.createCalls++
	if f.createErr != nil {
		return "", f.createErr
	}
	order.ID = "ord-test-1"
	f.created = order
	return order.ID, nil
}

type dispatchedJob struct {
	foodItemID string
	quantity   int
}

type fakeDispatcher struct {
	err  error
	jobs []dispatchedJob
}

func (f *fakeDispatcher) Dispatch(_ context.Context, foodItemID string, quantity int) error {
	f.jobs = append(f.jobs, dispatchedJob{foodItemID: foodItemID, quantity: quantity})
	return f.err
}

type fakeCart struct {
	items   []domain.CartItem
	loadErr error
	cleared bool
}

func (f *fakeCart) Load(_ context.Context) ([]domain.CartItem, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.items, nil
}

func (f *fakeCart) Clear(_ context.Context) error {
	f.cleared = true
	return nil
}

func testService(repo *fakeRepo, dispatcher *fakeDispatcher, cart *fakeCart, cfg Config) *Service {
	return NewService(repo, dispatcher, cart, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func validRequest() Request {
	return Request{
		Customer: domain.CustomerInfo{
			Name:  "Ada Lovelace",
			Email: "ada@example.com",
			Phone: "+254700000001",
		},
		Delivery: domain.DeliveryInfo{
			Address:   "12 Riverside Drive",
			Latitude:  0,
			Longitude: 0,
		},
		PaymentMethod: domain.PaymentMethodCard,
	}
}

func twoItemCart() []domain.CartItem {
	return []domain.CartItem{
		{FoodItemID: "item-1", Name: "Biryani", Quantity: 2, UnitPrice: 850},
		{FoodItemID: "item-2", Name: "Juice", Quantity: 1, UnitPrice: 300},
	}
}

func TestValidate_Order(t *testing.T) {
	svc := testService(&fakeRepo{}, &fakeDispatcher{}, &fakeCart{}, Config{})

	t.Run("blank name wins over blank email", func(t *testing.T) {
		req := validRequest()
		req.Customer.Name = "  "
		req.Customer.Email = ""

		var verr *ValidationError
		if err := svc.Validate(req); !errors.As(err, &verr) || verr.Field != "name" {
			t.Errorf("expected name validation error, got %v", err)
		}
	})

	t.Run("malformed email", func(t *testing.T) {
		req := validRequest()
		req.Customer.Email = "not-an-email"

		var verr *ValidationError
		if err := svc.Validate(req); !errors.As(err, &verr) || verr.Field != "email" {
			t.Errorf("expected email validation error, got %v", err)
		}
	})

	t.Run("blank phone after valid email", func(t *testing.T) {
		req := validRequest()
		req.Customer.Phone = ""

		var verr *ValidationError
		if err := svc.Validate(req); !errors.As(err, &verr) || verr.Field != "phone" {
			t.Errorf("expected phone validation error, got %v", err)
		}
	})

	t.Run("blank address", func(t *testing.T) {
		req := validRequest()
		req.Delivery.Address = ""

		var verr *ValidationError
		if err := svc.Validate(req); !errors.As(err, &verr) || verr.Field != "address" {
			t.Errorf("expected address validation error, got %v", err)
		}
	})
}

func TestValidate_DistanceBoundary(t *testing.T) {
	req := validRequest()
	req.Delivery.Latitude = 0
	req.Delivery.Longitude = 0.1

	boundary := DistanceKm(0, 0, req.Delivery.Latitude, req.Delivery.Longitude)

	t.Run("exactly at the limit passes", func(t *testing.T) {
		svc := testService(&fakeRepo{}, &fakeDispatcher{}, &fakeCart{}, Config{MaxDistanceKm: boundary})
		if err := svc.Validate(req); err != nil {
			t.Errorf("expected boundary distance to pass, got %v", err)
		}
	})

	t.Run("beyond the limit fails", func(t *testing.T) {
		svc := testService(&fakeRepo{}, &fakeDispatcher{}, &fakeCart{}, Config{MaxDistanceKm: boundary - 0.001})

		var verr *ValidationError
		if err := svc.Validate(req); !errors.As(err, &verr) || verr.Field != "delivery_distance" {
			t.Errorf("expected delivery_distance validation error, got %v", err)
		}
	})
}

func TestPlaceOrder_Success(t *testing.T) {
	repo := &fakeRepo{}
	dispatcher := &fakeDispatcher{}
	cart := &fakeCart{items: twoItemCart()}
	svc := testService(repo, dispatcher, cart, Config{DeliveryFee: 150})

	order, err := svc.PlaceOrder(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if order.ID == "" {
		t.Error("expected order id to be assigned")
	}
	if order.Tracking.Status != domain.TrackingStatusPlaced {
		t.Errorf("expected placed status, got %s", order.Tracking.Status)
	}
	if order.Amounts.Subtotal != order.ItemsTotal() {
		t.Errorf("subtotal %d does not match items total %d", order.Amounts.Subtotal, order.ItemsTotal())
	}
	if order.Amounts.Subtotal != 2000 || order.Amounts.Total != 2150 {
		t.Errorf("unexpected amounts: %+v", order.Amounts)
	}

	want := []dispatchedJob{
		{foodItemID: "item-1", quantity: 2},
		{foodItemID: "item-2", quantity: 1},
	}
	if len(dispatcher.jobs) != len(want) {
		t.Fatalf("expected %d jobs, got %d", len(want), len(dispatcher.jobs))
	}
	for i, job := range want {
		if dispatcher.jobs[i] != job {
			t.Errorf("job %d: expected %+v, got %+v", i, job, dispatcher.jobs[i])
		}
	}

	if !cart.cleared {
		t.Error("expected cart to be cleared after successful placement")
	}
}

func TestPlaceOrder_CreateFailure(t *testing.T) {
	cause := errors.New("connection refused")
	repo := &fakeRepo{createErr: cause}
	dispatcher := &fakeDispatcher{}
	cart := &fakeCart{items: twoItemCart()}
	svc := testService(repo, dispatcher, cart, Config{})

	_, err := svc.PlaceOrder(context.Background(), validRequest())
	if !errors.Is(err, cause) {
		t.Fatalf("expected error to wrap the store cause, got %v", err)
	}

	if len(dispatcher.jobs) != 0 {
		t.Errorf("expected no jobs after failed create, got %d", len(dispatcher.jobs))
	}
	if cart.cleared {
		t.Error("expected cart to survive a failed placement")
	}
}

func TestPlaceOrder_CartChecks(t *testing.T) {
	t.Run("empty cart is rejected", func(t *testing.T) {
		repo := &fakeRepo{}
		svc := testService(repo, &fakeDispatcher{}, &fakeCart{}, Config{})

		var verr *ValidationError
		_, err := svc.PlaceOrder(context.Background(), validRequest())
		if !errors.As(err, &verr) || verr.Field != "cart" {
			t.Errorf("expected cart validation error, got %v", err)
		}
		if repo.createCalls != 0 {
			t.Error("validation failure must not reach the store")
		}
	})

	t.Run("non-positive quantity is rejected", func(t *testing.T) {
		repo := &fakeRepo{}
		cart := &fakeCart{items: []domain.CartItem{{FoodItemID: "item-1", Quantity: 0, UnitPrice: 100}}}
		svc := testService(repo, &fakeDispatcher{}, cart, Config{})

		var verr *ValidationError
		_, err := svc.PlaceOrder(context.Background(), validRequest())
		if !errors.As(err, &verr) || verr.Field != "cart" {
			t.Errorf("expected cart validation error, got %v", err)
		}
		if repo.createCalls != 0 {
			t.Error("validation failure must not reach the store")
		}
	})
}

func TestPlaceOrder_DispatchFailureDoesNotFailOrder(t *testing.T) {
	repo := &fakeRepo{}
	dispatcher := &fakeDispatcher{err: errors.New("broker unavailable")}
	cart := &fakeCart{items: twoItemCart()}
	svc := testService(repo, dispatcher, cart, Config{})

	order, err := svc.PlaceOrder(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("dispatch failure must not fail the order: %v", err)
	}
	if order.ID == "" {
		t.Error("expected order id to be assigned")
	}
	if !cart.cleared {
		t.Error("expected cart to be cleared despite dispatch failure")
	}
}
