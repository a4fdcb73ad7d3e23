package domain

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func TestOrderWireRoundTrip(t *testing.T) {
	created := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	original := Order{
		ID: "ord-123",
		Customer: CustomerInfo{
			Name:  "Ada Lovelace",
			Email: "ada@example.com",
			Phone: "+254700000001",
		},
		Delivery: DeliveryInfo{
			Address:   "12 Riverside Drive",
			Latitude:  -1.2648,
			Longitude: 36.8036,
		},
		PaymentMethod: PaymentMethodCashOnDelivery,
		Items: []CartItem{
			{FoodItemID: "item-1", Name: "Chicken Biryani", Quantity: 2, UnitPrice: 850, Total: 1700},
			{FoodItemID: "item-2", Name: "Mango Juice", Quantity: 1, UnitPrice: 300, Total: 300},
		},
		Amounts: Amounts{Subtotal: 2000, DeliveryFee: 150, Total: 2150},
		Tracking: OrderTracking{
			Status:    TrackingStatusPlaced,
			UpdatedAt: created,
		},
		CreatedAt: created,
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Order
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !reflect.DeepEqual(original, decoded) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", decoded, original)
	}
}

func TestItemsTotal(t *testing.T) {
	order := Order{
		Items: []CartItem{
			{Quantity: 2, UnitPrice: 500, Total: 1000},
			{Quantity: 3, UnitPrice: 200, Total: 600},
		},
	}

	if got := order.ItemsTotal(); got != 1600 {
		t.Errorf("expected 1600, got %d", got)
	}

	var empty Order
	if got := empty.ItemsTotal(); got != 0 {
		t.Errorf("expected 0 for empty order, got %d", got)
	}
}
