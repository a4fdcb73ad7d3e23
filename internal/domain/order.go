package domain

import "time"

type TrackingStatus string

const (
	TrackingStatusPlaced     TrackingStatus = "placed"
	TrackingStatusProceeding TrackingStatus = "proceeding"
	TrackingStatusDelivered  TrackingStatus = "delivered"
)

type PaymentMethod string

const (
	PaymentMethodCard           PaymentMethod = "card"
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
)

type CartItem struct {
	FoodItemID string `json:"food_item_id"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	UnitPrice  int64  `json:"unit_price"`
	Total      int64  `json:"total"`
}

type CustomerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type DeliveryInfo struct {
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Amounts is the price snapshot captured at creation time, in cents.
type Amounts struct {
	Subtotal    int64 `json:"subtotal"`
	DeliveryFee int64 `json:"delivery_fee"`
	Total       int64 `json:"total"`
}

// OrderTracking is the mutable delivery sub-record of an order. It is
// only ever written through the status-update path; everything else on
// an order is immutable once created.
type OrderTracking struct {
	Status    TrackingStatus `json:"status"`
	Remarks   string         `json:"remarks,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type Order struct {
	ID            string        `json:"id"`
	Customer      CustomerInfo  `json:"customer"`
	Delivery      DeliveryInfo  `json:"delivery"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Items         []CartItem    `json:"items"`
	Amounts       Amounts       `json:"amounts"`
	Tracking      OrderTracking `json:"tracking"`
	CreatedAt     time.Time     `json:"created_at"`
}

// ItemsTotal sums the cart line totals. A stored order's
// Amounts.Subtotal must equal this.
func (o *Order) ItemsTotal() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.Total
	}
	return total
}
