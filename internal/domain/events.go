package domain

import "time"

// SalesCountJob is the payload enqueued per cart line after a
// successful order write. The worker adds Quantity to the food item's
// aggregate sales counter.
type SalesCountJob struct {
	FoodItemID string    `json:"food_item_id"`
	Quantity   int       `json:"quantity"`
	Timestamp  time.Time `json:"timestamp"`
}
