package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/feastline/orderhub/internal/domain"
)

// SalesCountTopic is the durable queue for per-cart-line sales counter
// jobs. Messages are keyed by food item id.
const SalesCountTopic = "sales.count"

type Publisher interface {
	Publish(ctx context.Context, key string, payload any) error
}

// SalesCounter enqueues one background job per cart line after a
// successful order write. It is fire-and-forget: execution semantics
// belong to the queue, and an enqueue failure never rolls back the
// order.
type SalesCounter struct {
	publisher Publisher
	logger    *slog.Logger
}

func NewSalesCounter(publisher Publisher, logger *slog.Logger) *SalesCounter {
	return &SalesCounter{
		publisher: publisher,
		logger:    logger,
	}
}

func (d *SalesCounter) Dispatch(ctx context.Context, foodItemID string, quantity int) error {
	if d.publisher == nil {
		d.logger.Warn("sales count queue not configured, dropping job", "food_item_id", foodItemID)
		return nil
	}

	job := domain.SalesCountJob{
		FoodItemID: foodItemID,
		Quantity:   quantity,
		Timestamp:  time.Now().UTC(),
	}

	return d.publisher.Publish(ctx, foodItemID, job)
}
