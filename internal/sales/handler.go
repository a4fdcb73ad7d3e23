package sales

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/feastline/orderhub/internal/domain"
)

type Counter interface {
	IncrementSalesCount(ctx context.Context, foodItemID string, quantity int) (bool, error)
}

// Handler consumes sales-count jobs from the queue. Malformed and
// unknown-item jobs are logged and skipped so a bad message cannot
// wedge the consumer; storage failures are returned so the message is
// redelivered.
type Handler struct {
	repo   Counter
	logger *slog.Logger
}

func NewHandler(repo Counter, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

func (h *Handler) Handle(ctx context.Context, payload []byte) error {
	var job domain.SalesCountJob
	if err := json.Unmarshal(payload, &job); err != nil {
		h.logger.Error("skipping malformed sales count job", "error", err)
		return nil
	}

	if job.FoodItemID == "" || job.Quantity <= 0 {
		h.logger.Error("skipping invalid sales count job", "food_item_id", job.FoodItemID, "quantity", job.Quantity)
		return nil
	}

	updated, err := h.repo.IncrementSalesCount(ctx, job.FoodItemID, job.Quantity)
	if err != nil {
		h.logger.Error("failed to update sales count", "error", err, "food_item_id", job.FoodItemID)
		return err
	}
	if !updated {
		h.logger.Warn("sales count job for unknown food item", "food_item_id", job.FoodItemID)
		return nil
	}

	h.logger.Info("sales count updated", "food_item_id", job.FoodItemID, "quantity", job.Quantity)
	return nil
}
