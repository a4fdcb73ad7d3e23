package sales

import (
	"context"
	"database/sql"

	"github.com/feastline/orderhub/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// IncrementSalesCount adds quantity to the item's aggregate counter.
// It returns false when the item does not exist; rows are never
// created here.
func (r *Repository) IncrementSalesCount(ctx context.Context, foodItemID string, quantity int) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE food_items SET sales_count = sales_count + $1
		WHERE id = $2
	`, quantity, foodItemID)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

// GetFoodItem returns nil, nil when the item does not exist.
func (r *Repository) GetFoodItem(ctx context.Context, id string) (*domain.FoodItem, error) {
	item := &domain.FoodItem{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, price, sales_count
		FROM food_items
		WHERE id = $1
	`, id).Scan(&item.ID, &item.Name, &item.Price, &item.SalesCount)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return item, nil
}
