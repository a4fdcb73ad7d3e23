package orders

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/feastline/orderhub/internal/domain"
	"github.com/feastline/orderhub/internal/livetrack"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create assigns the order its identifier and writes the full record.
// The caller owns retries; a failed write leaves no rows behind.
func (r *Repository) Create(ctx context.Context, order *domain.Order) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	order.ID = newOrderID()
	order.Tracking.UpdatedAt = order.CreatedAt

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, customer_name, customer_email, customer_phone,
			delivery_address, delivery_lat, delivery_lng,
			payment_method, subtotal, delivery_fee, total,
			tracking_status, tracking_remarks, tracking_updated_at,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
	`, order.ID,
		order.Customer.Name, order.Customer.Email, order.Customer.Phone,
		order.Delivery.Address, order.Delivery.Latitude, order.Delivery.Longitude,
		order.PaymentMethod,
		order.Amounts.Subtotal, order.Amounts.DeliveryFee, order.Amounts.Total,
		order.Tracking.Status, order.Tracking.Remarks,
		order.CreatedAt)
	if err != nil {
		return "", err
	}

	for _, item := range order.Items {
		lineID := uuid.New().String()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, food_item_id, name, quantity, unit_price, total)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, lineID, order.ID, item.FoodItemID, item.Name, item.Quantity, item.UnitPrice, item.Total)
		if err != nil {
			return "", err
		}
	}

	if order.Tracking.Status == domain.TrackingStatusProceeding {
		if err := notify(ctx, tx, livetrack.ProceedingChannel, order.ID); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}

	return order.ID, nil
}

// GetByID returns nil, nil when the order does not exist.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	order := &domain.Order{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, customer_name, customer_email, customer_phone,
		       delivery_address, delivery_lat, delivery_lng,
		       payment_method, subtotal, delivery_fee, total,
		       tracking_status, tracking_remarks, tracking_updated_at,
		       created_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&order.ID,
		&order.Customer.Name, &order.Customer.Email, &order.Customer.Phone,
		&order.Delivery.Address, &order.Delivery.Latitude, &order.Delivery.Longitude,
		&order.PaymentMethod,
		&order.Amounts.Subtotal, &order.Amounts.DeliveryFee, &order.Amounts.Total,
		&order.Tracking.Status, &order.Tracking.Remarks, &order.Tracking.UpdatedAt,
		&order.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT food_item_id, name, quantity, unit_price, total
		FROM order_items
		WHERE order_id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.FoodItemID, &item.Name, &item.Quantity, &item.UnitPrice, &item.Total); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return order, nil
}

// GetTracking reads only the tracking sub-record; nil, nil when the
// order does not exist.
func (r *Repository) GetTracking(ctx context.Context, id string) (*domain.OrderTracking, error) {
	tracking := &domain.OrderTracking{}

	err := r.db.QueryRowContext(ctx, `
		SELECT tracking_status, tracking_remarks, tracking_updated_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&tracking.Status, &tracking.Remarks, &tracking.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return tracking, nil
}

// UpdateTracking overwrites the tracking sub-record of an existing
// order and leaves every other column untouched. It returns false with
// a nil error when the order does not exist. The existence check, the
// write and the notifies that announce the change share one
// transaction.
func (r *Repository) UpdateTracking(ctx context.Context, id string, tracking domain.OrderTracking) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)
	`, id).Scan(&exists)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}

	if tracking.UpdatedAt.IsZero() {
		tracking.UpdatedAt = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET tracking_status = $1, tracking_remarks = $2, tracking_updated_at = $3
		WHERE id = $4
	`, tracking.Status, tracking.Remarks, tracking.UpdatedAt, id)
	if err != nil {
		return false, err
	}

	payload, err := json.Marshal(tracking)
	if err != nil {
		return false, fmt.Errorf("encode tracking payload: %w", err)
	}

	if err := notify(ctx, tx, livetrack.TrackingChannel(id), string(payload)); err != nil {
		return false, err
	}
	if err := notify(ctx, tx, livetrack.ProceedingChannel, id); err != nil {
		return false, err
	}

	return true, tx.Commit()
}

// ListProceeding returns the orders whose tracking status is the
// proceeding marker, oldest first, with their cart lines attached.
func (r *Repository) ListProceeding(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, customer_name, customer_email, customer_phone,
		       delivery_address, delivery_lat, delivery_lng,
		       payment_method, subtotal, delivery_fee, total,
		       tracking_status, tracking_remarks, tracking_updated_at,
		       created_at
		FROM orders
		WHERE tracking_status = $1
		ORDER BY created_at
	`, domain.TrackingStatusProceeding)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[string]*domain.Order)
	var orderIDs []string

	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(&order.ID,
			&order.Customer.Name, &order.Customer.Email, &order.Customer.Phone,
			&order.Delivery.Address, &order.Delivery.Latitude, &order.Delivery.Longitude,
			&order.PaymentMethod,
			&order.Amounts.Subtotal, &order.Amounts.DeliveryFee, &order.Amounts.Total,
			&order.Tracking.Status, &order.Tracking.Remarks, &order.Tracking.UpdatedAt,
			&order.CreatedAt); err != nil {
			return nil, err
		}
		order.Items = []domain.CartItem{}
		orderMap[order.ID] = &order
		orderIDs = append(orderIDs, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderIDs) == 0 {
		return []domain.Order{}, nil
	}

	itemRows, err := r.db.QueryContext(ctx, `
		SELECT order_id, food_item_id, name, quantity, unit_price, total
		FROM order_items
		WHERE order_id = ANY($1)
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = itemRows.Close() }()

	for itemRows.Next() {
		var orderID string
		var item domain.CartItem
		if err := itemRows.Scan(&orderID, &item.FoodItemID, &item.Name, &item.Quantity, &item.UnitPrice, &item.Total); err != nil {
			return nil, err
		}
		order := orderMap[orderID]
		order.Items = append(order.Items, item)
	}

	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *orderMap[id])
	}

	return orders, nil
}

func notify(ctx context.Context, tx *sql.Tx, channel, payload string) error {
	_, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, channel, payload)
	return err
}

// newOrderID prefers a v4 uuid; if the random source fails it falls
// back to a random-plus-timestamp identifier, which cannot collide
// under the single-writer assumption.
func newOrderID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return fallbackID()
	}
	return id.String()
}

func fallbackID() string {
	return fmt.Sprintf("ord-%08x-%d", rand.Uint32(), time.Now().UnixNano())
}
