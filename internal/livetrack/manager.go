package livetrack

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/feastline/orderhub/internal/domain"
)

// ProceedingChannel carries a notify whenever the set of proceeding
// orders may have changed. The payload is the affected order id;
// listeners re-query rather than decode it.
const ProceedingChannel = "orders_proceeding"

// TrackingChannel names the per-order notify channel. The payload is
// the JSON-encoded tracking sub-record.
func TrackingChannel(orderID string) string {
	return "order_tracking_" + orderID
}

// Notification is one push event from the backend. Err carries a
// cancellation or permission failure; an empty payload means the
// listener reconnected and the current state must be re-read.
type Notification struct {
	Payload []byte
	Err     error
}

// Notifier registers a push listener on a named channel. Delivery
// stops and the returned channel closes when ctx is cancelled.
type Notifier interface {
	Listen(ctx context.Context, channel string) (<-chan Notification, error)
}

// Source is the read side used to seed feeds and to re-query after
// list notifications.
type Source interface {
	GetTracking(ctx context.Context, orderID string) (*domain.OrderTracking, error)
	ListProceeding(ctx context.Context) ([]domain.Order, error)
}

type Config struct {
	// SilentListCancellation restores the legacy behavior where the
	// proceeding-list subscription ignored listener cancellations
	// instead of surfacing them as a failed state.
	SilentListCancellation bool
}

type orderHandle struct {
	feed   *Feed[domain.OrderTracking]
	cancel context.CancelFunc
}

type listHandle struct {
	feed   *Feed[[]domain.Order]
	cancel context.CancelFunc
}

// Manager owns at most one live listener per tracked entity: one per
// order being tracked, and one for the proceeding-orders query. A
// second start for the same key returns the existing feed without
// registering another listener; every start must be paired with a
// stop.
type Manager struct {
	notifier Notifier
	source   Source
	cfg      Config
	logger   *slog.Logger

	mu         sync.Mutex
	orders     map[string]*orderHandle
	proceeding *listHandle
}

func NewManager(notifier Notifier, source Source, cfg Config, logger *slog.Logger) *Manager {
	return &Manager{
		notifier: notifier,
		source:   source,
		cfg:      cfg,
		logger:   logger,
		orders:   make(map[string]*orderHandle),
	}
}

// StartTrackingOrder registers a listener on the order's tracking
// sub-record and returns its feed.
func (m *Manager) StartTrackingOrder(orderID string) (*Feed[domain.OrderTracking], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h, ok := m.orders[orderID]; ok {
		return h.feed, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	notifications, err := m.notifier.Listen(ctx, TrackingChannel(orderID))
	if err != nil {
		cancel()
		return nil, err
	}

	feed := NewFeed[domain.OrderTracking]()
	m.orders[orderID] = &orderHandle{feed: feed, cancel: cancel}

	go m.runOrderFeed(ctx, orderID, feed, notifications)

	return feed, nil
}

// StopTrackingOrder deregisters the order's listener. It is a no-op
// when no subscription is active.
func (m *Manager) StopTrackingOrder(orderID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h, ok := m.orders[orderID]; ok {
		h.cancel()
		delete(m.orders, orderID)
	}
}

// StartObservingProceededOrders registers the single proceeding-orders
// listener and returns its feed.
func (m *Manager) StartObservingProceededOrders() (*Feed[[]domain.Order], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.proceeding != nil {
		return m.proceeding.feed, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	notifications, err := m.notifier.Listen(ctx, ProceedingChannel)
	if err != nil {
		cancel()
		return nil, err
	}

	feed := NewFeed[[]domain.Order]()
	m.proceeding = &listHandle{feed: feed, cancel: cancel}

	go m.runListFeed(ctx, feed, notifications)

	return feed, nil
}

// StopObservingProceededOrders deregisters the list listener. It is a
// no-op when no subscription is active.
func (m *Manager) StopObservingProceededOrders() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.proceeding != nil {
		m.proceeding.cancel()
		m.proceeding = nil
	}
}

// Close stops every active subscription.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, h := range m.orders {
		h.cancel()
		delete(m.orders, id)
	}
	if m.proceeding != nil {
		m.proceeding.cancel()
		m.proceeding = nil
	}
}

func (m *Manager) runOrderFeed(ctx context.Context, orderID string, feed *Feed[domain.OrderTracking], notifications <-chan Notification) {
	m.loadTracking(ctx, orderID, feed)

	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-notifications:
			if !ok {
				return
			}
			switch {
			case n.Err != nil:
				feed.Publish(Failed[domain.OrderTracking](n.Err.Error()))
			case len(n.Payload) == 0:
				m.loadTracking(ctx, orderID, feed)
			default:
				var tracking domain.OrderTracking
				if err := json.Unmarshal(n.Payload, &tracking); err != nil {
					feed.Publish(Failed[domain.OrderTracking]("decode tracking payload: " + err.Error()))
					continue
				}
				feed.Publish(Ready(tracking))
			}
		}
	}
}

func (m *Manager) loadTracking(ctx context.Context, orderID string, feed *Feed[domain.OrderTracking]) {
	tracking, err := m.source.GetTracking(ctx, orderID)
	if err != nil {
		feed.Publish(Failed[domain.OrderTracking](err.Error()))
		return
	}
	if tracking == nil {
		feed.Publish(Failed[domain.OrderTracking]("order not found"))
		return
	}
	feed.Publish(Ready(*tracking))
}

func (m *Manager) runListFeed(ctx context.Context, feed *Feed[[]domain.Order], notifications <-chan Notification) {
	m.loadProceeding(ctx, feed)

	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-notifications:
			if !ok {
				return
			}
			if n.Err != nil {
				if m.cfg.SilentListCancellation {
					m.logger.Warn("proceeding orders listener cancelled", "error", n.Err)
					continue
				}
				feed.Publish(Failed[[]domain.Order](n.Err.Error()))
				continue
			}
			m.loadProceeding(ctx, feed)
		}
	}
}

func (m *Manager) loadProceeding(ctx context.Context, feed *Feed[[]domain.Order]) {
	orders, err := m.source.ListProceeding(ctx)
	if err != nil {
		feed.Publish(Failed[[]domain.Order](err.Error()))
		return
	}
	feed.Publish(Ready(orders))
}
