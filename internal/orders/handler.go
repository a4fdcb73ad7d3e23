package orders

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/feastline/orderhub/internal/checkout"
	"github.com/feastline/orderhub/internal/domain"
	"github.com/feastline/orderhub/internal/livetrack"
)

type CheckoutService interface {
	PlaceOrder(ctx context.Context, req checkout.Request) (*domain.Order, error)
}

type OrderStore interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	UpdateTracking(ctx context.Context, id string, tracking domain.OrderTracking) (bool, error)
	ListProceeding(ctx context.Context) ([]domain.Order, error)
}

type Tracker interface {
	StartTrackingOrder(orderID string) (*livetrack.Feed[domain.OrderTracking], error)
	StopTrackingOrder(orderID string)
}

type Handler struct {
	service CheckoutService
	store   OrderStore
	tracker Tracker
	logger  *slog.Logger
}

func NewHandler(service CheckoutService, store OrderStore, tracker Tracker, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		store:   store,
		tracker: tracker,
		logger:  logger,
	}
}

type placeOrderRequest struct {
	Customer      domain.CustomerInfo  `json:"customer"`
	Delivery      domain.DeliveryInfo  `json:"delivery"`
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
}

func (h *Handler) HandlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.service.PlaceOrder(r.Context(), checkout.Request{
		Customer:      req.Customer,
		Delivery:      req.Delivery,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		var verr *checkout.ValidationError
		if errors.As(err, &verr) {
			h.writeError(w, http.StatusUnprocessableEntity, verr.Error())
			return
		}
		h.logger.Error("failed to place order", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("order placed", "order_id", order.ID, "customer", order.Customer.Name)
	h.writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

type updateStatusRequest struct {
	Status  domain.TrackingStatus `json:"status"`
	Remarks string                `json:"remarks"`
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch req.Status {
	case domain.TrackingStatusPlaced, domain.TrackingStatusProceeding, domain.TrackingStatusDelivered:
	default:
		h.writeError(w, http.StatusBadRequest, "unknown tracking status")
		return
	}

	ok, err := h.store.UpdateTracking(r.Context(), id, domain.OrderTracking{
		Status:  req.Status,
		Remarks: req.Remarks,
	})
	if err != nil {
		h.logger.Error("failed to update order status", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if !ok {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	h.logger.Info("order status updated", "order_id", id, "status", req.Status)
	h.writeJSON(w, http.StatusOK, map[string]string{"order_id": id, "status": string(req.Status)})
}

func (h *Handler) HandleListProceeding(w http.ResponseWriter, r *http.Request) {
	orders, err := h.store.ListProceeding(r.Context())
	if err != nil {
		h.logger.Error("failed to list proceeding orders", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, orders)
}

type trackingEvent struct {
	Phase    string                `json:"phase"`
	Tracking *domain.OrderTracking `json:"tracking,omitempty"`
	Error    string                `json:"error,omitempty"`
}

func toTrackingEvent(state livetrack.State[domain.OrderTracking]) trackingEvent {
	switch state.Phase {
	case livetrack.PhaseReady:
		tracking := state.Value
		return trackingEvent{Phase: "ready", Tracking: &tracking}
	case livetrack.PhaseFailed:
		return trackingEvent{Phase: "failed", Error: state.Err}
	default:
		return trackingEvent{Phase: "loading"}
	}
}

// HandleTrackOrder streams tracking states over SSE. The subscription
// starts when the client connects and stops when it goes away, so a
// listener never outlives its request.
func (h *Handler) HandleTrackOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	feed, err := h.tracker.StartTrackingOrder(id)
	if err != nil {
		h.logger.Error("failed to start tracking order", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	defer h.tracker.StopTrackingOrder(id)

	states, cancel := feed.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	for {
		select {
		case <-r.Context().Done():
			return
		case state := <-states:
			data, err := json.Marshal(toTrackingEvent(state))
			if err != nil {
				h.logger.Error("failed to encode tracking event", "error", err, "id", id)
				return
			}
			if _, err := w.Write([]byte("event: state\ndata: " + string(data) + "\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
