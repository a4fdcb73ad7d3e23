package kitchen

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/feastline/orderhub/internal/domain"
	"github.com/feastline/orderhub/internal/livetrack"
)

// Handler serves the kitchen display: the live set of proceeding
// orders, as a point-in-time snapshot and as an SSE stream. It reads
// from the feed only; the subscription lifecycle belongs to main.
type Handler struct {
	feed   *livetrack.Feed[[]domain.Order]
	logger *slog.Logger
}

func NewHandler(feed *livetrack.Feed[[]domain.Order], logger *slog.Logger) *Handler {
	return &Handler{
		feed:   feed,
		logger: logger,
	}
}

type boardEvent struct {
	Phase  string         `json:"phase"`
	Orders []domain.Order `json:"orders,omitempty"`
	Error  string         `json:"error,omitempty"`
}

func toBoardEvent(state livetrack.State[[]domain.Order]) boardEvent {
	switch state.Phase {
	case livetrack.PhaseReady:
		return boardEvent{Phase: "ready", Orders: state.Value}
	case livetrack.PhaseFailed:
		return boardEvent{Phase: "failed", Error: state.Err}
	default:
		return boardEvent{Phase: "loading"}
	}
}

func (h *Handler) HandleBoard(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, toBoardEvent(h.feed.Current()))
}

func (h *Handler) HandleBoardStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	states, cancel := h.feed.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	for {
		select {
		case <-r.Context().Done():
			return
		case state := <-states:
			data, err := json.Marshal(toBoardEvent(state))
			if err != nil {
				h.logger.Error("failed to encode board event", "error", err)
				return
			}
			if _, err := w.Write([]byte("event: board\ndata: " + string(data) + "\n\n")); err != nil {
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
