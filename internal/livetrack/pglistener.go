package livetrack

import (
	"context"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

// PGNotifier implements Notifier over Postgres LISTEN/NOTIFY. Each
// Listen call owns one pq.Listener; pq handles reconnects internally
// and signals them with a nil notification, which surfaces here as an
// empty payload so callers re-read current state.
type PGNotifier struct {
	dsn          string
	minReconnect time.Duration
	maxReconnect time.Duration
	logger       *slog.Logger
}

func NewPGNotifier(dsn string, logger *slog.Logger) *PGNotifier {
	return &PGNotifier{
		dsn:          dsn,
		minReconnect: 10 * time.Second,
		maxReconnect: time.Minute,
		logger:       logger,
	}
}

func (n *PGNotifier) Listen(ctx context.Context, channel string) (<-chan Notification, error) {
	listener := pq.NewListener(n.dsn, n.minReconnect, n.maxReconnect, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			n.logger.Error("postgres listener event", "error", err, "channel", channel, "event", int(ev))
		}
	})

	if err := listener.Listen(channel); err != nil {
		_ = listener.Close()
		return nil, err
	}

	out := make(chan Notification)

	go func() {
		defer close(out)
		defer func() { _ = listener.Close() }()

		for {
			select {
			case <-ctx.Done():
				return
			case pn, ok := <-listener.Notify:
				if !ok {
					return
				}

				var notification Notification
				if pn != nil {
					notification.Payload = []byte(pn.Extra)
				}

				select {
				case out <- notification:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
