package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/feastline/orderhub/internal/kitchen"
	"github.com/feastline/orderhub/internal/livetrack"
	"github.com/feastline/orderhub/internal/orders"
	"github.com/feastline/orderhub/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "kitchen", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	db, err := telemetry.OpenDB("postgres", postgresURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	cfg := livetrack.Config{
		SilentListCancellation: os.Getenv("SILENT_LIST_CANCELLATION") == "true",
	}

	repo := orders.NewRepository(db)
	notifier := livetrack.NewPGNotifier(postgresURL, logger)
	manager := livetrack.NewManager(notifier, repo, cfg, logger)
	defer manager.Close()

	feed, err := manager.StartObservingProceededOrders()
	if err != nil {
		logger.Error("failed to start observing proceeding orders", "error", err)
		os.Exit(1)
	}
	defer manager.StopObservingProceededOrders()

	handler := kitchen.NewHandler(feed, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /board", telemetry.WithHTTPRoute(handler.HandleBoard))
	mux.HandleFunc("GET /board/stream", telemetry.WithHTTPRoute(handler.HandleBoardStream))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8083"
	}

	server := &http.Server{
		Addr: ":" + port,
		Handler: otelhttp.NewHandler(mux, "kitchen",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout: 10 * time.Second,
		// Board streams stay open until the client leaves.
		WriteTimeout: 0,
	}

	go func() {
		logger.Info("starting kitchen service", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
