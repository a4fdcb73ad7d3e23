package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/feastline/orderhub/internal/cart"
	"github.com/feastline/orderhub/internal/checkout"
	"github.com/feastline/orderhub/internal/dispatch"
	"github.com/feastline/orderhub/internal/livetrack"
	"github.com/feastline/orderhub/internal/messaging"
	"github.com/feastline/orderhub/internal/orders"
	"github.com/feastline/orderhub/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "orders", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("orders", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	if err := runtime.Start(); err != nil {
		logger.Error("failed to start runtime instrumentation", "error", err)
		os.Exit(1)
	}

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

	var producer *messaging.Producer
	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers != "" {
		brokers := strings.Split(kafkaBrokers, ",")
		producer = messaging.NewProducer(brokers, dispatch.SalesCountTopic)
		defer func() { _ = producer.Close() }()
	}

	cartFile := os.Getenv("CART_FILE")
	if cartFile == "" {
		cartFile = "cart.json"
	}

	repo := orders.NewRepository(db)
	dispatcher := dispatch.NewSalesCounter(producerOrNil(producer), logger)
	cartStore := cart.NewFileStore(cartFile)

	service := checkout.NewService(repo, dispatcher, cartStore, checkout.Config{
		OriginLat:     envFloat(logger, "ORIGIN_LAT", 0),
		OriginLng:     envFloat(logger, "ORIGIN_LNG", 0),
		MaxDistanceKm: envFloat(logger, "MAX_DISTANCE_KM", checkout.DefaultMaxDistanceKm),
		DeliveryFee:   int64(envFloat(logger, "DELIVERY_FEE", 0)),
	}, logger)

	notifier := livetrack.NewPGNotifier(postgresURL, logger)
	manager := livetrack.NewManager(notifier, repo, livetrack.Config{}, logger)
	defer manager.Close()

	handler := orders.NewHandler(service, repo, manager, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /orders", telemetry.WithHTTPRoute(handler.HandlePlaceOrder))
	mux.HandleFunc("GET /orders/proceeding", telemetry.WithHTTPRoute(handler.HandleListProceeding))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(handler.HandleGet))
	mux.HandleFunc("PATCH /orders/{id}/status", telemetry.WithHTTPRoute(handler.HandleUpdateStatus))
	mux.HandleFunc("GET /orders/{id}/tracking/stream", telemetry.WithHTTPRoute(handler.HandleTrackOrder))
	mux.Handle("GET /metrics", metricsHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	server := &http.Server{
		Addr: ":" + port,
		Handler: otelhttp.NewHandler(mux, "orders",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout: 10 * time.Second,
		// Tracking streams stay open until the client leaves.
		WriteTimeout: 0,
	}

	go func() {
		logger.Info("starting orders service", "port", port)
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

// producerOrNil keeps the dispatcher's publisher interface nil when
// Kafka is not configured, instead of a non-nil interface wrapping a
// nil pointer.
func producerOrNil(p *messaging.Producer) dispatch.Publisher {
	if p == nil {
		return nil
	}
	return p
}

func envFloat(logger *slog.Logger, key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		logger.Error("invalid value for "+key, "value", raw, "error", err)
		os.Exit(1)
	}
	return v
}
