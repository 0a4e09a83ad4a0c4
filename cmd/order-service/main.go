package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/vendorvibe/order-core-go/internal/cart"
	"github.com/vendorvibe/order-core-go/internal/config"
	"github.com/vendorvibe/order-core-go/internal/coupon"
	"github.com/vendorvibe/order-core-go/internal/database"
	"github.com/vendorvibe/order-core-go/internal/httpapi"
	"github.com/vendorvibe/order-core-go/internal/inventory"
	"github.com/vendorvibe/order-core-go/internal/notify"
	"github.com/vendorvibe/order-core-go/internal/order"
	"github.com/vendorvibe/order-core-go/internal/placement"
	"github.com/vendorvibe/order-core-go/internal/pricing"
	"github.com/vendorvibe/order-core-go/internal/status"
	"github.com/vendorvibe/order-core-go/pkg/kafka"
	"github.com/vendorvibe/order-core-go/pkg/logging"
	"github.com/vendorvibe/order-core-go/pkg/metrics"
	"github.com/vendorvibe/order-core-go/pkg/outbox"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		ledger    inventory.Ledger
		coupons   coupon.Validator
		orders    order.Repository
		carts     cart.Repository
		outboxSt  *outbox.Store
		healthz   func(context.Context) error
	)

	if cfg.DatabaseURL != "" {
		connCtx, connCancel := context.WithTimeout(ctx, 10*time.Second)
		pool, err := database.Connect(connCtx, cfg.DatabaseURL)
		connCancel()
		if err != nil {
			log.Fatalf("db connect error: %v", err)
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			log.Fatalf("db migrate error: %v", err)
		}
		ledger = inventory.NewPostgresLedger(pool)
		coupons = coupon.NewPostgresValidator(pool)
		orders = order.NewPostgresRepository(pool)
		carts = cart.NewPostgresRepository(pool)
		outboxSt = outbox.NewStore(pool)
		healthz = pool.Ping
	} else {
		log.Print("DATABASE_URL not set, running on in-memory stores")
		ledger = inventory.NewMemoryLedger()
		coupons = coupon.NewMemoryValidator()
		orders = order.NewMemoryRepository()
		carts = cart.NewMemoryRepository()
		healthz = func(context.Context) error { return nil }
	}

	kafkaClient := kafka.NewClient(cfg.KafkaBrokers)
	var dispatcher notify.Dispatcher = notify.Nop{}
	switch {
	case kafkaClient.Enabled() && outboxSt != nil:
		// Durable path: events land in the outbox with the order and the
		// relay moves them to the broker.
		dispatcher = notify.NewOutbox(outboxSt, cfg.KafkaTopic, "order_service")
		writer := kafkaClient.NewWriter(cfg.KafkaTopic)
		defer writer.Close()
		go outboxSt.Relay(ctx, cfg.OutboxRelayInterval, cfg.OutboxRelayBatch, func(ctx context.Context, rec outbox.Record) error {
			return kafka.PublishJSON(ctx, writer, rec.Key, rec.Payload)
		}, func(err error) {
			logging.Log(logging.Fields{Service: "order-service", Step: "outbox_relay", Status: "error", Message: err.Error()})
		})
	case kafkaClient.Enabled():
		writer := kafkaClient.NewWriter(cfg.KafkaTopic)
		defer writer.Close()
		dispatcher = notify.NewKafka(writer, "order_service")
	default:
		dispatcher = notify.Log{Service: "order-service"}
	}

	calc := pricing.NewCalculator(cfg.Pricing)
	placer := placement.NewService(ledger, coupons, orders, calc, dispatcher)
	engine := status.NewEngine(orders, ledger, dispatcher)
	cartSvc := cart.NewService(carts, ledger)

	srvMetrics := metrics.NewServerMetrics("order_service")
	orderMetrics := metrics.NewOrderMetrics("order_service")
	api := httpapi.New(placer, engine, orders, cartSvc, srvMetrics, orderMetrics)

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if err := healthz(req.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"db_error"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler())
	r.Mount("/", api.Routes())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("order-service listening on :%s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("http server error: %v", err)
	}
}
