package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/vendorvibe/order-core-go/internal/config"
	"github.com/vendorvibe/order-core-go/pkg/contracts"
	"github.com/vendorvibe/order-core-go/pkg/kafka"
	"github.com/vendorvibe/order-core-go/pkg/logging"
	"github.com/vendorvibe/order-core-go/pkg/metrics"
)

// notification-service consumes order events from the broker and fans them
// out as vendor and supplier notifications. Delivery here is a structured
// log line per recipient; a real channel (email, push) plugs in behind
// notifyRecipient.

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	consumed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vendorvibe",
		Subsystem: "notification_service",
		Name:      "events_consumed_total",
		Help:      "Total number of order events consumed by type.",
	}, []string{"type"})
	prometheus.MustRegister(consumed)

	client := kafka.NewClient(cfg.KafkaBrokers)
	if !client.Enabled() {
		log.Fatal("KAFKA_BROKERS is required for the notification service")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := client.NewReader(cfg.KafkaTopic, cfg.KafkaGroupID)
	defer reader.Close()
	go consumeEvents(ctx, reader, consumed)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("notification-service listening on :%s, consuming %s", cfg.Port, cfg.KafkaTopic)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("http server error: %v", err)
	}
}

func consumeEvents(ctx context.Context, reader *kafkago.Reader, consumed *prometheus.CounterVec) {
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logging.Log(logging.Fields{Service: "notification-service", Step: "consume", Status: "error", Message: err.Error()})
			time.Sleep(time.Second)
			continue
		}

		var ev contracts.OrderEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			logging.Log(logging.Fields{Service: "notification-service", Step: "decode", Status: "error", Message: err.Error()})
			continue
		}
		consumed.WithLabelValues(ev.Type).Inc()

		notifyRecipient(ev, ev.VendorID, "vendor")
		notifyRecipient(ev, ev.SupplierID, "supplier")
	}
}

func notifyRecipient(ev contracts.OrderEvent, recipient, role string) {
	if recipient == "" {
		return
	}
	logging.Log(logging.Fields{
		Service: "notification-service",
		OrderID: ev.OrderID,
		EventID: ev.EventID,
		Step:    "notify_" + role,
		Status:  ev.Type,
		Message: notificationText(ev),
	})
}

func notificationText(ev contracts.OrderEvent) string {
	switch ev.Type {
	case contracts.EventOrderCreated:
		return "order " + ev.OrderID + " placed"
	case contracts.EventOrderStatusChanged:
		return "order " + ev.OrderID + " moved from " + ev.PrevStatus + " to " + ev.NewStatus
	default:
		return "order " + ev.OrderID + " event " + ev.Type
	}
}
