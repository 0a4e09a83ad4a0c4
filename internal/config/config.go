package config

import (
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vendorvibe/order-core-go/internal/pricing"
)

type Config struct {
	Port         string
	DatabaseURL  string // empty runs the service on in-memory stores
	KafkaBrokers string
	KafkaTopic   string
	KafkaGroupID string

	Pricing pricing.Config

	OutboxRelayInterval time.Duration
	OutboxRelayBatch    int
}

func Load() Config {
	cfg := Config{
		Port:                getenv("PORT", "8080"),
		DatabaseURL:         strings.TrimSpace(os.Getenv("DATABASE_URL")),
		KafkaBrokers:        getenv("KAFKA_BROKERS", ""),
		KafkaTopic:          getenv("KAFKA_TOPIC", "vendorvibe.orders"),
		KafkaGroupID:        getenv("KAFKA_GROUP_ID", "notification-service"),
		Pricing:             pricing.DefaultConfig(),
		OutboxRelayInterval: getdur("OUTBOX_RELAY_INTERVAL", 500*time.Millisecond),
		OutboxRelayBatch:    100,
	}
	cfg.Pricing.FreeDeliveryThreshold = getdec("FREE_DELIVERY_THRESHOLD", cfg.Pricing.FreeDeliveryThreshold)
	cfg.Pricing.ExpressFee = getdec("EXPRESS_DELIVERY_FEE", cfg.Pricing.ExpressFee)
	cfg.Pricing.StandardFee = getdec("STANDARD_DELIVERY_FEE", cfg.Pricing.StandardFee)
	return cfg
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}

func getdec(k string, def decimal.Decimal) decimal.Decimal {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return def
	}
	return d
}

func getdur(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
