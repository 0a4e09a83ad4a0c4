package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

func NewServerMetrics(service string) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vendorvibe",
		Subsystem: service,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vendorvibe",
		Subsystem: service,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})

	prometheus.MustRegister(requests, latency)
	return &ServerMetrics{Requests: requests, LatencyMS: latency}
}

// OrderMetrics counts placement outcomes and stock conflicts across the order core.
type OrderMetrics struct {
	OrdersPlaced   prometheus.Counter
	OrdersRejected *prometheus.CounterVec
	StockConflicts prometheus.Counter
}

func NewOrderMetrics(service string) *OrderMetrics {
	placed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "vendorvibe",
		Subsystem: service,
		Name:      "orders_placed_total",
		Help:      "Total number of successfully placed orders.",
	})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vendorvibe",
		Subsystem: service,
		Name:      "orders_rejected_total",
		Help:      "Total number of rejected placement attempts by error kind.",
	}, []string{"kind"})
	conflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "vendorvibe",
		Subsystem: service,
		Name:      "stock_conflicts_total",
		Help:      "Total number of reservations rejected for insufficient stock.",
	})

	prometheus.MustRegister(placed, rejected, conflicts)
	return &OrderMetrics{OrdersPlaced: placed, OrdersRejected: rejected, StockConflicts: conflicts}
}

func Handler() http.Handler {
	return promhttp.Handler()
}
