package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/vendorvibe/order-core-go/internal/coupon"
	"github.com/vendorvibe/order-core-go/internal/inventory"
	"github.com/vendorvibe/order-core-go/internal/notify"
	"github.com/vendorvibe/order-core-go/internal/order"
	"github.com/vendorvibe/order-core-go/internal/placement"
	"github.com/vendorvibe/order-core-go/internal/pricing"
)

// bench-runner hammers the in-process placement service with concurrent
// orders over a bounded stock and reports latency percentiles plus the
// oversell check: placed*qty + remaining must equal the starting stock.

type benchResult struct {
	Timestamp       string         `json:"timestamp"`
	Attempts        int            `json:"attempts"`
	Concurrency     int            `json:"concurrency"`
	Stock           int32          `json:"stock"`
	QtyPerOrder     int32          `json:"qty_per_order"`
	Placed          int            `json:"placed"`
	Rejected        int            `json:"rejected"`
	RejectedByKind  map[string]int `json:"rejected_by_kind"`
	RemainingStock  int32          `json:"remaining_stock"`
	OversellCheckOK bool           `json:"oversell_check_ok"`
	DurationSeconds float64        `json:"duration_seconds"`
	ThroughputRPS   float64        `json:"throughput_rps"`
	AvgLatencyMs    float64        `json:"avg_latency_ms"`
	P50LatencyMs    float64        `json:"p50_latency_ms"`
	P90LatencyMs    float64        `json:"p90_latency_ms"`
	P95LatencyMs    float64        `json:"p95_latency_ms"`
	P99LatencyMs    float64        `json:"p99_latency_ms"`
}

type collector struct {
	mu          sync.Mutex
	placed      int
	rejected    int
	byKind      map[string]int
	latenciesMs []float64
}

func (c *collector) record(latency time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latenciesMs = append(c.latenciesMs, float64(latency.Microseconds())/1000)
	if err != nil {
		c.rejected++
		c.byKind[string(order.KindOf(err))]++
		return
	}
	c.placed++
}

func main() {
	attempts := flag.Int("attempts", 1000, "total placement attempts")
	concurrency := flag.Int("concurrency", 50, "number of concurrent workers")
	stock := flag.Int("stock", 300, "starting stock of the benchmark product")
	qty := flag.Int("qty", 1, "quantity per order")
	output := flag.String("output", "", "optional output path for JSON result")
	flag.Parse()

	if *attempts <= 0 || *concurrency <= 0 || *stock < 0 || *qty <= 0 {
		fmt.Fprintln(os.Stderr, "attempts, concurrency and qty must be > 0, stock must be >= 0")
		os.Exit(1)
	}

	ledger := inventory.NewMemoryLedger()
	coupons := coupon.NewMemoryValidator()
	orders := order.NewMemoryRepository()
	calc := pricing.NewCalculator(pricing.DefaultConfig())
	placer := placement.NewService(ledger, coupons, orders, calc, notify.Nop{})

	ctx := context.Background()
	_ = ledger.Upsert(ctx, inventory.Product{
		ID:         "bench-sku",
		Name:       "Bench Widget",
		Price:      decimal.NewFromInt(10),
		Available:  int32(*stock),
		MinBulkQty: 1,
		SupplierID: "bench-supplier",
		Active:     true,
	})

	c := &collector{byKind: make(map[string]int)}
	tasks := make(chan int)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < *concurrency; w++ {
		g.Go(func() error {
			for i := range tasks {
				reqStart := time.Now()
				_, err := placer.PlaceOrder(gctx, placement.Request{
					VendorID:       fmt.Sprintf("bench-vendor-%d", i),
					Items:          []placement.ItemRequest{{ProductID: "bench-sku", Quantity: int32(*qty)}},
					DeliveryOption: order.DeliveryStandard,
				})
				c.record(time.Since(reqStart), err)
			}
			return nil
		})
	}
	for i := 0; i < *attempts; i++ {
		tasks <- i
	}
	close(tasks)
	_ = g.Wait()
	elapsed := time.Since(start)

	remaining, _ := ledger.Available("bench-sku")
	res := benchResult{
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		Attempts:        *attempts,
		Concurrency:     *concurrency,
		Stock:           int32(*stock),
		QtyPerOrder:     int32(*qty),
		Placed:          c.placed,
		Rejected:        c.rejected,
		RejectedByKind:  c.byKind,
		RemainingStock:  remaining,
		OversellCheckOK: int32(c.placed)*int32(*qty)+remaining == int32(*stock),
		DurationSeconds: elapsed.Seconds(),
		ThroughputRPS:   float64(*attempts) / elapsed.Seconds(),
		AvgLatencyMs:    avg(c.latenciesMs),
		P50LatencyMs:    percentile(c.latenciesMs, 50),
		P90LatencyMs:    percentile(c.latenciesMs, 90),
		P95LatencyMs:    percentile(c.latenciesMs, 95),
		P99LatencyMs:    percentile(c.latenciesMs, 99),
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	fmt.Println(string(data))
	if *output != "" {
		if err := os.WriteFile(*output, data, 0o644); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
	}
	if !res.OversellCheckOK {
		fmt.Fprintln(os.Stderr, "OVERSOLD: placed orders exceed starting stock")
		os.Exit(1)
	}
}

func avg(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func percentile(xs []float64, p float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
