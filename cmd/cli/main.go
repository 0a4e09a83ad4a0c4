package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/vendorvibe/order-core-go/internal/coupon"
	"github.com/vendorvibe/order-core-go/internal/inventory"
	"github.com/vendorvibe/order-core-go/internal/notify"
	"github.com/vendorvibe/order-core-go/internal/order"
	"github.com/vendorvibe/order-core-go/internal/placement"
	"github.com/vendorvibe/order-core-go/internal/pricing"
	"github.com/vendorvibe/order-core-go/internal/status"
)

// Demo CLI: runs the placement and status engines against in-memory stores,
// so the consistency scenarios can be exercised without a database or broker.

type scenario struct {
	Name        string
	Description string
}

type model struct {
	scenarios []scenario
	selected  int
	status    string
	detail    string
	busy      bool
}

func initialModel() model {
	return model{
		scenarios: []scenario{
			{"place", "Place an order with a bulk discount and coupon"},
			{"oversell", "Race 10 buyers over 3 units of stock"},
			{"coupon", "Race 10 buyers over a single-use coupon"},
			{"cancel", "Place, ship nothing, cancel, verify stock restored"},
		},
		status: "Ready",
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "up":
			if m.selected > 0 {
				m.selected--
			}
		case "down":
			if m.selected < len(m.scenarios)-1 {
				m.selected++
			}
		case "enter":
			if m.busy {
				return m, nil
			}
			m.busy = true
			m.status = "Running..."
			name := m.scenarios[m.selected].Name
			return m, func() tea.Msg { return runScenario(name) }
		}
	case scenarioResult:
		m.busy = false
		m.status = msg.status
		m.detail = msg.detail
	}
	return m, nil
}

func (m model) View() string {
	b := &strings.Builder{}
	fmt.Fprintln(b, "vendorvibe order-core CLI")
	fmt.Fprintln(b, "")
	fmt.Fprintln(b, "Scenarios:")
	for i, scn := range m.scenarios {
		marker := " "
		if i == m.selected {
			marker = ">"
		}
		fmt.Fprintf(b, " %s %s - %s\n", marker, scn.Name, scn.Description)
	}
	fmt.Fprintln(b, "")
	fmt.Fprintf(b, "Status: %s\n", m.status)
	if m.detail != "" {
		fmt.Fprintf(b, "Detail: %s\n", m.detail)
	}
	fmt.Fprintln(b, "\nControls: up/down select, enter to run, q to quit")
	return b.String()
}

type scenarioResult struct {
	status string
	detail string
}

type demo struct {
	ledger  *inventory.MemoryLedger
	coupons *coupon.MemoryValidator
	placer  *placement.Service
	engine  *status.Engine
}

func newDemo(stock int32) *demo {
	ledger := inventory.NewMemoryLedger()
	coupons := coupon.NewMemoryValidator()
	orders := order.NewMemoryRepository()
	calc := pricing.NewCalculator(pricing.DefaultConfig())
	dispatcher := notify.Nop{}

	ctx := context.Background()
	_ = ledger.Upsert(ctx, inventory.Product{
		ID:              "sku-mug",
		Name:            "Ceramic Mug",
		Price:           decimal.NewFromInt(10),
		Available:       stock,
		MinBulkQty:      5,
		DiscountPercent: decimal.NewFromInt(20),
		SupplierID:      "supplier-1",
		Active:          true,
	})
	one := int32(1)
	_ = coupons.Upsert(ctx, coupon.Coupon{
		Code:            "SAVE10",
		DiscountPercent: decimal.NewFromInt(10),
		MinOrderValue:   decimal.NewFromInt(30),
		ValidFrom:       time.Now().Add(-time.Hour),
		ValidUntil:      time.Now().Add(time.Hour),
		UsageLimit:      &one,
	})

	return &demo{
		ledger:  ledger,
		coupons: coupons,
		placer:  placement.NewService(ledger, coupons, orders, calc, dispatcher),
		engine:  status.NewEngine(orders, ledger, dispatcher),
	}
}

func (d *demo) place(qty int32, couponCode string) (*order.Order, error) {
	return d.placer.PlaceOrder(context.Background(), placement.Request{
		VendorID:       "vendor-1",
		Items:          []placement.ItemRequest{{ProductID: "sku-mug", Quantity: qty}},
		DeliveryOption: order.DeliveryStandard,
		CouponCode:     couponCode,
	})
}

func runScenario(name string) scenarioResult {
	switch name {
	case "oversell":
		d := newDemo(3)
		var wg sync.WaitGroup
		var mu sync.Mutex
		placed, rejected := 0, 0
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := d.place(1, "")
				mu.Lock()
				if err != nil {
					rejected++
				} else {
					placed++
				}
				mu.Unlock()
			}()
		}
		wg.Wait()
		left, _ := d.ledger.Available("sku-mug")
		return scenarioResult{
			status: fmt.Sprintf("placed=%d rejected=%d", placed, rejected),
			detail: fmt.Sprintf("3 units of stock, 10 buyers; %d left on the shelf", left),
		}
	case "coupon":
		d := newDemo(100)
		var wg sync.WaitGroup
		var mu sync.Mutex
		redeemed, rejected := 0, 0
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := d.place(5, "SAVE10")
				mu.Lock()
				if err != nil {
					rejected++
				} else {
					redeemed++
				}
				mu.Unlock()
			}()
		}
		wg.Wait()
		return scenarioResult{
			status: fmt.Sprintf("redeemed=%d rejected=%d", redeemed, rejected),
			detail: "single-use coupon, 10 concurrent buyers",
		}
	case "cancel":
		d := newDemo(10)
		o, err := d.place(5, "")
		if err != nil {
			return scenarioResult{status: "placement failed: " + err.Error()}
		}
		afterPlace, _ := d.ledger.Available("sku-mug")
		if _, err := d.engine.UpdateStatus(context.Background(), o.ID, "supplier-1", order.StatusCancelled); err != nil {
			return scenarioResult{status: "cancel failed: " + err.Error()}
		}
		afterCancel, _ := d.ledger.Available("sku-mug")
		return scenarioResult{
			status: "order cancelled",
			detail: fmt.Sprintf("available after place=%d, after cancel=%d", afterPlace, afterCancel),
		}
	default:
		d := newDemo(100)
		o, err := d.place(5, "SAVE10")
		if err != nil {
			return scenarioResult{status: "placement failed: " + err.Error()}
		}
		return scenarioResult{
			status: fmt.Sprintf("order %s placed (%s)", o.ID, o.Status),
			detail: fmt.Sprintf("subtotal=%s discount=%s fee=%s total=%s", o.Subtotal, o.Discount, o.DeliveryFee, o.Total),
		}
	}
}

func main() {
	runCmd := flag.String("run", "", "run scenario: place|oversell|coupon|cancel")
	flag.Parse()

	if *runCmd != "" {
		res := runScenario(*runCmd)
		fmt.Println(res.status)
		if res.detail != "" {
			fmt.Println(res.detail)
		}
		return
	}

	p := tea.NewProgram(initialModel())
	if _, err := p.Run(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}
