package contracts

import (
	"encoding/json"
	"time"
)

// OrderEvent is the wire shape every order notification uses, regardless of
// transport. Order carries the full serialized aggregate at emission time.
type OrderEvent struct {
	EventID    string          `json:"event_id"`
	Type       string          `json:"type"`
	OrderID    string          `json:"order_id"`
	VendorID   string          `json:"vendor_id"`
	SupplierID string          `json:"supplier_id"`
	PrevStatus string          `json:"prev_status,omitempty"`
	NewStatus  string          `json:"new_status,omitempty"`
	Order      json.RawMessage `json:"order,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

const (
	EventOrderCreated       = "order_created"
	EventOrderStatusChanged = "order_status_changed"
)
