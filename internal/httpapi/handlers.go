package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vendorvibe/order-core-go/internal/cart"
	"github.com/vendorvibe/order-core-go/internal/order"
	"github.com/vendorvibe/order-core-go/internal/placement"
	"github.com/vendorvibe/order-core-go/internal/status"
	"github.com/vendorvibe/order-core-go/pkg/idempotency"
	"github.com/vendorvibe/order-core-go/pkg/metrics"
)

// Actor identity arrives pre-authenticated from the routing layer in front of
// this service.
const (
	HeaderActorID   = "X-Actor-Id"
	HeaderActorRole = "X-Actor-Role"
)

type Handler struct {
	placement *placement.Service
	engine    *status.Engine
	orders    order.Repository
	carts     *cart.Service

	srvMetrics   *metrics.ServerMetrics
	orderMetrics *metrics.OrderMetrics
}

func New(p *placement.Service, e *status.Engine, orders order.Repository, carts *cart.Service, srv *metrics.ServerMetrics, om *metrics.OrderMetrics) *Handler {
	return &Handler{
		placement:    p,
		engine:       e,
		orders:       orders,
		carts:        carts,
		srvMetrics:   srv,
		orderMetrics: om,
	}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.placeOrder)
		r.Get("/", h.listOrders)
		r.Get("/{orderID}", h.getOrder)
		r.Put("/{orderID}/status", h.updateStatus)
	})
	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.getCart)
		r.Delete("/", h.clearCart)
		r.Post("/items", h.addCartItem)
		r.Put("/items/{productID}", h.updateCartItem)
		r.Delete("/items/{productID}", h.removeCartItem)
	})
	return r
}

type placeOrderRequest struct {
	Items          []placement.ItemRequest `json:"items"`
	DeliveryOption string                  `json:"delivery_option"`
	CouponCode     string                  `json:"coupon_code,omitempty"`
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	actor, ok := h.requireActor(w, r, "place_order", start)
	if !ok {
		return
	}

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "place_order", start, order.E(order.KindValidation, "invalid json body"))
		return
	}

	opt := order.DeliveryOption(req.DeliveryOption)
	if req.DeliveryOption == "" {
		opt = order.DeliveryStandard
	}

	o, err := h.placement.PlaceOrder(r.Context(), placement.Request{
		VendorID:       actor,
		Items:          req.Items,
		DeliveryOption: opt,
		CouponCode:     strings.TrimSpace(req.CouponCode),
		IdempotencyKey: idempotency.Key(r),
	})
	if err != nil {
		kind := order.KindOf(err)
		h.orderMetrics.OrdersRejected.WithLabelValues(string(kind)).Inc()
		if kind == order.KindInsufficientStock {
			h.orderMetrics.StockConflicts.Inc()
		}
		h.writeError(w, "place_order", start, err)
		return
	}

	h.orderMetrics.OrdersPlaced.Inc()
	h.writeJSON(w, "place_order", start, http.StatusCreated, o)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	actor, ok := h.requireActor(w, r, "list_orders", start)
	if !ok {
		return
	}
	role := order.Role(strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderActorRole))))
	if role != order.RoleSupplier {
		role = order.RoleVendor
	}

	orders, err := h.orders.ListForActor(r.Context(), actor, role)
	if err != nil {
		h.writeError(w, "list_orders", start, err)
		return
	}
	if orders == nil {
		orders = []*order.Order{}
	}
	h.writeJSON(w, "list_orders", start, http.StatusOK, orders)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	actor, ok := h.requireActor(w, r, "get_order", start)
	if !ok {
		return
	}

	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeError(w, "get_order", start, err)
		return
	}
	if o.VendorID != actor && o.SupplierID != actor {
		h.writeError(w, "get_order", start, order.E(order.KindUnauthorized, "actor %s is not a party to this order", actor))
		return
	}
	h.writeJSON(w, "get_order", start, http.StatusOK, o)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	actor, ok := h.requireActor(w, r, "update_status", start)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "update_status", start, order.E(order.KindValidation, "invalid json body"))
		return
	}
	next, err := order.ParseStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if err != nil {
		h.writeError(w, "update_status", start, order.E(order.KindValidation, "%s", err.Error()))
		return
	}

	o, err := h.engine.UpdateStatus(r.Context(), chi.URLParam(r, "orderID"), actor, next)
	if err != nil {
		h.writeError(w, "update_status", start, err)
		return
	}
	h.writeJSON(w, "update_status", start, http.StatusOK, o)
}

type addCartItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int32  `json:"quantity"`
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	actor, ok := h.requireActor(w, r, "add_cart_item", start)
	if !ok {
		return
	}
	var req addCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "add_cart_item", start, order.E(order.KindValidation, "invalid json body"))
		return
	}
	c, err := h.carts.AddItem(r.Context(), actor, req.ProductID, req.Quantity)
	if err != nil {
		h.writeError(w, "add_cart_item", start, err)
		return
	}
	h.writeJSON(w, "add_cart_item", start, http.StatusOK, c)
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	actor, ok := h.requireActor(w, r, "get_cart", start)
	if !ok {
		return
	}
	c, err := h.carts.Get(r.Context(), actor)
	if err != nil {
		h.writeError(w, "get_cart", start, err)
		return
	}
	h.writeJSON(w, "get_cart", start, http.StatusOK, c)
}

type updateCartItemRequest struct {
	Quantity int32 `json:"quantity"`
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	actor, ok := h.requireActor(w, r, "update_cart_item", start)
	if !ok {
		return
	}
	var req updateCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "update_cart_item", start, order.E(order.KindValidation, "invalid json body"))
		return
	}
	c, err := h.carts.UpdateQuantity(r.Context(), actor, chi.URLParam(r, "productID"), req.Quantity)
	if err != nil {
		h.writeError(w, "update_cart_item", start, err)
		return
	}
	h.writeJSON(w, "update_cart_item", start, http.StatusOK, c)
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	actor, ok := h.requireActor(w, r, "remove_cart_item", start)
	if !ok {
		return
	}
	c, err := h.carts.RemoveItem(r.Context(), actor, chi.URLParam(r, "productID"))
	if err != nil {
		h.writeError(w, "remove_cart_item", start, err)
		return
	}
	h.writeJSON(w, "remove_cart_item", start, http.StatusOK, c)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	actor, ok := h.requireActor(w, r, "clear_cart", start)
	if !ok {
		return
	}
	c, err := h.carts.Clear(r.Context(), actor)
	if err != nil {
		h.writeError(w, "clear_cart", start, err)
		return
	}
	h.writeJSON(w, "clear_cart", start, http.StatusOK, c)
}

func (h *Handler) requireActor(w http.ResponseWriter, r *http.Request, handler string, start time.Time) (string, bool) {
	actor := strings.TrimSpace(r.Header.Get(HeaderActorID))
	if actor == "" {
		h.writeError(w, handler, start, order.E(order.KindUnauthorized, "missing %s header", HeaderActorID))
		return "", false
	}
	return actor, true
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, handler string, start time.Time, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
	h.observe(handler, code, start)
}

func (h *Handler) writeError(w http.ResponseWriter, handler string, start time.Time, err error) {
	kind := order.KindOf(err)
	if kind == "" {
		kind = order.KindPersistence
	}
	code := statusFor(kind)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: string(kind), Message: err.Error()})
	h.observe(handler, code, start)
}

func (h *Handler) observe(handler string, code int, start time.Time) {
	h.srvMetrics.Requests.WithLabelValues(handler, strconv.Itoa(code)).Inc()
	h.srvMetrics.LatencyMS.WithLabelValues(handler).Observe(float64(time.Since(start).Milliseconds()))
}

func statusFor(kind order.Kind) int {
	switch kind {
	case order.KindValidation, order.KindMultiSupplier:
		return http.StatusBadRequest
	case order.KindNotFound, order.KindCouponNotFound:
		return http.StatusNotFound
	case order.KindInsufficientStock, order.KindInvalidTransition, order.KindCouponUsageExceeded:
		return http.StatusConflict
	case order.KindCouponExpired, order.KindCouponBelowMinimum:
		return http.StatusUnprocessableEntity
	case order.KindUnauthorized:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
