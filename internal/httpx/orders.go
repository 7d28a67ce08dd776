package httpx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/ariefcatur/go-inventory-orders/internal/redisx"
	"github.com/ariefcatur/go-inventory-orders/internal/validate"
	"github.com/go-chi/chi/v5"
)

// createOrder opens an order and decrements stock for every line, all or nothing.
// A line without inventory fails the whole order with 404.
func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	lines, errs := validate.Order(body)
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	ctx := r.Context()
	order, items, err := h.Store.CreateOrder(ctx, lines)
	var missing *orders.MissingProductError
	if errors.As(err, &missing) {
		writeJSON(w, http.StatusNotFound, errorResponse{
			Error:     errMsgInventoryNotFound,
			Line:      &missing.Line,
			ProductID: &missing.ProductID,
		})
		return
	}
	var overflow *orders.StockRangeError
	if errors.As(err, &overflow) {
		field := fmt.Sprintf("products[%d].total_products", overflow.Line)
		writeJSON(w, http.StatusBadRequest, validate.FieldErrors{field: {errMsgStockOutOfRange}})
		return
	}
	if err != nil {
		h.serverError(w, r, "create order", err)
		return
	}
	h.stockChanged(ctx)

	out := toOrderProducts(items)
	h.cache(ctx, fmt.Sprintf(redisx.KeyOrder, order.ID),
		orderResponse{ID: order.ID, Created: order.Created, Products: out}, redisx.TTLOrder)

	qty := make([]orders.ItemQty, 0, len(lines))
	for _, l := range lines {
		qty = append(qty, orders.ItemQty{ProductID: l.ProductID, Qty: l.Quantity})
	}
	h.publish(ctx, orders.TopicOrderCreated, orders.EventOrderCreated, order.ID,
		orders.OrderCreatedPayload{OrderID: order.ID, Items: qty})

	writeJSON(w, http.StatusCreated, out)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	key := fmt.Sprintf(redisx.KeyOrder, id)
	var cached orderResponse
	if h.cached(ctx, key, &cached) {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	order, items, err := h.Store.GetOrder(ctx, id)
	if errors.Is(err, orders.ErrOrderNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Order not found"})
		return
	}
	if err != nil {
		h.serverError(w, r, "get order", err)
		return
	}

	out := orderResponse{ID: order.ID, Created: order.Created, Products: toOrderProducts(items)}
	h.cache(ctx, key, out, redisx.TTLOrder)
	writeJSON(w, http.StatusOK, out)
}
