package httpx

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/ariefcatur/go-inventory-orders/internal/validate"
	"github.com/go-chi/chi/v5"
)

const (
	msgStockUpdated         = "Stock of product update successfully"
	errMsgInventoryNotFound = "Inventory of product not found"
	errMsgStockOutOfRange   = "Ensure the resulting stock is between -2147483648 and 2147483647."
)

// adjustStock adds a signed delta to the product's stock. No floor is applied.
func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: errMsgInventoryNotFound})
		return
	}

	body, ok := readBody(w, r)
	if !ok {
		return
	}
	delta, errs := validate.StockDelta(body)
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	ctx := r.Context()
	inv, err := h.Store.AdjustStock(ctx, productID, delta)
	if errors.Is(err, orders.ErrInventoryNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: errMsgInventoryNotFound})
		return
	}
	if errors.Is(err, orders.ErrStockOutOfRange) {
		writeJSON(w, http.StatusBadRequest, validate.FieldErrors{"stock": {errMsgStockOutOfRange}})
		return
	}
	if err != nil {
		h.serverError(w, r, "adjust stock", err)
		return
	}
	h.stockChanged(ctx)

	h.publish(ctx, orders.TopicStockAdjusted, orders.EventStockAdjusted, strconv.FormatInt(productID, 10),
		orders.StockAdjustedPayload{ProductID: productID, Delta: delta, Stock: inv.Stock, Source: "api"})
	writeJSON(w, http.StatusOK, messageResponse{Message: msgStockUpdated})
}
