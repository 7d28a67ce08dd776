package httpx

import (
	"net/http"
	"strconv"

	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/ariefcatur/go-inventory-orders/internal/redisx"
	"github.com/ariefcatur/go-inventory-orders/internal/validate"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	key, useCache := h.listingKey(ctx)
	var cached []inventoryResponse
	if useCache && h.cached(ctx, key, &cached) {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	inv, err := h.Store.ListInventory(ctx)
	if err != nil {
		h.serverError(w, r, "list inventory", err)
		return
	}
	out := toInventoryList(inv)
	if useCache {
		h.cache(ctx, key, out, redisx.TTLInventoryList)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	in, errs := validate.Product(body)
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	ctx := r.Context()
	inv, err := h.Store.CreateProduct(ctx, in)
	if err != nil {
		h.serverError(w, r, "create product", err)
		return
	}
	h.stockChanged(ctx)

	out := toInventory(inv)
	h.publish(ctx, orders.TopicProductCreated, orders.EventProductCreated, strconv.FormatInt(inv.Product.ID, 10),
		orders.ProductCreatedPayload{
			ProductID: inv.Product.ID,
			Name:      inv.Product.Name,
			Price:     out.Product.Price,
			Stock:     inv.Stock,
		})
	writeJSON(w, http.StatusCreated, out)
}
