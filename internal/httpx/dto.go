package httpx

import (
	"time"

	"github.com/ariefcatur/go-inventory-orders/internal/orders"
)

type productResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
}

type inventoryResponse struct {
	ID      int64           `json:"id"`
	Product productResponse `json:"product"`
	Stock   int             `json:"stock"`
}

type orderProductResponse struct {
	ID            int64           `json:"id"`
	Order         string          `json:"order"`
	Product       productResponse `json:"product"`
	TotalProducts int             `json:"total_products"`
}

type orderResponse struct {
	ID       string                 `json:"id"`
	Created  time.Time              `json:"created"`
	Products []orderProductResponse `json:"products"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Line      *int   `json:"line,omitempty"`
	ProductID *int64 `json:"product_id,omitempty"`
}

func toProduct(p orders.Product) productResponse {
	return productResponse{ID: p.ID, Name: p.Name, Price: p.Price.StringFixed(2)}
}

func toInventory(inv orders.Inventory) inventoryResponse {
	return inventoryResponse{ID: inv.ID, Product: toProduct(inv.Product), Stock: inv.Stock}
}

func toInventoryList(in []orders.Inventory) []inventoryResponse {
	out := make([]inventoryResponse, 0, len(in))
	for _, inv := range in {
		out = append(out, toInventory(inv))
	}
	return out
}

func toOrderProducts(items []orders.OrderProduct) []orderProductResponse {
	out := make([]orderProductResponse, 0, len(items))
	for _, it := range items {
		out = append(out, orderProductResponse{
			ID:            it.ID,
			Order:         it.OrderID,
			Product:       toProduct(it.Product),
			TotalProducts: it.Quantity,
		})
	}
	return out
}
