package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID    int64
	Name  string
	Price decimal.Decimal
}

// Inventory holds the stock count of exactly one product.
type Inventory struct {
	ID      int64
	Product Product
	Stock   int
}

type Order struct {
	ID      string // uuid
	Created time.Time
}

// OrderProduct is one line of an order.
type OrderProduct struct {
	ID       int64
	OrderID  string
	Product  Product
	Quantity int
}

// NewProduct is a validated product-creation request.
type NewProduct struct {
	Name  string
	Price decimal.Decimal
	Stock int
}

// LineItem is a validated purchase line: decrement ProductID's stock by Quantity.
type LineItem struct {
	ProductID int64
	Quantity  int
}
