package orders

import (
	"errors"
	"fmt"
)

var (
	ErrInventoryNotFound = errors.New("inventory of product not found")
	ErrOrderNotFound     = errors.New("order not found")
	// ErrStockOutOfRange means the resulting stock does not fit the stock column.
	ErrStockOutOfRange = errors.New("stock out of range")
)

// MissingProductError reports the order line whose product has no inventory row.
// The whole order is rolled back when it is returned.
type MissingProductError struct {
	Line      int // zero-based index in the request
	ProductID int64
}

func (e *MissingProductError) Error() string {
	return fmt.Sprintf("order line %d: product %d: %v", e.Line, e.ProductID, ErrInventoryNotFound)
}

func (e *MissingProductError) Unwrap() error { return ErrInventoryNotFound }

// StockRangeError reports the order line whose decrement overflowed the stock column.
type StockRangeError struct {
	Line      int
	ProductID int64
}

func (e *StockRangeError) Error() string {
	return fmt.Sprintf("order line %d: product %d: %v", e.Line, e.ProductID, ErrStockOutOfRange)
}

func (e *StockRangeError) Unwrap() error { return ErrStockOutOfRange }
