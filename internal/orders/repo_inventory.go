package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-inventory-orders/internal/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ListInventory returns every inventory row with its product, oldest first.
func (r *Repo) ListInventory(ctx context.Context) (out []Inventory, err error) {
	ctx, span := tracer.Start(ctx, "orders.ListInventory")
	defer func() { endSpan(span, err) }()

	rows, err := r.DB.Query(ctx, `
		SELECT i.id, i.stock, p.id, p.name, p.price::text
		FROM inventory i
		JOIN products p ON p.id = i.product_id
		ORDER BY i.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out = []Inventory{}
	for rows.Next() {
		inv, err := scanInventory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// CreateProduct inserts the product and its inventory row together.
func (r *Repo) CreateProduct(ctx context.Context, in NewProduct) (inv Inventory, err error) {
	ctx, span := tracer.Start(ctx, "orders.CreateProduct")
	defer func() { endSpan(span, err) }()

	inv = Inventory{Product: Product{Name: in.Name, Price: in.Price}, Stock: in.Stock}
	err = postgres.WithTx(ctx, r.DB, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`INSERT INTO products(name, price) VALUES ($1, $2::numeric) RETURNING id`,
			in.Name, in.Price.StringFixed(2),
		).Scan(&inv.Product.ID); err != nil {
			return fmt.Errorf("insert product: %w", err)
		}
		if err := tx.QueryRow(ctx,
			`INSERT INTO inventory(product_id, stock) VALUES ($1, $2) RETURNING id`,
			inv.Product.ID, in.Stock,
		).Scan(&inv.ID); err != nil {
			return fmt.Errorf("insert inventory: %w", err)
		}
		return nil
	})
	if err != nil {
		return Inventory{}, err
	}
	span.SetAttributes(attribute.Int64("product.id", inv.Product.ID))
	return inv, nil
}

// AdjustStock adds delta to the product's stock in a single statement, so
// concurrent adjustments never lose an update. There is no floor at zero; a
// result outside the column's range is ErrStockOutOfRange.
func (r *Repo) AdjustStock(ctx context.Context, productID int64, delta int) (inv Inventory, err error) {
	ctx, span := tracer.Start(ctx, "orders.AdjustStock", trace.WithAttributes(
		attribute.Int64("product.id", productID),
		attribute.Int("stock.delta", delta),
	))
	defer func() { endSpan(span, err) }()

	row := r.DB.QueryRow(ctx, `
		UPDATE inventory i SET stock = i.stock + $2
		FROM products p
		WHERE i.product_id = $1 AND p.id = i.product_id
		RETURNING i.id, i.stock, p.id, p.name, p.price::text`,
		productID, delta,
	)
	inv, err = scanInventory(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Inventory{}, ErrInventoryNotFound
	}
	if isOutOfRange(err) {
		return Inventory{}, ErrStockOutOfRange
	}
	return inv, err
}

func scanInventory(row pgx.Row) (Inventory, error) {
	var (
		inv   Inventory
		price string
	)
	if err := row.Scan(&inv.ID, &inv.Stock, &inv.Product.ID, &inv.Product.Name, &price); err != nil {
		return Inventory{}, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return Inventory{}, fmt.Errorf("product %d price %q: %w", inv.Product.ID, price, err)
	}
	inv.Product.Price = p
	return inv, nil
}
