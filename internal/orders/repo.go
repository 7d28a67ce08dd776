package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-inventory-orders/internal/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/ariefcatur/go-inventory-orders/internal/orders")

// SQLSTATE numeric_value_out_of_range
const codeNumericOutOfRange = "22003"

type Repo struct{ DB postgres.DB }

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// CreateOrder opens an order and, line by line in request order, decrements the
// product's stock and records an order line. Everything happens in one
// transaction: a line without inventory rolls back the order and every earlier
// decrement, and is reported as *MissingProductError. Stock is not checked for
// sufficiency and may go negative.
func (r *Repo) CreateOrder(ctx context.Context, lines []LineItem) (order Order, items []OrderProduct, err error) {
	ctx, span := tracer.Start(ctx, "orders.CreateOrder", trace.WithAttributes(attribute.Int("order.lines", len(lines))))
	defer func() { endSpan(span, err) }()

	order.ID = uuid.NewString()
	err = postgres.WithTx(ctx, r.DB, func(tx pgx.Tx) error {
		if err := lockInventory(ctx, tx, lines); err != nil {
			return err
		}

		if err := tx.QueryRow(ctx, `INSERT INTO orders(id) VALUES ($1) RETURNING created`, order.ID).
			Scan(&order.Created); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for i, it := range lines {
			ct, err := tx.Exec(ctx, `UPDATE inventory SET stock = stock - $2 WHERE product_id = $1`, it.ProductID, it.Quantity)
			if isOutOfRange(err) {
				return &StockRangeError{Line: i, ProductID: it.ProductID}
			}
			if err != nil {
				return fmt.Errorf("decrement stock of product %d: %w", it.ProductID, err)
			}
			if ct.RowsAffected() != 1 {
				return &MissingProductError{Line: i, ProductID: it.ProductID}
			}

			if _, err := tx.Exec(ctx, `
				INSERT INTO order_products(order_id, product_id, quantity)
				VALUES ($1, $2, $3)`,
				order.ID, it.ProductID, it.Quantity,
			); err != nil {
				return fmt.Errorf("insert order line %d: %w", i, err)
			}
		}

		var err error
		items, err = listOrderProducts(ctx, tx, order.ID)
		return err
	})
	if err != nil {
		return Order{}, nil, err
	}
	span.SetAttributes(attribute.String("order.id", order.ID))
	return order, items, nil
}

// lockInventory takes row locks on every inventory row the order touches, in
// ascending product id, so two orders over the same products cannot deadlock.
func lockInventory(ctx context.Context, tx pgx.Tx, lines []LineItem) error {
	ids := make([]int64, 0, len(lines))
	for _, it := range lines {
		ids = append(ids, it.ProductID)
	}
	rows, err := tx.Query(ctx, `
		SELECT product_id FROM inventory
		WHERE product_id = ANY($1)
		ORDER BY product_id
		FOR UPDATE`, ids)
	if err != nil {
		return fmt.Errorf("lock inventory: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
	}
	return rows.Err()
}

func (r *Repo) GetOrder(ctx context.Context, id string) (order Order, items []OrderProduct, err error) {
	ctx, span := tracer.Start(ctx, "orders.GetOrder", trace.WithAttributes(attribute.String("order.id", id)))
	defer func() { endSpan(span, err) }()

	if _, perr := uuid.Parse(id); perr != nil {
		return Order{}, nil, ErrOrderNotFound
	}

	order.ID = id
	err = r.DB.QueryRow(ctx, `SELECT created FROM orders WHERE id = $1`, id).Scan(&order.Created)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, nil, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, nil, err
	}

	items, err = listOrderProducts(ctx, r.DB, id)
	if err != nil {
		return Order{}, nil, err
	}
	return order, items, nil
}

// ListOrderProducts returns the lines of one order in insertion order.
func (r *Repo) ListOrderProducts(ctx context.Context, orderID string) ([]OrderProduct, error) {
	return listOrderProducts(ctx, r.DB, orderID)
}

func listOrderProducts(ctx context.Context, q querier, orderID string) ([]OrderProduct, error) {
	rows, err := q.Query(ctx, `
		SELECT op.id, op.quantity, p.id, p.name, p.price::text
		FROM order_products op
		JOIN products p ON p.id = op.product_id
		WHERE op.order_id = $1
		ORDER BY op.id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order products: %w", err)
	}
	defer rows.Close()

	out := []OrderProduct{}
	for rows.Next() {
		op := OrderProduct{OrderID: orderID}
		var price string
		if err := rows.Scan(&op.ID, &op.Quantity, &op.Product.ID, &op.Product.Name, &price); err != nil {
			return nil, err
		}
		if op.Product.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("product %d price %q: %w", op.Product.ID, price, err)
		}
		out = append(out, op)
	}
	return out, rows.Err()
}

func isOutOfRange(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeNumericOutOfRange
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
