package postgres

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
    id     BIGSERIAL     PRIMARY KEY,
    name   TEXT          NOT NULL,
    price  NUMERIC(10,2) NOT NULL
);

-- one inventory row per product
CREATE TABLE IF NOT EXISTS inventory (
    id          BIGSERIAL PRIMARY KEY,
    product_id  BIGINT    NOT NULL UNIQUE REFERENCES products(id) ON DELETE CASCADE,
    stock       INTEGER   NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS orders (
    id       UUID        PRIMARY KEY,
    created  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS order_products (
    id          BIGSERIAL PRIMARY KEY,
    order_id    UUID      NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
    product_id  BIGINT    NOT NULL REFERENCES products(id),
    quantity    INTEGER   NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_order_products_order_id ON order_products(order_id);
`

// Migrate applies the DDL. Safe to run on every start.
func Migrate(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: apply schema: %w", err)
	}
	return nil
}
