package orders

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*Repo, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &Repo{DB: mock}, mock
}

func q(sql string) string { return regexp.QuoteMeta(sql) }

var (
	inventoryCols = []string{"id", "stock", "product_id", "name", "price"}
	lineCols      = []string{"id", "quantity", "product_id", "name", "price"}
)

func TestListInventory(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(q("FROM inventory i")).
		WillReturnRows(pgxmock.NewRows(inventoryCols).
			AddRow(int64(1), 100, int64(1), "Widget", "9.99").
			AddRow(int64(2), -3, int64(5), "Gadget", "10.00"))

	got, err := repo.ListInventory(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Widget", got[0].Product.Name)
	assert.Equal(t, 100, got[0].Stock)
	assert.Equal(t, int64(5), got[1].Product.ID)
	assert.Equal(t, -3, got[1].Stock)
	assert.True(t, decimal.RequireFromString("10").Equal(got[1].Product.Price))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListInventoryEmpty(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(q("FROM inventory i")).WillReturnRows(pgxmock.NewRows(inventoryCols))

	got, err := repo.ListInventory(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCreateProduct(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q("INSERT INTO products")).
		WithArgs("Widget", "9.99").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery(q("INSERT INTO inventory")).
		WithArgs(int64(1), 100).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectCommit()

	inv, err := repo.CreateProduct(context.Background(), NewProduct{
		Name:  "Widget",
		Price: decimal.RequireFromString("9.99"),
		Stock: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), inv.ID)
	assert.Equal(t, int64(1), inv.Product.ID)
	assert.Equal(t, 100, inv.Stock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProductRollsBackWhenInventoryInsertFails(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q("INSERT INTO products")).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery(q("INSERT INTO inventory")).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := repo.CreateProduct(context.Background(), NewProduct{Name: "Widget", Price: decimal.NewFromInt(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert inventory")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustStock(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(q("UPDATE inventory i SET stock = i.stock + $2")).
		WithArgs(int64(1), -110).
		WillReturnRows(pgxmock.NewRows(inventoryCols).AddRow(int64(1), -10, int64(1), "Widget", "9.99"))

	inv, err := repo.AdjustStock(context.Background(), 1, -110)
	require.NoError(t, err)
	assert.Equal(t, -10, inv.Stock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustStockNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(q("UPDATE inventory i")).
		WithArgs(int64(42), 5).
		WillReturnRows(pgxmock.NewRows(inventoryCols))

	_, err := repo.AdjustStock(context.Background(), 42, 5)
	assert.ErrorIs(t, err, ErrInventoryNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustStockOutOfRange(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(q("UPDATE inventory i")).
		WithArgs(int64(1), 2147483647).
		WillReturnError(&pgconn.PgError{Code: "22003", Message: "integer out of range"})

	_, err := repo.AdjustStock(context.Background(), 1, 2147483647)
	assert.ErrorIs(t, err, ErrStockOutOfRange)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrder(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(q("FOR UPDATE")).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"product_id"}).AddRow(int64(1)).AddRow(int64(2)))
	mock.ExpectQuery(q("INSERT INTO orders")).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"created"}).AddRow(created))
	mock.ExpectExec(q("SET stock = stock - $2")).
		WithArgs(int64(2), 3).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(q("INSERT INTO order_products")).
		WithArgs(pgxmock.AnyArg(), int64(2), 3).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(q("SET stock = stock - $2")).
		WithArgs(int64(1), 5).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(q("INSERT INTO order_products")).
		WithArgs(pgxmock.AnyArg(), int64(1), 5).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(q("FROM order_products op")).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(lineCols).
			AddRow(int64(1), 3, int64(2), "Gadget", "1.50").
			AddRow(int64(2), 5, int64(1), "Widget", "9.99"))
	mock.ExpectCommit()

	order, items, err := repo.CreateOrder(context.Background(), []LineItem{
		{ProductID: 2, Quantity: 3},
		{ProductID: 1, Quantity: 5},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, order.ID)
	assert.Equal(t, created, order.Created)
	require.Len(t, items, 2)
	assert.Equal(t, order.ID, items[0].OrderID)
	assert.Equal(t, int64(2), items[0].Product.ID)
	assert.Equal(t, 5, items[1].Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderMissingProductRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q("FOR UPDATE")).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"product_id"}).AddRow(int64(1)))
	mock.ExpectQuery(q("INSERT INTO orders")).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"created"}).AddRow(time.Now()))
	mock.ExpectExec(q("SET stock = stock - $2")).
		WithArgs(int64(1), 5).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(q("INSERT INTO order_products")).
		WithArgs(pgxmock.AnyArg(), int64(1), 5).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(q("SET stock = stock - $2")).
		WithArgs(int64(99), 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	_, _, err := repo.CreateOrder(context.Background(), []LineItem{
		{ProductID: 1, Quantity: 5},
		{ProductID: 99, Quantity: 1},
	})

	var missing *MissingProductError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, 1, missing.Line)
	assert.Equal(t, int64(99), missing.ProductID)
	assert.ErrorIs(t, err, ErrInventoryNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrder(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := "6f1c2b0e-3f0a-4a57-9a40-0c4b8b1e2d11"
	created := time.Date(2026, 10, 1, 8, 30, 0, 0, time.UTC)

	mock.ExpectQuery(q("SELECT created FROM orders")).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"created"}).AddRow(created))
	mock.ExpectQuery(q("FROM order_products op")).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(lineCols).AddRow(int64(4), 2, int64(1), "Widget", "9.99"))

	order, items, err := repo.GetOrder(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, created, order.Created)
	require.Len(t, items, 1)
	assert.Equal(t, id, items[0].OrderID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrderNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := "6f1c2b0e-3f0a-4a57-9a40-0c4b8b1e2d11"

	mock.ExpectQuery(q("SELECT created FROM orders")).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"created"}))

	_, _, err := repo.GetOrder(context.Background(), id)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, _, err = repo.GetOrder(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListOrderProducts(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := "6f1c2b0e-3f0a-4a57-9a40-0c4b8b1e2d11"

	mock.ExpectQuery(q("ORDER BY op.id")).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(lineCols).
			AddRow(int64(4), 2, int64(1), "Widget", "9.99").
			AddRow(int64(5), 1, int64(1), "Widget", "9.99"))

	items, err := repo.ListOrderProducts(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, []int64{4, 5}, []int64{items[0].ID, items[1].ID})
	assert.True(t, decimal.RequireFromString("9.99").Equal(items[1].Product.Price))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderStockOverflowRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q("FOR UPDATE")).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"product_id"}).AddRow(int64(3)))
	mock.ExpectQuery(q("INSERT INTO orders")).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"created"}).AddRow(time.Now()))
	mock.ExpectExec(q("SET stock = stock - $2")).
		WithArgs(int64(3), 2147483647).
		WillReturnError(&pgconn.PgError{Code: "22003", Message: "integer out of range"})
	mock.ExpectRollback()

	_, _, err := repo.CreateOrder(context.Background(), []LineItem{{ProductID: 3, Quantity: 2147483647}})

	var overflow *StockRangeError
	require.ErrorAs(t, err, &overflow)
	assert.Equal(t, 0, overflow.Line)
	assert.Equal(t, int64(3), overflow.ProductID)
	assert.ErrorIs(t, err, ErrStockOutOfRange)
	assert.NoError(t, mock.ExpectationsWereMet())
}
