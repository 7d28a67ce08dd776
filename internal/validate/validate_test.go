package validate

import (
	"testing"
	"time"

	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProduct(t *testing.T) {
	p, errs := Product([]byte(`{"name":"Widget","price":"9.99","stock":100}`))
	require.Empty(t, errs)
	assert.Equal(t, "Widget", p.Name)
	assert.True(t, decimal.RequireFromString("9.99").Equal(p.Price))
	assert.Equal(t, 100, p.Stock)

	p, errs = Product([]byte(`{"name":"Gadget","price":12.5,"stock":0,"ignored":true}`))
	require.Empty(t, errs)
	assert.Equal(t, "12.5", p.Price.String())
	assert.Equal(t, 0, p.Stock)
}

func TestProductErrors(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
		msg   string
	}{
		{"missing name", `{"price":"1.00","stock":1}`, "name", "This field is required."},
		{"blank name", `{"name":"","price":"1.00","stock":1}`, "name", "This field may not be blank."},
		{"missing price", `{"name":"a","stock":1}`, "price", "This field is required."},
		{"price not a number", `{"name":"a","price":"abc","stock":1}`, "price", "A valid number is required."},
		{"price bool", `{"name":"a","price":true,"stock":1}`, "price", "A valid number is required."},
		{"negative price", `{"name":"a","price":"-1","stock":1}`, "price", "Ensure this value is greater than or equal to 0."},
		{"too many decimals", `{"name":"a","price":"1.999","stock":1}`, "price", "Ensure that there are no more than 2 decimal places."},
		{"too many digits", `{"name":"a","price":"123456789","stock":1}`, "price", "Ensure that there are no more than 8 digits before the decimal point."},
		{"tiny exponent", `{"name":"a","price":"1e-50000000","stock":1}`, "price", "Ensure that there are no more than 2 decimal places."},
		{"huge exponent", `{"name":"a","price":"1e50000000","stock":1}`, "price", "Ensure that there are no more than 8 digits before the decimal point."},
		{"exponent digits", `{"name":"a","price":1e9,"stock":1}`, "price", "Ensure that there are no more than 8 digits before the decimal point."},
		{"empty price", `{"name":"a","price":"","stock":1}`, "price", "A valid number is required."},
		{"null price", `{"name":"a","price":null,"stock":1}`, "price", "This field is required."},
		{"missing stock", `{"name":"a","price":"1"}`, "stock", "This field is required."},
		{"negative stock", `{"name":"a","price":"1","stock":-1}`, "stock", "Ensure this value is greater than or equal to 0."},
		{"stock not int", `{"name":"a","price":"1","stock":"ten"}`, "stock", "A valid integer is required."},
		{"stock beyond int4", `{"name":"a","price":"1","stock":3000000000}`, "stock", "Ensure this value is less than or equal to 2147483647."},
		{"not an object", `[1,2]`, NonFieldErrors, "Invalid data. Expected an object, but got array."},
		{"trailing data", `{"name":"a","price":"1","stock":1}xyz`, NonFieldErrors, "Invalid JSON: unexpected data after the top-level value."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Now()
			_, errs := Product([]byte(tt.body))
			assert.Less(t, time.Since(start), time.Second)
			require.NotEmpty(t, errs)
			assert.Contains(t, errs[tt.field], tt.msg)
		})
	}
}

func TestProductPriceForms(t *testing.T) {
	for body, want := range map[string]string{
		`{"name":"a","price":"0e50000000","stock":1}`:  "0.00",
		`{"name":"a","price":"9.990","stock":1}`:      "9.99",
		`{"name":"a","price":1.5e2,"stock":1}`:        "150.00",
		`{"name":"a","price":"99999999.99","stock":1}`: "99999999.99",
	} {
		p, errs := Product([]byte(body))
		require.Empty(t, errs, body)
		assert.Equal(t, want, p.Price.StringFixed(2), body)
	}
}

func TestProductReportsEveryMissingField(t *testing.T) {
	_, errs := Product([]byte(`{}`))
	assert.Len(t, errs, 3)
	assert.Contains(t, errs.Error(), "name: This field is required.")
}

func TestStockDelta(t *testing.T) {
	d, errs := StockDelta([]byte(`{"stock":-10}`))
	require.Empty(t, errs)
	assert.Equal(t, -10, d)

	d, errs = StockDelta([]byte(`{"stock":0}`))
	require.Empty(t, errs)
	assert.Equal(t, 0, d)

	_, errs = StockDelta([]byte(`{}`))
	assert.Equal(t, []string{"This field is required."}, errs["stock"])

	_, errs = StockDelta([]byte(`{"stock":1.5}`))
	assert.Equal(t, []string{"A valid integer is required."}, errs["stock"])

	_, errs = StockDelta([]byte(`{"stock":3000000000}`))
	assert.Equal(t, []string{"Ensure this value is less than or equal to 2147483647."}, errs["stock"])

	_, errs = StockDelta([]byte(`{"stock":-3000000000}`))
	assert.Equal(t, []string{"Ensure this value is greater than or equal to -2147483648."}, errs["stock"])

	d, errs = StockDelta([]byte(`{"stock":-2147483648}`))
	require.Empty(t, errs)
	assert.Equal(t, -2147483648, d)

	_, errs = StockDelta([]byte(`{"stock":1} {"stock":2}`))
	assert.NotEmpty(t, errs[NonFieldErrors])

	_, errs = StockDelta([]byte(`{"stock":`))
	assert.NotEmpty(t, errs[NonFieldErrors])

	_, errs = StockDelta(nil)
	assert.NotEmpty(t, errs[NonFieldErrors])
}

func TestOrder(t *testing.T) {
	lines, errs := Order([]byte(`{"products":[{"product_id":3,"total_products":2},{"product_id":1,"total_products":5}]}`))
	require.Empty(t, errs)
	assert.Equal(t, []orders.LineItem{{ProductID: 3, Quantity: 2}, {ProductID: 1, Quantity: 5}}, lines)
}

func TestOrderErrors(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
		msg   string
	}{
		{"missing products", `{}`, "products", "This field is required."},
		{"null products", `{"products":null}`, "products", "This field is required."},
		{"empty products", `{"products":[]}`, "products", "This list may not be empty."},
		{"missing product id", `{"products":[{"total_products":1}]}`, "products[0].product_id", "This field is required."},
		{"missing quantity", `{"products":[{"product_id":1,"total_products":1},{"product_id":2}]}`, "products[1].total_products", "This field is required."},
		{"zero quantity", `{"products":[{"product_id":1,"total_products":0}]}`, "products[0].total_products", "Ensure this value is greater than or equal to 1."},
		{"zero product id", `{"products":[{"product_id":0,"total_products":1}]}`, "products[0].product_id", "Ensure this value is greater than or equal to 1."},
		{"products not a list", `{"products":{"product_id":1}}`, "products", "Expected a list of items."},
		{"quantity beyond int4", `{"products":[{"product_id":1,"total_products":3000000000}]}`, "products[0].total_products", "Ensure this value is less than or equal to 2147483647."},
		{"quantity not int", `{"products":[{"product_id":1,"total_products":1},{"product_id":2,"total_products":"x"}]}`, "products[1].total_products", "A valid integer is required."},
		{"line not an object", `{"products":[{"product_id":1,"total_products":1},7]}`, "products[1]", "Invalid data. Expected an object, but got number."},
		{"null line", `{"products":[null]}`, "products[0].product_id", "This field is required."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, errs := Order([]byte(tt.body))
			assert.Nil(t, lines)
			require.NotEmpty(t, errs)
			assert.Contains(t, errs[tt.field], tt.msg)
		})
	}
}
