// Package validate turns raw request bodies into validated domain values.
// Every function is pure: it either returns a value or a non-empty FieldErrors,
// and never touches the store.
package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// NonFieldErrors is the key used for errors that do not belong to one field.
const NonFieldErrors = "non_field_errors"

const (
	priceMaxDigits     = 10
	priceDecimalPlaces = 2
	// Exponents outside ±priceMaxExponent are rejected before any arithmetic,
	// so "1e-50000000" costs nothing to refuse.
	priceMaxExponent = 10
)

// FieldErrors maps a field path (e.g. "products[0].total_products") to its messages.
type FieldErrors map[string][]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(fe[k], " "))
	}
	return strings.Join(parts, "; ")
}

func (fe FieldErrors) add(field, msg string) { fe[field] = append(fe[field], msg) }

// merge nests other under prefix; its non-field errors land on prefix itself.
func (fe FieldErrors) merge(prefix string, other FieldErrors) {
	for k, msgs := range other {
		key := prefix + "." + k
		if k == NonFieldErrors {
			key = prefix
		}
		fe[key] = append(fe[key], msgs...)
	}
}

type productInput struct {
	Name  *string `json:"name" validate:"required,min=1,max=255"`
	Price any     `json:"price"`
	Stock *int    `json:"stock" validate:"required,gte=0,lte=2147483647"`
}

type stockInput struct {
	Stock *int `json:"stock" validate:"required,gte=-2147483648,lte=2147483647"`
}

type orderInput struct {
	Products []orderLineInput `json:"products" validate:"required,min=1,dive"`
}

type orderLineInput struct {
	ProductID     *int64 `json:"product_id" validate:"required,gte=1"`
	TotalProducts *int   `json:"total_products" validate:"required,gte=1,lte=2147483647"`
}

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return val
}

// Product validates a product-creation payload {name, price, stock}.
func Product(body []byte) (orders.NewProduct, FieldErrors) {
	var in productInput
	if errs := decode(body, &in); errs != nil {
		return orders.NewProduct{}, errs
	}
	errs := check(in)
	var price decimal.Decimal
	if in.Price == nil {
		errs.add("price", "This field is required.")
	} else {
		var msg string
		if price, msg = parsePrice(in.Price); msg != "" {
			errs.add("price", msg)
		}
	}
	if len(errs) > 0 {
		return orders.NewProduct{}, errs
	}
	return orders.NewProduct{Name: *in.Name, Price: price, Stock: *in.Stock}, nil
}

// StockDelta validates a stock-adjustment payload {stock: <signed int>}.
func StockDelta(body []byte) (int, FieldErrors) {
	var in stockInput
	if errs := decode(body, &in); errs != nil {
		return 0, errs
	}
	if errs := check(in); len(errs) > 0 {
		return 0, errs
	}
	return *in.Stock, nil
}

// Order validates a purchase payload {products: [{product_id, total_products}]}.
// Lines keep the order the client sent them in.
func Order(body []byte) ([]orders.LineItem, FieldErrors) {
	// Lines are decoded one by one so type errors carry the line index too.
	var raw struct {
		Products []json.RawMessage `json:"products"`
	}
	if errs := decode(body, &raw); errs != nil {
		return nil, errs
	}
	var in orderInput
	if raw.Products != nil {
		in.Products = make([]orderLineInput, len(raw.Products))
	}
	errs := FieldErrors{}
	for i, line := range raw.Products {
		if lerrs := decode(line, &in.Products[i]); lerrs != nil {
			errs.merge(fmt.Sprintf("products[%d]", i), lerrs)
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	if errs := check(in); len(errs) > 0 {
		return nil, errs
	}
	lines := make([]orders.LineItem, 0, len(in.Products))
	for _, p := range in.Products {
		lines = append(lines, orders.LineItem{ProductID: *p.ProductID, Quantity: *p.TotalProducts})
	}
	return lines, nil
}

func decode(body []byte, dst any) FieldErrors {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	err := dec.Decode(dst)
	if err == nil {
		if _, err := dec.Token(); !errors.Is(err, io.EOF) {
			return FieldErrors{NonFieldErrors: {"Invalid JSON: unexpected data after the top-level value."}}
		}
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return FieldErrors{typeErr.Field: {typeMessage(typeErr.Type)}}
	}
	if errors.As(err, &typeErr) {
		return FieldErrors{NonFieldErrors: {fmt.Sprintf("Invalid data. Expected an object, but got %s.", typeErr.Value)}}
	}
	return FieldErrors{NonFieldErrors: {"Invalid JSON: " + err.Error()}}
}

func check(in any) FieldErrors {
	errs := FieldErrors{}
	err := v.Struct(in)
	if err == nil {
		return errs
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.add(NonFieldErrors, err.Error())
		return errs
	}
	for _, fe := range verrs {
		errs.add(fieldPath(fe.Namespace()), message(fe))
	}
	return errs
}

// fieldPath drops the struct name: "orderInput.products[0].product_id" -> "products[0].product_id".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "min":
		if fe.Kind() == reflect.Slice {
			return "This list may not be empty."
		}
		return "This field may not be blank."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "gte":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "lte":
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	}
	return fmt.Sprintf("Failed on the %q rule.", fe.Tag())
}

func typeMessage(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "A valid integer is required."
	case reflect.String:
		return "Not a valid string."
	case reflect.Slice:
		return "Expected a list of items."
	case reflect.Struct:
		return "Invalid data. Expected an object."
	}
	return "Invalid value."
}

// parsePrice accepts a JSON number or a numeric string, like "9.99".
func parsePrice(raw any) (decimal.Decimal, string) {
	var s string
	switch p := raw.(type) {
	case json.Number:
		s = p.String()
	case string:
		s = strings.TrimSpace(p)
	default:
		return decimal.Decimal{}, "A valid number is required."
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, "A valid number is required."
	}
	if d.IsZero() {
		d = decimal.Zero
	}
	if d.IsNegative() {
		return decimal.Decimal{}, "Ensure this value is greater than or equal to 0."
	}

	tooManyPlaces := fmt.Sprintf("Ensure that there are no more than %d decimal places.", priceDecimalPlaces)
	tooManyDigits := fmt.Sprintf("Ensure that there are no more than %d digits before the decimal point.", priceMaxDigits-priceDecimalPlaces)
	exp := d.Exponent()
	switch {
	case exp < -priceMaxExponent:
		return decimal.Decimal{}, tooManyPlaces
	case exp > priceMaxExponent:
		return decimal.Decimal{}, tooManyDigits
	}
	if exp < -priceDecimalPlaces && !d.Equal(d.Truncate(priceDecimalPlaces)) {
		return decimal.Decimal{}, tooManyPlaces
	}
	if integerDigits(d) > priceMaxDigits-priceDecimalPlaces {
		return decimal.Decimal{}, tooManyDigits
	}
	return d.Round(priceDecimalPlaces), ""
}

// integerDigits counts the digits before the decimal point of a non-negative d.
func integerDigits(d decimal.Decimal) int {
	i := d.Truncate(0)
	if i.IsZero() {
		return 0
	}
	return i.NumDigits() + int(i.Exponent())
}
