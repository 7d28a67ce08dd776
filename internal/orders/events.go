package orders

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EventProductCreated   = "ProductCreated"
	EventStockAdjusted    = "StockAdjusted"
	EventRestockRequested = "RestockRequested"
	EventOrderCreated     = "OrderCreated"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // product id or order id
	Payload       json.RawMessage `json:"payload"`
}

func NewEnvelope(eventType, producer, correlationID, traceID string, payload json.RawMessage) Envelope {
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TraceID:       traceID,
		CorrelationID: correlationID,
		Payload:       payload,
	}
}

type ItemQty struct {
	ProductID int64 `json:"product_id"`
	Qty       int   `json:"qty"`
}

type ProductCreatedPayload struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Stock     int    `json:"stock"`
}

type StockAdjustedPayload struct {
	ProductID int64  `json:"product_id"`
	Delta     int    `json:"delta"`
	Stock     int    `json:"stock"`  // stock after the adjustment
	Source    string `json:"source"` // api | restock
}

type RestockRequestedPayload struct {
	ProductID int64 `json:"product_id"`
	Stock     int   `json:"stock"` // signed delta
}

type OrderCreatedPayload struct {
	OrderID string    `json:"order_id"`
	Items   []ItemQty `json:"items"`
}
