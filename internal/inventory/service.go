package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	kafkax "github.com/ariefcatur/go-inventory-orders/internal/kafka"
	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/ariefcatur/go-inventory-orders/internal/redisx"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

type Adjuster interface {
	AdjustStock(ctx context.Context, productID int64, delta int) (orders.Inventory, error)
}

type Cache interface {
	FirstSeen(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	Bump(ctx context.Context, key string) (int64, error)
}

type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte, headers ...kafkago.Header)
}

// Service applies restock commands from Kafka to inventory.
type Service struct {
	Repo        Adjuster
	Cache       Cache     // optional: dedup + listing invalidation
	Events      Publisher // optional: stock.adjusted
	Log         *zap.Logger
	ServiceName string
}

// HandleRestock is installed as the consumer handler. A nil return commits the
// offset; an error makes the consumer retry the same message.
func (s *Service) HandleRestock(ctx context.Context, m kafkago.Message) error {
	ctx = extractTraceContext(ctx, m.Headers)

	var env orders.Envelope
	if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
		s.Log.Error("invalid restock envelope", zap.ByteString("raw_value", m.Value), zap.Error(err))
		return nil
	}
	if env.EventType != orders.EventRestockRequested {
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, "restock", env.EventID)
	if s.Cache != nil {
		first, err := s.Cache.FirstSeen(ctx, dkey, redisx.TTLDedup)
		if err != nil {
			s.Log.Warn("dedup check failed, processing anyway", zap.String("event_id", env.EventID), zap.Error(err))
		} else if !first {
			s.Log.Info("duplicate restock skipped", zap.String("event_id", env.EventID))
			return nil
		}
	}

	p, err := kafkax.UnwrapPayload[orders.RestockRequestedPayload](env.Payload)
	if err != nil || p.ProductID <= 0 {
		s.Log.Error("invalid restock payload", zap.String("event_id", env.EventID), zap.ByteString("payload", env.Payload), zap.Error(err))
		return nil
	}

	inv, err := s.Repo.AdjustStock(ctx, p.ProductID, p.Stock)
	if errors.Is(err, orders.ErrInventoryNotFound) {
		s.Log.Warn("restock for unknown product", zap.Int64("product_id", p.ProductID), zap.String("event_id", env.EventID))
		return nil
	}
	if errors.Is(err, orders.ErrStockOutOfRange) {
		s.Log.Error("restock overflows stock", zap.Int64("product_id", p.ProductID), zap.Int("delta", p.Stock), zap.String("event_id", env.EventID))
		return nil
	}
	if err != nil {
		s.forget(ctx, dkey)
		return fmt.Errorf("restock product %d: %w", p.ProductID, err)
	}

	if s.Cache != nil {
		if _, err := s.Cache.Bump(ctx, redisx.KeyInventoryGen); err != nil {
			s.Log.Warn("cache invalidate", zap.Error(err))
		}
	}
	s.Log.Info("stock restocked",
		zap.Int64("product_id", p.ProductID),
		zap.Int("delta", p.Stock),
		zap.Int("stock", inv.Stock),
	)
	s.publishAdjusted(ctx, inv, p.Stock, env.TraceID)
	return nil
}

// forget releases the dedup mark so the retry of the same event is applied.
func (s *Service) forget(ctx context.Context, key string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Delete(ctx, key); err != nil {
		s.Log.Warn("release dedup key", zap.String("key", key), zap.Error(err))
	}
}

func (s *Service) publishAdjusted(ctx context.Context, inv orders.Inventory, delta int, trace string) {
	if s.Events == nil {
		return
	}
	id := strconv.FormatInt(inv.Product.ID, 10)
	payload, err := json.Marshal(orders.StockAdjustedPayload{
		ProductID: inv.Product.ID,
		Delta:     delta,
		Stock:     inv.Stock,
		Source:    "restock",
	})
	if err != nil {
		s.Log.Error("encode stock adjusted", zap.Error(err))
		return
	}
	ev := orders.NewEnvelope(orders.EventStockAdjusted, s.ServiceName, id, trace, payload)
	s.Events.Publish(ctx, orders.TopicStockAdjusted, orders.PartitionKey(id), kafkax.MustMarshal(ev),
		kafkax.EventHeaders(orders.EventStockAdjusted, ev.EventVersion)...)
}

// extractTraceContext continues the producer's trace from the message headers.
func extractTraceContext(ctx context.Context, headers []kafkago.Header) context.Context {
	carrier := propagation.MapCarrier{}
	for _, h := range headers {
		carrier[h.Key] = string(h.Value)
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
