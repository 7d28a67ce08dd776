package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	kafkax "github.com/ariefcatur/go-inventory-orders/internal/kafka"
	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/ariefcatur/go-inventory-orders/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// Store is the repository the handlers work against.
type Store interface {
	ListInventory(ctx context.Context) ([]orders.Inventory, error)
	CreateProduct(ctx context.Context, in orders.NewProduct) (orders.Inventory, error)
	AdjustStock(ctx context.Context, productID int64, delta int) (orders.Inventory, error)
	CreateOrder(ctx context.Context, lines []orders.LineItem) (orders.Order, []orders.OrderProduct, error)
	GetOrder(ctx context.Context, id string) (orders.Order, []orders.OrderProduct, error)
}

type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
	Generation(ctx context.Context, key string) (int64, error)
	Bump(ctx context.Context, key string) (int64, error)
}

type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte, headers ...kafkago.Header)
}

// Handler serves the product, inventory and order endpoints.
// Cache and Events are optional.
type Handler struct {
	Store   Store
	Cache   Cache
	Events  Publisher
	Log     *zap.Logger
	Service string
}

func (h *Handler) Register(r chi.Router) {
	if h.Log == nil {
		h.Log = zap.NewNop()
	}
	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.listProducts)
		r.Post("/products", h.createProduct)
		r.Patch("/inventory/{product_id}", h.adjustStock)
		r.Post("/orders", h.createOrder)
		r.Get("/orders/{id}", h.getOrder)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// serverError logs the cause and hides it from the client.
func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.Log.Error(msg,
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
}

// readBody reads at most maxBodyBytes. When it returns false the response is already written.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err == nil {
		return b, true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large"})
		return nil, false
	}
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unreadable request body"})
	return nil, false
}

// cached reads key into dst. Cache failures are logged and treated as a miss.
func (h *Handler) cached(ctx context.Context, key string, dst any) bool {
	if h.Cache == nil {
		return false
	}
	found, err := h.Cache.GetJSON(ctx, key, dst)
	if err != nil {
		h.Log.Warn("cache get", zap.String("key", key), zap.Error(err))
		return false
	}
	return found
}

func (h *Handler) cache(ctx context.Context, key string, v any, ttl time.Duration) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.SetJSON(ctx, key, v, ttl); err != nil {
		h.Log.Warn("cache set", zap.String("key", key), zap.Error(err))
	}
}

// listingKey is the cache key of the listing under the current generation.
// A listing read before a write is filled under the old generation, so it is
// never served after the write's bump. ok is false when the cache is unusable.
func (h *Handler) listingKey(ctx context.Context) (key string, ok bool) {
	if h.Cache == nil {
		return "", false
	}
	gen, err := h.Cache.Generation(ctx, redisx.KeyInventoryGen)
	if err != nil {
		h.Log.Warn("cache generation", zap.Error(err))
		return "", false
	}
	return fmt.Sprintf(redisx.KeyInventoryList, gen), true
}

// stockChanged retires the cached listing after any stock or product write.
func (h *Handler) stockChanged(ctx context.Context) {
	if h.Cache == nil {
		return
	}
	if _, err := h.Cache.Bump(ctx, redisx.KeyInventoryGen); err != nil {
		h.Log.Warn("cache invalidate", zap.String("key", redisx.KeyInventoryGen), zap.Error(err))
	}
}

func (h *Handler) publish(ctx context.Context, topic, eventType, correlationID string, payload any) {
	if h.Events == nil {
		return
	}
	ev := orders.NewEnvelope(eventType, h.Service, correlationID, middleware.GetReqID(ctx), kafkax.MustMarshal(payload))
	h.Events.Publish(ctx, topic, orders.PartitionKey(correlationID), kafkax.MustMarshal(ev),
		kafkax.EventHeaders(eventType, ev.EventVersion)...)
}
