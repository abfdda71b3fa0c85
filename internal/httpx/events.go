package httpx

import (
	"context"
	"net/http"

	kafkax "github.com/ariefcatur/go-shop-api/internal/kafka"
	"github.com/ariefcatur/go-shop-api/internal/orders"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// emitter wraps payloads in v1 envelopes and hands them to the producer.
// Publishing never fails a request.
type emitter struct {
	pub     kafkax.Publisher
	service string
	log     *zap.Logger
}

func (e emitter) emit(r *http.Request, topic, eventType string, key []byte, correlationID int64, payload any) {
	env, err := orders.NewEnvelope(eventType, e.service, middleware.GetReqID(r.Context()), correlationID, payload)
	if err != nil {
		e.log.Error("build event", zap.String("event_type", eventType), zap.Error(err))
		return
	}
	e.pub.Publish(topic, key, kafkax.MustMarshal(env), kafkax.EventHeaders(eventType, env.EventVersion)...)
}

// ProductCache is the read-through cache in front of GET /products/{id}.
// Generation is taken before a store read and handed back to Set, which
// drops the write if the product was invalidated in between.
type ProductCache interface {
	Get(ctx context.Context, id int64) (orders.Product, bool)
	Generation(ctx context.Context, id int64) int64
	Set(ctx context.Context, p orders.Product, gen int64)
	Invalidate(ctx context.Context, ids ...int64)
}

type noCache struct{}

func (noCache) Get(context.Context, int64) (orders.Product, bool) { return orders.Product{}, false }
func (noCache) Generation(context.Context, int64) int64           { return 0 }
func (noCache) Set(context.Context, orders.Product, int64)        {}
func (noCache) Invalidate(context.Context, ...int64)              {}

func cacheOrNone(c ProductCache) ProductCache {
	if c == nil {
		return noCache{}
	}
	return c
}
