// Package inventory watches created orders and flags products that are
// running low on stock.
package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	kafkax "github.com/ariefcatur/go-shop-api/internal/kafka"
	"github.com/ariefcatur/go-shop-api/internal/orders"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type ProductReader interface {
	GetProduct(ctx context.Context, id int64) (orders.Product, error)
}

type Claimer interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

type Invalidator interface {
	Invalidate(ctx context.Context, ids ...int64)
}

type Service struct {
	Products    ProductReader
	Dedup       Claimer
	Cache       Invalidator
	Producer    kafkax.Publisher
	Threshold   int
	ServiceName string
	Log         *zap.Logger
}

// HandleOrderCreated is the consumer handler for order.created.
func (s *Service) HandleOrderCreated(ctx context.Context, m kafkago.Message) error {
	if t := kafkax.HeaderValue(m, kafkax.HeaderEventType); t != "" && t != orders.EventOrderCreated {
		return nil
	}

	// 1) decode envelope
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if env.EventType != orders.EventOrderCreated {
		return nil
	}

	// 2) dedup by event id
	first, err := s.Dedup.Claim(ctx, env.EventID)
	if err != nil {
		return err
	}
	if !first {
		s.log().Debug("duplicate event", zap.String("event_id", env.EventID))
		return nil
	}

	if err := s.process(ctx, env); err != nil {
		// let the redelivery through the dedup gate
		if rerr := s.Dedup.Release(ctx, env.EventID); rerr != nil {
			s.log().Warn("release dedup", zap.String("event_id", env.EventID), zap.Error(rerr))
		}
		return err
	}
	return nil
}

func (s *Service) process(ctx context.Context, env orders.Envelope) error {
	p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
	if err != nil {
		return err
	}
	ids := orders.Order{Items: itemsOf(p)}.ProductIDs()
	if s.Cache != nil {
		s.Cache.Invalidate(context.WithoutCancel(ctx), ids...)
	}

	for _, id := range ids {
		prod, err := s.Products.GetProduct(ctx, id)
		if errors.Is(err, orders.ErrNotFound) {
			// deleted since the order was placed
			continue
		}
		if err != nil {
			return fmt.Errorf("read stock of product %d: %w", id, err)
		}
		if prod.Stock > s.Threshold {
			continue
		}
		s.publishLowStock(env.TraceID, orders.ProductLowStockPayload{
			ProductID: prod.ID,
			Stock:     prod.Stock,
			Threshold: s.Threshold,
			OrderID:   p.OrderID,
		})
	}
	return nil
}

func (s *Service) publishLowStock(trace string, p orders.ProductLowStockPayload) {
	env, err := orders.NewEnvelope(orders.EventProductLowStock, s.ServiceName, trace, p.OrderID, p)
	if err != nil {
		s.log().Error("build low stock event", zap.Error(err))
		return
	}
	s.log().Info("product low on stock",
		zap.Int64("product_id", p.ProductID), zap.Int("stock", p.Stock), zap.Int("threshold", p.Threshold))
	s.producer().Publish(orders.TopicProductLowStock, []byte(fmt.Sprint(p.ProductID)), kafkax.MustMarshal(env),
		kafkax.EventHeaders(orders.EventProductLowStock, env.EventVersion)...)
}

func (s *Service) producer() kafkax.Publisher {
	if s.Producer == nil {
		return kafkax.Discard{}
	}
	return s.Producer
}

func (s *Service) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func itemsOf(p orders.OrderCreatedPayload) []orders.OrderItem {
	out := make([]orders.OrderItem, len(p.Items))
	for i, it := range p.Items {
		out[i] = orders.OrderItem{OrderID: p.OrderID, ProductID: it.ProductID, Quantity: it.Quantity}
	}
	return out
}
