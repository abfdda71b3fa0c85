package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-shop-api/internal/orders"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ProductCache is a read-through cache of single products. Redis being
// down only costs a cache miss; errors are logged, never returned.
//
// Every product has a generation counter bumped by Invalidate. A reader
// takes the generation before loading from the store and Set only writes
// if it is still the same, so a load that raced a write is never cached.
type ProductCache struct {
	rdb redis.UniversalClient
	ttl time.Duration
	log *zap.Logger
}

func NewProductCache(rdb redis.UniversalClient, ttl time.Duration, log *zap.Logger) *ProductCache {
	if ttl <= 0 {
		ttl = TTLProduct
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ProductCache{rdb: rdb, ttl: ttl, log: log}
}

func productKey(id int64) string    { return fmt.Sprintf(KeyProduct, id) }
func generationKey(id int64) string { return fmt.Sprintf(KeyProductGeneration, id) }

// staleGeneration never matches a stored counter.
const staleGeneration = -1

func (c *ProductCache) Get(ctx context.Context, id int64) (orders.Product, bool) {
	b, err := c.rdb.Get(ctx, productKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("product cache get", zap.Int64("product_id", id), zap.Error(err))
		}
		return orders.Product{}, false
	}
	var p orders.Product
	if err := json.Unmarshal(b, &p); err != nil {
		c.log.Warn("product cache decode", zap.Int64("product_id", id), zap.Error(err))
		return orders.Product{}, false
	}
	return p, true
}

// Generation returns the current generation of product id. Take it before
// reading the product from the store.
func (c *ProductCache) Generation(ctx context.Context, id int64) int64 {
	gen, err := readGeneration(ctx, c.rdb, id)
	if err != nil {
		c.log.Warn("product cache generation", zap.Int64("product_id", id), zap.Error(err))
		return staleGeneration
	}
	return gen
}

func readGeneration(ctx context.Context, rdb redis.StringCmdable, id int64) (int64, error) {
	gen, err := rdb.Get(ctx, generationKey(id)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

var errStaleGeneration = errors.New("product changed since it was read")

// Set caches p if its generation is still gen.
func (c *ProductCache) Set(ctx context.Context, p orders.Product, gen int64) {
	if gen == staleGeneration {
		return
	}
	b, err := json.Marshal(p)
	if err != nil {
		return
	}
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := readGeneration(ctx, tx, p.ID)
		if err != nil {
			return err
		}
		if cur != gen {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, productKey(p.ID), b, c.ttl)
			return nil
		})
		return err
	}, generationKey(p.ID))

	switch {
	case err == nil:
	case errors.Is(err, errStaleGeneration), errors.Is(err, redis.TxFailedErr):
		c.log.Debug("product cache set skipped", zap.Int64("product_id", p.ID))
	default:
		c.log.Warn("product cache set", zap.Int64("product_id", p.ID), zap.Error(err))
	}
}

// Invalidate drops the cached products and bumps their generations. It
// runs even when ctx is already cancelled, since the store write it
// follows has committed.
func (c *ProductCache) Invalidate(ctx context.Context, ids ...int64) {
	if len(ids) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			pipe.Incr(ctx, generationKey(id))
			pipe.Expire(ctx, generationKey(id), TTLGeneration)
			pipe.Del(ctx, productKey(id))
		}
		return nil
	})
	if err != nil {
		c.log.Warn("product cache invalidate", zap.Int64s("product_ids", ids), zap.Error(err))
	}
}
