package httpx

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ariefcatur/go-shop-api/internal/orders"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Store is the set of data-access operations the handlers call.
// *orders.Repo implements it.
type Store interface {
	CreateProduct(ctx context.Context, in orders.ProductInput) (orders.Product, error)
	ListProducts(ctx context.Context, page orders.Page) ([]orders.Product, error)
	GetProduct(ctx context.Context, id int64) (orders.Product, error)
	UpdateProduct(ctx context.Context, id int64, patch orders.ProductPatch) (orders.Product, error)
	DeleteProduct(ctx context.Context, id int64) (orders.Product, error)

	CreateOrder(ctx context.Context, items []orders.ItemInput) (orders.Order, error)
	ListOrders(ctx context.Context, page orders.Page) ([]orders.Order, error)
	GetOrder(ctx context.Context, id int64) (orders.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status orders.Status) (orders.Order, error)
	DeleteOrder(ctx context.Context, id int64) (orders.Order, error)
}

// UnitOfWorkOpener hands out the store of one request together with the
// function that releases it.
type UnitOfWorkOpener interface {
	Open(ctx context.Context) (Store, func(), error)
}

// PoolUnitOfWork backs every request with one connection from the pool.
type PoolUnitOfWork struct {
	Pool *pgxpool.Pool
	Mode orders.CreateMode
}

func (u PoolUnitOfWork) Open(ctx context.Context) (Store, func(), error) {
	conn, err := u.Pool.Acquire(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("acquire connection: %w", err)
	}
	return &orders.Repo{DB: conn, Mode: u.Mode}, conn.Release, nil
}

type storeKey struct{}

// UnitOfWork opens a store for the request and releases it once the
// handler returns, whatever the outcome.
func UnitOfWork(u UnitOfWorkOpener, log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st, release, err := u.Open(r.Context())
			if err != nil {
				log.Error("open unit of work", zap.Error(err))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "database unavailable"})
				return
			}
			defer release()
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), storeKey{}, st)))
		})
	}
}

func storeFrom(r *http.Request) Store {
	st, ok := r.Context().Value(storeKey{}).(Store)
	if !ok {
		panic("httpx: handler mounted without UnitOfWork middleware")
	}
	return st
}
