//go:build integration

package orders_test

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/ariefcatur/go-shop-api/internal/orders"
	"github.com/ariefcatur/go-shop-api/internal/postgres/pgtest"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var shared *pgxpool.Pool

func TestMain(m *testing.M) {
	pool, stop, err := pgtest.Start(context.Background())
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	shared = pool
	code := m.Run()
	stop()
	os.Exit(code)
}

// repo hands out a Repo on a freshly truncated database. The container is
// shared by every test in the package; tests must not run in parallel.
func repo(t *testing.T, mode orders.CreateMode) *orders.Repo {
	t.Helper()
	pgtest.Reset(t, shared)
	return &orders.Repo{DB: shared, Mode: mode}
}

func product(t *testing.T, r *orders.Repo, name string, stock int) orders.Product {
	t.Helper()
	p, err := r.CreateProduct(context.Background(), orders.ProductInput{
		Name: name, Price: decimal.RequireFromString("10.00"), Stock: stock,
	})
	require.NoError(t, err)
	return p
}

func TestProductRoundTrip(t *testing.T) {
	r := repo(t, orders.CreatePartialCommit)
	ctx := context.Background()
	desc := "A sample product"

	created, err := r.CreateProduct(ctx, orders.ProductInput{
		Name: "Test Product", Description: &desc, Price: decimal.RequireFromString("10.5"), Stock: 100,
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	got, err := r.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.Name, got.Name)
	assert.Equal(t, desc, *got.Description)
	assert.True(t, created.Price.Equal(got.Price))
	assert.Equal(t, 100, got.Stock)
}

func TestListProducts_Paging(t *testing.T) {
	r := repo(t, orders.CreatePartialCommit)
	ctx := context.Background()
	a := product(t, r, "Product 1", 50)
	b := product(t, r, "Product 2", 30)

	all, err := r.ListProducts(ctx, orders.DefaultPage())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, a.ID, all[0].ID)
	assert.Equal(t, b.ID, all[1].ID)

	second, err := r.ListProducts(ctx, orders.Page{Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, b.ID, second[0].ID)

	none, err := r.ListProducts(ctx, orders.Page{Offset: 10, Limit: 5})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestUpdateProduct_Partial(t *testing.T) {
	r := repo(t, orders.CreatePartialCommit)
	ctx := context.Background()
	p := product(t, r, "Old Product", 10)

	stock := 20
	got, err := r.UpdateProduct(ctx, p.ID, orders.ProductPatch{Stock: &stock})
	require.NoError(t, err)
	assert.Equal(t, 20, got.Stock)
	assert.Equal(t, "Old Product", got.Name)
	assert.True(t, got.Price.Equal(p.Price))
	assert.Nil(t, got.Description)

	_, err = r.UpdateProduct(ctx, p.ID+1000, orders.ProductPatch{Stock: &stock})
	assert.ErrorIs(t, err, orders.ErrNotFound)

	same, err := r.UpdateProduct(ctx, p.ID, orders.ProductPatch{})
	require.NoError(t, err)
	assert.Equal(t, 20, same.Stock)
	assert.Equal(t, "Old Product", same.Name)

	_, err = r.UpdateProduct(ctx, p.ID+1000, orders.ProductPatch{})
	assert.ErrorIs(t, err, orders.ErrNotFound)
}

func TestDeleteProduct(t *testing.T) {
	r := repo(t, orders.CreatePartialCommit)
	ctx := context.Background()
	p := product(t, r, "To be deleted", 10)

	gone, err := r.DeleteProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, gone.ID)
	assert.Equal(t, "To be deleted", gone.Name)

	_, err = r.GetProduct(ctx, p.ID)
	assert.ErrorIs(t, err, orders.ErrNotFound)

	_, err = r.DeleteProduct(ctx, p.ID)
	assert.ErrorIs(t, err, orders.ErrNotFound)
}

func TestCreateOrder_SingleItem(t *testing.T) {
	r := repo(t, orders.CreatePartialCommit)
	ctx := context.Background()
	p := product(t, r, "Widget", 5)

	o, err := r.CreateOrder(ctx, []orders.ItemInput{{ProductID: p.ID, Quantity: 2}})
	require.NoError(t, err)
	assert.Equal(t, orders.StatusInProcess, o.Status)
	assert.False(t, o.CreatedAt.IsZero())
	require.Len(t, o.Items, 1)
	assert.Equal(t, p.ID, o.Items[0].ProductID)
	assert.Equal(t, o.ID, o.Items[0].OrderID)

	after, err := r.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, after.Stock)
}

func TestCreateOrder_OverStock_KeepsEarlierDecrements(t *testing.T) {
	r := repo(t, orders.CreatePartialCommit)
	ctx := context.Background()
	first := product(t, r, "First product", 10)
	second := product(t, r, "Second product", 1)

	_, err := r.CreateOrder(ctx, []orders.ItemInput{
		{ProductID: first.ID, Quantity: 4},
		{ProductID: second.ID, Quantity: 2},
	})
	var se *orders.StockError
	require.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, orders.ErrBadRequest)
	assert.Equal(t, second.ID, se.ProductID)
	assert.Equal(t, 2, se.Requested)
	assert.Equal(t, 1, se.Available)

	list, err := r.ListOrders(ctx, orders.DefaultPage())
	require.NoError(t, err)
	assert.Empty(t, list, "rejected order shell must be gone")

	// the first line's stock stays taken even though the order was rejected
	got, err := r.GetProduct(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, got.Stock)

	got, err = r.GetProduct(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stock)
}

func TestCreateOrder_Atomic_RollsBackEverything(t *testing.T) {
	r := repo(t, orders.CreateAtomic)
	ctx := context.Background()
	first := product(t, r, "First product", 10)
	second := product(t, r, "Second product", 1)

	_, err := r.CreateOrder(ctx, []orders.ItemInput{
		{ProductID: first.ID, Quantity: 4},
		{ProductID: second.ID, Quantity: 2},
	})
	require.ErrorIs(t, err, orders.ErrBadRequest)

	got, err := r.GetProduct(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Stock)

	list, err := r.ListOrders(ctx, orders.DefaultPage())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	r := repo(t, orders.CreatePartialCommit)
	ctx := context.Background()

	_, err := r.CreateOrder(ctx, []orders.ItemInput{{ProductID: 12345, Quantity: 1}})
	var pe *orders.ProductNotFoundError
	require.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, orders.ErrNotFound)
	assert.Equal(t, int64(12345), pe.ProductID)

	list, err := r.ListOrders(ctx, orders.DefaultPage())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateOrder_SameProductTwice(t *testing.T) {
	r := repo(t, orders.CreatePartialCommit)
	ctx := context.Background()
	p := product(t, r, "Repeat product", 5)

	o, err := r.CreateOrder(ctx, []orders.ItemInput{
		{ProductID: p.ID, Quantity: 2},
		{ProductID: p.ID, Quantity: 3},
	})
	require.NoError(t, err)
	assert.Len(t, o.Items, 2)

	got, err := r.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)
}

func TestOrders_ListGetStatusDelete(t *testing.T) {
	r := repo(t, orders.CreatePartialCommit)
	ctx := context.Background()
	p := product(t, r, "Order product", 20)

	a, err := r.CreateOrder(ctx, []orders.ItemInput{{ProductID: p.ID, Quantity: 1}})
	require.NoError(t, err)
	b, err := r.CreateOrder(ctx, []orders.ItemInput{{ProductID: p.ID, Quantity: 2}})
	require.NoError(t, err)

	list, err := r.ListOrders(ctx, orders.DefaultPage())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Len(t, list[0].Items, 1)
	assert.Equal(t, 2, list[1].Items[0].Quantity)

	got, err := r.GetOrder(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	updated, err := r.UpdateOrderStatus(ctx, a.ID, orders.StatusSent)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusSent, updated.Status)

	// no same-status guard at this layer
	_, err = r.UpdateOrderStatus(ctx, a.ID, orders.StatusSent)
	require.NoError(t, err)

	_, err = r.UpdateOrderStatus(ctx, 9999, orders.StatusSent)
	assert.ErrorIs(t, err, orders.ErrNotFound)

	gone, err := r.DeleteOrder(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, gone.ID)
	_, err = r.GetOrder(ctx, a.ID)
	assert.ErrorIs(t, err, orders.ErrNotFound)
}

func TestRepo_OnTransactionUnitOfWork(t *testing.T) {
	r := repo(t, orders.CreatePartialCommit)
	ctx := context.Background()

	tx, err := shared.Begin(ctx)
	require.NoError(t, err)
	inTx := &orders.Repo{DB: tx}
	p, err := inTx.CreateProduct(ctx, orders.ProductInput{Name: "Scoped product", Price: decimal.Zero, Stock: 1})
	require.NoError(t, err)
	require.NoError(t, tx.Rollback(ctx))

	_, err = r.GetProduct(ctx, p.ID)
	assert.ErrorIs(t, err, orders.ErrNotFound)
}
