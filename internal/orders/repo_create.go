package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// CreateOrder places a new order for items, taking stock line by line.
//
// In CreatePartialCommit mode (the default) the order shell is committed
// before any line is looked at, and the finalizing commit runs whether or
// not a line was rejected. A rejected line removes the shell, but stock
// taken by the lines before it stays taken. Callers get a *StockError or
// *ProductNotFoundError for a rejected line.
//
// Stock is read and written back without row locks, so two concurrent
// orders for the same product can both pass the check.
func (r *Repo) CreateOrder(ctx context.Context, items []ItemInput) (Order, error) {
	if r.Mode == CreateAtomic {
		return r.createOrderAtomic(ctx, items)
	}
	return r.createOrderPartial(ctx, items)
}

func (r *Repo) createOrderPartial(ctx context.Context, items []ItemInput) (Order, error) {
	orderID, err := insertShell(ctx, r.DB)
	if err != nil {
		return Order{}, err
	}

	tx, err := r.DB.Begin(ctx)
	if err != nil {
		r.dropShell(ctx, orderID)
		return Order{}, fmt.Errorf("begin order %d: %w", orderID, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	placeErr := placeItems(ctx, tx, orderID, items)
	switch {
	case placeErr == nil:
	case IsRejection(placeErr):
		if _, err := tx.Exec(ctx, `DELETE FROM orders WHERE id=$1`, orderID); err != nil {
			return Order{}, fmt.Errorf("remove rejected order %d: %w", orderID, err)
		}
	default:
		_ = tx.Rollback(ctx)
		r.dropShell(ctx, orderID)
		return Order{}, placeErr
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, fmt.Errorf("commit order %d: %w", orderID, err)
	}
	if placeErr != nil {
		return Order{}, placeErr
	}
	return r.GetOrder(ctx, orderID)
}

func (r *Repo) createOrderAtomic(ctx context.Context, items []ItemInput) (Order, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return Order{}, fmt.Errorf("begin order: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	orderID, err := insertShell(ctx, tx)
	if err != nil {
		return Order{}, err
	}
	if err := placeItems(ctx, tx, orderID, items); err != nil {
		return Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, fmt.Errorf("commit order %d: %w", orderID, err)
	}
	return r.GetOrder(ctx, orderID)
}

func insertShell(ctx context.Context, q Querier) (int64, error) {
	var id int64
	if err := q.QueryRow(ctx, `INSERT INTO orders(status) VALUES ($1) RETURNING id`,
		string(StatusInProcess)).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}
	return id, nil
}

// dropShell removes an order shell left behind by a failed store call.
func (r *Repo) dropShell(ctx context.Context, orderID int64) {
	_, _ = r.DB.Exec(context.WithoutCancel(ctx), `DELETE FROM orders WHERE id=$1`, orderID)
}

// placeItems takes stock for each line in sequence and records it on the
// order. It stops at the first rejected line.
func placeItems(ctx context.Context, q Querier, orderID int64, items []ItemInput) error {
	for _, it := range items {
		var stock int
		err := q.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1`, it.ProductID).Scan(&stock)
		if errors.Is(err, pgx.ErrNoRows) {
			return &ProductNotFoundError{ProductID: it.ProductID}
		}
		if err != nil {
			return fmt.Errorf("load product %d: %w", it.ProductID, err)
		}
		if stock < it.Quantity {
			return &StockError{ProductID: it.ProductID, Requested: it.Quantity, Available: stock}
		}

		// absolute write-back of the value read above
		if _, err := q.Exec(ctx, `UPDATE products SET stock=$2 WHERE id=$1`,
			it.ProductID, stock-it.Quantity); err != nil {
			return fmt.Errorf("take stock of product %d: %w", it.ProductID, err)
		}
		if _, err := q.Exec(ctx, `
			INSERT INTO order_items(order_id, product_id, quantity)
			VALUES ($1, $2, $3)`,
			orderID, it.ProductID, it.Quantity); err != nil {
			return fmt.Errorf("insert item for product %d: %w", it.ProductID, err)
		}
	}
	return nil
}
