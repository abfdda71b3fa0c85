package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

func (r *Repo) ListOrders(ctx context.Context, page Page) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, created_at, status FROM orders ORDER BY id OFFSET $1 LIMIT $2`,
		page.Offset, page.Limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	out := []Order{}
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.CreatedAt, &o.Status); err != nil {
			rows.Close()
			return nil, err
		}
		o.Items = []OrderItem{}
		out = append(out, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := loadItems(ctx, r.DB, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) GetOrder(ctx context.Context, id int64) (Order, error) {
	o := Order{Items: []OrderItem{}}
	err := r.DB.QueryRow(ctx, `SELECT id, created_at, status FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.CreatedAt, &o.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("get order %d: %w", id, err)
	}
	batch := []Order{o}
	if err := loadItems(ctx, r.DB, batch); err != nil {
		return Order{}, err
	}
	return batch[0], nil
}

// UpdateOrderStatus sets the status unconditionally; rejecting a
// same-status update is up to the caller.
func (r *Repo) UpdateOrderStatus(ctx context.Context, id int64, status Status) (Order, error) {
	ct, err := r.DB.Exec(ctx, `UPDATE orders SET status=$2 WHERE id=$1`, id, string(status))
	if err != nil {
		return Order{}, fmt.Errorf("update order %d status: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return Order{}, ErrNotFound
	}
	return r.GetOrder(ctx, id)
}

// DeleteOrder removes the order and its items, returning the order as it was.
func (r *Repo) DeleteOrder(ctx context.Context, id int64) (Order, error) {
	o, err := r.GetOrder(ctx, id)
	if err != nil {
		return Order{}, err
	}
	ct, err := r.DB.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	if err != nil {
		return Order{}, fmt.Errorf("delete order %d: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return Order{}, ErrNotFound
	}
	return o, nil
}

// loadItems fills Items of every order in one query.
func loadItems(ctx context.Context, q Querier, batch []Order) error {
	if len(batch) == 0 {
		return nil
	}
	ids := make([]int64, len(batch))
	idx := make(map[int64]int, len(batch))
	for i, o := range batch {
		ids[i] = o.ID
		idx[o.ID] = i
	}

	rows, err := q.Query(ctx, `
		SELECT id, order_id, product_id, quantity
		FROM order_items WHERE order_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity); err != nil {
			return err
		}
		i := idx[it.OrderID]
		batch[i].Items = append(batch[i].Items, it)
	}
	return rows.Err()
}
