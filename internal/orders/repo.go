package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// CreateMode picks how CreateOrder finalizes a batch with a rejected line.
type CreateMode string

const (
	// CreatePartialCommit commits the order shell up front and commits
	// stock already taken by earlier lines even when a later line is
	// rejected. The shell itself is removed on rejection.
	CreatePartialCommit CreateMode = "partial"
	// CreateAtomic runs the shell and every line in one transaction.
	CreateAtomic CreateMode = "atomic"
)

// Repo holds the data-access operations. DB is the caller's unit of work;
// a Repo is cheap and meant to be built per request.
type Repo struct {
	DB   Querier
	Mode CreateMode
}

const productColumns = `id, name, description, price, stock`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock)
	return p, err
}

func (r *Repo) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	row := r.DB.QueryRow(ctx, `
		INSERT INTO products(name, description, price, stock)
		VALUES ($1, $2, $3, $4)
		RETURNING `+productColumns,
		in.Name, in.Description, in.Price.String(), in.Stock)
	p, err := scanProduct(row)
	if err != nil {
		return Product{}, fmt.Errorf("insert product: %w", err)
	}
	return p, nil
}

func (r *Repo) ListProducts(ctx context.Context, page Page) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY id OFFSET $1 LIMIT $2`,
		page.Offset, page.Limit)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	out := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) GetProduct(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

// UpdateProduct merges the patch into the stored product and writes it back.
func (r *Repo) UpdateProduct(ctx context.Context, id int64, patch ProductPatch) (Product, error) {
	cur, err := r.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if patch.Empty() {
		return cur, nil
	}
	next := patch.Apply(cur)

	row := r.DB.QueryRow(ctx, `
		UPDATE products SET name=$2, description=$3, price=$4, stock=$5
		WHERE id=$1
		RETURNING `+productColumns,
		id, next.Name, next.Description, next.Price.String(), next.Stock)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("update product %d: %w", id, err)
	}
	return p, nil
}

// DeleteProduct removes the product and returns it as it was just before.
func (r *Repo) DeleteProduct(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx, `DELETE FROM products WHERE id=$1 RETURNING `+productColumns, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("delete product %d: %w", id, err)
	}
	return p, nil
}
