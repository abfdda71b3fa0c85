package orders

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
}

// MarshalJSON writes the price as a JSON number (10.5), the way clients
// send it in.
func (p Product) MarshalJSON() ([]byte, error) {
	type plain Product
	return json.Marshal(struct {
		plain
		Price json.Number `json:"price"`
	}{plain(p), json.Number(p.Price.String())})
}

// ProductInput carries the fields of a product about to be created.
type ProductInput struct {
	Name        string
	Description *string
	Price       decimal.Decimal
	Stock       int
}

// ProductPatch is a partial product update. Nil fields are left untouched.
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
}

// Apply returns p with every field present in the patch overwritten.
func (pp ProductPatch) Apply(p Product) Product {
	if pp.Name != nil {
		p.Name = *pp.Name
	}
	if pp.Description != nil {
		d := *pp.Description
		p.Description = &d
	}
	if pp.Price != nil {
		p.Price = *pp.Price
	}
	if pp.Stock != nil {
		p.Stock = *pp.Stock
	}
	return p
}

// Empty reports whether the patch carries no field at all.
func (pp ProductPatch) Empty() bool {
	return pp.Name == nil && pp.Description == nil && pp.Price == nil && pp.Stock == nil
}

type Order struct {
	ID        int64       `json:"id"`
	CreatedAt time.Time   `json:"created_at"`
	Status    Status      `json:"status"`
	Items     []OrderItem `json:"items"`
}

// ProductIDs lists the distinct products referenced by the order, in item order.
func (o Order) ProductIDs() []int64 {
	seen := make(map[int64]bool, len(o.Items))
	out := make([]int64, 0, len(o.Items))
	for _, it := range o.Items {
		if seen[it.ProductID] {
			continue
		}
		seen[it.ProductID] = true
		out = append(out, it.ProductID)
	}
	return out
}

type OrderItem struct {
	ID        int64 `json:"id"`
	OrderID   int64 `json:"order_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// ItemInput is one requested line of a new order.
type ItemInput struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// Page bounds a list query.
type Page struct {
	Offset int
	Limit  int
}

const DefaultLimit = 100

// DefaultPage is what list endpoints use when the caller sends no bounds.
func DefaultPage() Page { return Page{Offset: 0, Limit: DefaultLimit} }
