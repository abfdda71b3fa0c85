package orders

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the referenced product or order does not exist.
	ErrNotFound = errors.New("not found")

	// ErrBadRequest marks client data that breaks a business rule.
	ErrBadRequest = errors.New("bad request")
)

// StockError rejects an order line asking for more than the product holds.
type StockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("requested quantity exceeds available stock (product %d: requested %d, available %d)",
		e.ProductID, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error { return ErrBadRequest }

// ProductNotFoundError rejects an order line pointing at an unknown product.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

func (e *ProductNotFoundError) Unwrap() error { return ErrNotFound }

// IsRejection reports whether err is an order line being turned down,
// as opposed to a store failure.
func IsRejection(err error) bool {
	var se *StockError
	var pe *ProductNotFoundError
	return errors.As(err, &se) || errors.As(err, &pe)
}
