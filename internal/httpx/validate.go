package httpx

import (
	"errors"
	"reflect"
	"strings"

	"github.com/ariefcatur/go-shop-api/internal/orders"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields under their JSON names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldErrors flattens validator errors into path -> rule, e.g.
// "items[0].quantity" -> "gt=0".
func fieldErrors(err error) (map[string]string, bool) {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil, false
	}
	out := make(map[string]string, len(ve))
	for _, fe := range ve {
		path := fe.Namespace()
		if i := strings.IndexByte(path, '.'); i >= 0 {
			path = path[i+1:]
		}
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		out[path] = rule
	}
	return out, true
}

// Prices are stored as NUMERIC(12,2).
const priceScale = 2

var priceLimit = decimal.New(1, 12-priceScale)

// checkPrice covers the decimal field, which the tag rules cannot compare.
func checkPrice(p *decimal.Decimal, required bool, fields map[string]string) {
	switch {
	case p == nil:
		if required {
			fields["price"] = "required"
		}
	case p.IsNegative():
		fields["price"] = "gte=0"
	case p.GreaterThanOrEqual(priceLimit):
		fields["price"] = "lt=" + priceLimit.String()
	case !p.Equal(p.Round(priceScale)):
		fields["price"] = "max_scale=2"
	}
}

type productCreateReq struct {
	Name        *string          `json:"name" validate:"required,min=5,max=255"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock" validate:"required,gte=0"`
}

func (req productCreateReq) input() orders.ProductInput {
	return orders.ProductInput{
		Name:        *req.Name,
		Description: req.Description,
		Price:       *req.Price,
		Stock:       *req.Stock,
	}
}

// productUpdateReq only touches the fields that are sent.
type productUpdateReq struct {
	Name        *string          `json:"name" validate:"omitempty,min=5,max=255"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock" validate:"omitempty,gte=0"`
}

func (req productUpdateReq) patch() orders.ProductPatch {
	return orders.ProductPatch{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
	}
}

type orderItemReq struct {
	ProductID int64 `json:"product_id" validate:"required"`
	Quantity  int   `json:"quantity" validate:"gt=0"`
}

type orderCreateReq struct {
	Items []orderItemReq `json:"items" validate:"required,dive"`
}

func (req orderCreateReq) items() []orders.ItemInput {
	out := make([]orders.ItemInput, len(req.Items))
	for i, it := range req.Items {
		out[i] = orders.ItemInput{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	return out
}

type statusUpdateReq struct {
	Status string `json:"status" validate:"required"`
}

// checkStatus parses the requested status into dst.
func checkStatus(s string, dst *orders.Status, fields map[string]string) {
	if s == "" {
		return
	}
	st, err := orders.ParseStatus(s)
	if err != nil {
		fields["status"] = "oneof=in process|sent|delivered"
		return
	}
	*dst = st
}
