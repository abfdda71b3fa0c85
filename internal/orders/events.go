package orders

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderRejected      = "OrderRejected"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventProductLowStock    = "ProductLowStock"
)

const EventVersion = 1

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope wraps payload in a fresh v1 envelope.
func NewEnvelope(eventType, producer, traceID string, correlationID int64, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	env := Envelope{
		EventID:      uuid.NewString(),
		EventType:    eventType,
		EventVersion: EventVersion,
		OccurredAt:   time.Now().UTC(),
		Producer:     producer,
		TraceID:      traceID,
		Payload:      raw,
	}
	if correlationID != 0 {
		env.CorrelationID = fmt.Sprint(correlationID)
	}
	return env, nil
}

// ---- payloads ----

type OrderCreatedPayload struct {
	OrderID int64       `json:"order_id"`
	Items   []ItemInput `json:"items"`
}

type StockRejectedDetail struct {
	ProductID int64 `json:"product_id"`
	Required  int   `json:"required"`
	Available int   `json:"available"`
}

type OrderRejectedPayload struct {
	Reason  string                `json:"reason"` // OUT_OF_STOCK | PRODUCT_NOT_FOUND
	Details []StockRejectedDetail `json:"details,omitempty"`
}

type OrderStatusChangedPayload struct {
	OrderID int64  `json:"order_id"`
	From    Status `json:"from"`
	To      Status `json:"to"`
}

type ProductLowStockPayload struct {
	ProductID int64 `json:"product_id"`
	Stock     int   `json:"stock"`
	Threshold int   `json:"threshold"`
	OrderID   int64 `json:"order_id,omitempty"`
}

const (
	ReasonOutOfStock      = "OUT_OF_STOCK"
	ReasonProductNotFound = "PRODUCT_NOT_FOUND"
)

// RejectionPayload describes a rejected order line. ok is false when err is
// not a rejection.
func RejectionPayload(err error) (p OrderRejectedPayload, ok bool) {
	var se *StockError
	var pe *ProductNotFoundError
	switch {
	case errors.As(err, &se):
		return OrderRejectedPayload{
			Reason:  ReasonOutOfStock,
			Details: []StockRejectedDetail{{ProductID: se.ProductID, Required: se.Requested, Available: se.Available}},
		}, true
	case errors.As(err, &pe):
		return OrderRejectedPayload{
			Reason:  ReasonProductNotFound,
			Details: []StockRejectedDetail{{ProductID: pe.ProductID}},
		}, true
	}
	return OrderRejectedPayload{}, false
}
