package httpx

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	kafkax "github.com/ariefcatur/go-shop-api/internal/kafka"
	"github.com/ariefcatur/go-shop-api/internal/metrics"
	"github.com/ariefcatur/go-shop-api/internal/orders"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// errSameStatus rejects a status update that would change nothing.
var errSameStatus = fmt.Errorf("%w: order already has this status", orders.ErrBadRequest)

type OrdersHandler struct {
	Producer kafkax.Publisher
	Cache    ProductCache
	Metrics  *metrics.Metrics
	Log      *zap.Logger
	Service  string

	events emitter
}

func (h *OrdersHandler) Register(r chi.Router) {
	if h.Log == nil {
		h.Log = zap.NewNop()
	}
	h.Cache = cacheOrNone(h.Cache)
	if h.Producer == nil {
		h.Producer = kafkax.Discard{}
	}
	h.events = emitter{pub: h.Producer, service: h.Service, log: h.Log}

	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Patch("/orders/{id}/status", h.updateStatus)
	r.Delete("/orders/{id}", h.deleteOrder)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req orderCreateReq
	if !decode(w, r, &req, nil) {
		return
	}
	items := req.items()

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := storeFrom(r).CreateOrder(ctx, items)

	// stock of earlier lines may have moved even when the order was rejected
	h.Cache.Invalidate(ctx, productIDs(items)...)

	if err != nil {
		if rej, ok := orders.RejectionPayload(err); ok {
			h.rejected(rej.Reason)
			var key []byte
			if len(rej.Details) > 0 {
				key = []byte(strconv.FormatInt(rej.Details[0].ProductID, 10))
			}
			h.events.emit(r, orders.TopicOrderRejected, orders.EventOrderRejected, key, 0, rej)
		}
		writeError(w, h.Log, err)
		return
	}

	if h.Metrics != nil {
		h.Metrics.OrdersCreated.Inc()
	}
	h.events.emit(r, orders.TopicOrderCreated, orders.EventOrderCreated, orders.PartitionKey(o.ID), o.ID,
		orders.OrderCreatedPayload{OrderID: o.ID, Items: items})

	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	page, ok := pageFrom(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	all, err := storeFrom(r).ListOrders(ctx, page)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, all)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := storeFrom(r).GetOrder(ctx, id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req statusUpdateReq
	var next orders.Status
	if !decode(w, r, &req, func(f map[string]string) { checkStatus(req.Status, &next, f) }) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	st := storeFrom(r)
	cur, err := st.GetOrder(ctx, id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if cur.Status == next {
		writeError(w, h.Log, errSameStatus)
		return
	}

	o, err := st.UpdateOrderStatus(ctx, id, next)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	h.events.emit(r, orders.TopicOrderStatusChanged, orders.EventOrderStatusChanged, orders.PartitionKey(id), id,
		orders.OrderStatusChangedPayload{OrderID: id, From: cur.Status, To: next})

	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := storeFrom(r).DeleteOrder(ctx, id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) rejected(reason string) {
	if h.Metrics != nil {
		h.Metrics.OrderRejections.WithLabelValues(reason).Inc()
	}
}

func productIDs(items []orders.ItemInput) []int64 {
	return orders.Order{Items: toOrderItems(items)}.ProductIDs()
}

func toOrderItems(items []orders.ItemInput) []orders.OrderItem {
	out := make([]orders.OrderItem, len(items))
	for i, it := range items {
		out[i] = orders.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	return out
}
