package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/ariefcatur/go-shop-api/internal/metrics"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ProductsHandler struct {
	Cache   ProductCache
	Metrics *metrics.Metrics
	Log     *zap.Logger
}

func (h *ProductsHandler) Register(r chi.Router) {
	if h.Log == nil {
		h.Log = zap.NewNop()
	}
	h.Cache = cacheOrNone(h.Cache)
	r.Post("/products", h.createProduct)
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)
	r.Put("/products/{id}", h.updateProduct)
	r.Delete("/products/{id}", h.deleteProduct)
}

func (h *ProductsHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productCreateReq
	if !decode(w, r, &req, func(f map[string]string) { checkPrice(req.Price, true, f) }) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := storeFrom(r).CreateProduct(ctx, req.input())
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *ProductsHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	page, ok := pageFrom(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := storeFrom(r).ListProducts(ctx, page)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *ProductsHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) cache
	if p, hit := h.Cache.Get(ctx, id); hit {
		h.lookup("hit")
		writeJSON(w, http.StatusOK, p)
		return
	}
	h.lookup("miss")

	// 2) store, cached only if nothing wrote the product meanwhile
	gen := h.Cache.Generation(ctx, id)
	p, err := storeFrom(r).GetProduct(ctx, id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	h.Cache.Set(ctx, p, gen)
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductsHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req productUpdateReq
	if !decode(w, r, &req, func(f map[string]string) { checkPrice(req.Price, false, f) }) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := storeFrom(r).UpdateProduct(ctx, id, req.patch())
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	h.Cache.Invalidate(ctx, id)
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductsHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := storeFrom(r).DeleteProduct(ctx, id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	h.Cache.Invalidate(ctx, id)
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductsHandler) lookup(result string) {
	if h.Metrics != nil {
		h.Metrics.CacheLookups.WithLabelValues(result).Inc()
	}
}
