package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ariefcatur/go-shop-api/internal/orders"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeInvalid(w http.ResponseWriter, fields map[string]string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": "validation failed", "fields": fields})
}

// writeError maps a data-access error to its status code. Anything that is
// neither not-found nor bad-request is logged and hidden behind a 500.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	var pe *orders.ProductNotFoundError
	switch {
	case errors.As(err, &pe):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": pe.Error()})
	case errors.Is(err, orders.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, orders.ErrBadRequest):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		log.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// decode reads the JSON body into dst and validates it. extra may add
// field errors the tags cannot express. It writes the 422 itself and
// returns false on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any, extra func(map[string]string)) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeInvalid(w, map[string]string{"body": "invalid json"})
		return false
	}
	fields := map[string]string{}
	if err := validate.Struct(dst); err != nil {
		fe, ok := fieldErrors(err)
		if !ok {
			writeInvalid(w, map[string]string{"body": err.Error()})
			return false
		}
		fields = fe
	}
	if extra != nil {
		extra(fields)
	}
	if len(fields) > 0 {
		writeInvalid(w, fields)
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeInvalid(w, map[string]string{"id": "int"})
		return 0, false
	}
	return id, true
}

// pageFrom reads skip/limit, defaulting to 0/100.
func pageFrom(w http.ResponseWriter, r *http.Request) (orders.Page, bool) {
	page := orders.DefaultPage()
	q := r.URL.Query()
	fields := map[string]string{}
	if s := q.Get("skip"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			fields["skip"] = "gte=0"
		}
		page.Offset = n
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			fields["limit"] = "gte=0"
		}
		page.Limit = n
	}
	if len(fields) > 0 {
		writeInvalid(w, fields)
		return orders.Page{}, false
	}
	return page, true
}
