package handler

import (
	"net/http"

	"github.com/go-faster/jx"
)

// ListProducts fetches the remote catalog. A failed fetch yields 502 with
// "Error: <msg>"; an empty catalog carries "No products found".
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.Fetch(r.Context())
	if err != nil {
		h.catalogErrors.Add(r.Context(), 1)
		writeError(w, r, http.StatusBadGateway, prefixCatalog+err.Error(), err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("products")
	e.ArrStart()
	for _, p := range products {
		encodeProduct(&e, p)
	}
	e.ArrEnd()
	if len(products) == 0 {
		e.FieldStart("message")
		e.Str(msgNoProducts)
	}
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}
