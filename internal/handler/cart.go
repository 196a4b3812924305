package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/shopcart/internal/domain/cart"
	"github.com/xenking/shopcart/internal/domain/product"
)

const maxBodyBytes = 64 << 10

// GetCart returns the cart screen state.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	v, err := h.carts.View(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, prefixCartLoad+err.Error(), err)
		return
	}
	var e jx.Encoder
	encodeView(&e, *v)
	writeJSON(w, http.StatusOK, &e)
}

// GetIndicator reports whether the catalog screen should show the cart entry.
func (h *Handler) GetIndicator(w http.ResponseWriter, r *http.Request) {
	v, err := h.carts.View(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, prefixCartLoad+err.Error(), err)
		return
	}
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("visible")
	e.Bool(!v.IsEmpty)
	e.FieldStart("totalCount")
	e.Int(v.TotalCount)
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}

// AddItem adds one unit of the posted catalog product to the cart.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	p, err := decodeAddRequest(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error(), err)
		return
	}

	res, err := h.carts.AddToCart(r.Context(), p)
	switch {
	case errors.Is(err, product.ErrInvalid):
		writeError(w, r, http.StatusBadRequest, err.Error(), err)
		return
	case err != nil:
		writeError(w, r, http.StatusInternalServerError, prefixCart+err.Error(), err)
		return
	}
	h.added.Add(r.Context(), 1)

	var e jx.Encoder
	encodeAddResult(&e, *res)
	writeJSON(w, http.StatusCreated, &e)
}

// Increment adds one to the quantity of a line.
func (h *Handler) Increment(w http.ResponseWriter, r *http.Request) {
	h.changeQuantity(w, r, true)
}

// Decrement removes one from the quantity of a line, deleting it at zero.
func (h *Handler) Decrement(w http.ResponseWriter, r *http.Request) {
	h.changeQuantity(w, r, false)
}

func (h *Handler) changeQuantity(w http.ResponseWriter, r *http.Request, increase bool) {
	line, ok := h.lineFromPath(w, r)
	if !ok {
		return
	}
	res, err := h.carts.ChangeQuantity(r.Context(), *line, increase)
	h.writeResult(w, r, res, err)
}

// RemoveItem deletes a line regardless of its quantity.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	line, ok := h.lineFromPath(w, r)
	if !ok {
		return
	}
	res, err := h.carts.RemoveLine(r.Context(), *line)
	h.writeResult(w, r, res, err)
}

func (h *Handler) lineFromPath(w http.ResponseWriter, r *http.Request) (*cart.Line, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusBadRequest, "invalid cart line id", err)
		return nil, false
	}
	line, err := h.carts.Line(r.Context(), id)
	switch {
	case errors.Is(err, cart.ErrLineNotFound):
		writeError(w, r, http.StatusNotFound, msgLineNotFound, err)
		return nil, false
	case err != nil:
		writeError(w, r, http.StatusInternalServerError, prefixCart+err.Error(), err)
		return nil, false
	}
	return line, true
}

func (h *Handler) writeResult(w http.ResponseWriter, r *http.Request, res *cart.Result, err error) {
	switch {
	case errors.Is(err, cart.ErrLineNotFound):
		// Deleted concurrently between lookup and mutation.
		writeError(w, r, http.StatusNotFound, msgLineNotFound, err)
		return
	case err != nil:
		writeError(w, r, http.StatusInternalServerError, prefixCart+err.Error(), err)
		return
	}
	if res.Message == cart.MsgRemoved {
		h.removed.Add(r.Context(), 1)
	}

	var e jx.Encoder
	encodeResult(&e, *res)
	writeJSON(w, http.StatusOK, &e)
}
