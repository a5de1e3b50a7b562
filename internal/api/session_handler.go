package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/techstore/pos/internal/cart"
	"github.com/techstore/pos/internal/catalog"
	"github.com/techstore/pos/internal/checkout"
	"github.com/techstore/pos/internal/receipt"
)

type CartLineDTO struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Barcode   string `json:"barcode"`
	UnitPrice string `json:"unit_price"`
	Quantity  int64  `json:"quantity"`
}

type CartDTO struct {
	Lines    []CartLineDTO `json:"lines"`
	Subtotal string        `json:"subtotal"`
	Tax      string        `json:"tax"`
	Total    string        `json:"total"`
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type SetQuantityRequestDTO struct {
	Quantity int64 `json:"quantity"`
}

type CheckoutRequestDTO struct {
	CashierID int64  `json:"cashier_id"`
	Payment   string `json:"payment"`
}

func toCartDTO(c *cart.Cart) CartDTO {
	lines := c.Lines()
	totals := c.Totals()
	dto := CartDTO{
		Lines:    make([]CartLineDTO, len(lines)),
		Subtotal: totals.Subtotal.StringFixed(2),
		Tax:      totals.Tax.StringFixed(2),
		Total:    totals.Total.StringFixed(2),
	}
	for i, l := range lines {
		dto.Lines[i] = CartLineDTO{
			ProductID: l.ProductID,
			Name:      l.Name,
			Barcode:   l.Barcode,
			UnitPrice: l.UnitPrice.StringFixed(2),
			Quantity:  l.Quantity,
		}
	}
	return dto
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	id := h.sessions.Create()
	respondJSON(w, http.StatusCreated, map[string]string{"session_id": id})
}

func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	h.sessions.Drop(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) sessionCart(w http.ResponseWriter, r *http.Request) (*cart.Cart, bool) {
	c, err := h.sessions.Cart(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", "no such session")
		return nil, false
	}
	return c, true
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, ok := h.sessionCart(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, toCartDTO(c))
}

func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.sessionCart(w, r)
	if !ok {
		return
	}
	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	p, err := h.catalog.Get(r.Context(), req.ProductID)
	if errors.Is(err, catalog.ErrProductNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "product not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load product")
		return
	}

	c.Add(*p, req.Quantity)
	respondJSON(w, http.StatusOK, toCartDTO(c))
}

// SetCartQuantity sets a line's quantity; zero or below removes the line,
// matching the cart semantics. Non-numeric input never gets past the JSON
// decoder, leaving the previous value in place.
func (h *Handler) SetCartQuantity(w http.ResponseWriter, r *http.Request) {
	c, ok := h.sessionCart(w, r)
	if !ok {
		return
	}
	productID, ok := pathID(w, r, "productID")
	if !ok {
		return
	}
	var req SetQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	c.SetQuantity(productID, req.Quantity)
	respondJSON(w, http.StatusOK, toCartDTO(c))
}

func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.sessionCart(w, r)
	if !ok {
		return
	}
	productID, ok := pathID(w, r, "productID")
	if !ok {
		return
	}
	c.Remove(productID)
	respondJSON(w, http.StatusOK, toCartDTO(c))
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	c, ok := h.sessionCart(w, r)
	if !ok {
		return
	}
	c.Clear()
	respondJSON(w, http.StatusOK, toCartDTO(c))
}

type ReceiptResponseDTO struct {
	TransactionID int64           `json:"transaction_id"`
	Receipt       json.RawMessage `json:"receipt"`
	Rendered      string          `json:"rendered"`
}

// Checkout commits the session's cart. The commit error taxonomy maps onto
// HTTP statuses; the cart survives every failure so the caller can adjust
// and retry.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	c, ok := h.sessionCart(w, r)
	if !ok {
		return
	}
	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	cashierRec, err := h.cashiers.Get(r.Context(), req.CashierID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "unknown_cashier", "cashier does not exist")
		return
	}
	cashierName := cashierRec.FullName
	if cashierName == "" {
		cashierName = cashierRec.Username
	}

	rec, err := h.coordinator.Commit(r.Context(), c, cashierRec.ID, cashierName, req.Payment)
	if err != nil {
		respondCommitError(w, err)
		return
	}

	payload, err := receipt.Marshal(rec.Data)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to encode receipt")
		return
	}
	respondJSON(w, http.StatusCreated, ReceiptResponseDTO{
		TransactionID: rec.TransactionID,
		Receipt:       payload,
		Rendered:      receipt.Render(rec.Data),
	})
}

func respondCommitError(w http.ResponseWriter, err error) {
	var (
		stockErr   *catalog.InsufficientStockError
		persistErr *checkout.PersistenceError
	)
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", err.Error())
	case errors.Is(err, checkout.ErrInvalidPayment):
		respondError(w, http.StatusBadRequest, "invalid_payment", err.Error())
	case errors.Is(err, checkout.ErrInsufficientPayment):
		respondError(w, http.StatusBadRequest, "insufficient_payment", err.Error())
	case errors.As(err, &stockErr):
		respondError(w, http.StatusConflict, "insufficient_stock", stockErr.Error())
	case errors.As(err, &persistErr):
		respondError(w, http.StatusServiceUnavailable, "persistence_failure", "could not commit the sale, no changes were made")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "checkout failed")
	}
}
