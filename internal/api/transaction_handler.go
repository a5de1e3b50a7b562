package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/techstore/pos/internal/domain"
	"github.com/techstore/pos/internal/ledger"
	"github.com/techstore/pos/internal/receipt"
)

type TransactionItemDTO struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Barcode   string `json:"barcode"`
	Quantity  int64  `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal"`
}

type TransactionDTO struct {
	ID          int64                `json:"id"`
	Date        time.Time            `json:"date"`
	CashierID   int64                `json:"cashier_id"`
	CashierName string               `json:"cashier_name"`
	Subtotal    string               `json:"subtotal"`
	Tax         string               `json:"tax"`
	Total       string               `json:"total"`
	AmountPaid  string               `json:"amount_paid"`
	Change      string               `json:"change"`
	Items       []TransactionItemDTO `json:"items,omitempty"`
}

func toTransactionDTO(t domain.Transaction) TransactionDTO {
	dto := TransactionDTO{
		ID:          t.ID,
		Date:        t.Date,
		CashierID:   t.CashierID,
		CashierName: t.CashierName,
		Subtotal:    t.Subtotal.StringFixed(2),
		Tax:         t.Tax.StringFixed(2),
		Total:       t.Total.StringFixed(2),
		AmountPaid:  t.AmountPaid.StringFixed(2),
		Change:      t.Change.StringFixed(2),
	}
	for _, it := range t.Items {
		dto.Items = append(dto.Items, TransactionItemDTO{
			ProductID: it.ProductID,
			Name:      it.ProductName,
			Barcode:   it.ProductBarcode,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.StringFixed(2),
			Subtotal:  it.Subtotal.StringFixed(2),
		})
	}
	return dto
}

// ListTransactions serves the history view; from/to accept YYYY-MM-DD and
// bound the period by day. limit alone returns the newest n sales for the
// dashboard's recent-activity card.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		transactions, err := h.ledger.ListRecent(r.Context(), limit)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "internal_error", "failed to list transactions")
			return
		}
		out := make([]TransactionDTO, len(transactions))
		for i, t := range transactions {
			out[i] = toTransactionDTO(t)
		}
		respondJSON(w, http.StatusOK, out)
		return
	}

	var p ledger.Period
	if from := r.URL.Query().Get("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_period", "from must be YYYY-MM-DD")
			return
		}
		p.From = t
	}
	if to := r.URL.Query().Get("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_period", "to must be YYYY-MM-DD")
			return
		}
		p.To = t.AddDate(0, 0, 1) // inclusive end day
	}

	transactions, err := h.ledger.List(r.Context(), p)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list transactions")
		return
	}
	out := make([]TransactionDTO, len(transactions))
	for i, t := range transactions {
		out[i] = toTransactionDTO(t)
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	t, err := h.ledger.Get(r.Context(), id)
	if errors.Is(err, ledger.ErrTransactionNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "transaction not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load transaction")
		return
	}
	respondJSON(w, http.StatusOK, toTransactionDTO(*t))
}

// GetReceipt returns the stored payload; ?format=text renders the printable
// slip instead.
func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	txID, data, _, err := h.ledger.GetReceipt(r.Context(), id)
	if errors.Is(err, ledger.ErrReceiptNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "receipt not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load receipt")
		return
	}

	if strings.EqualFold(r.URL.Query().Get("format"), "text") {
		payload, err := receipt.Parse(data)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "internal_error", "stored receipt is unreadable")
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(receipt.Render(payload)))
		return
	}

	respondJSON(w, http.StatusOK, ReceiptResponseDTO{
		TransactionID: txID,
		Receipt:       json.RawMessage(data),
	})
}
