package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/techstore/pos/internal/catalog"
	"github.com/techstore/pos/internal/domain"
)

type ProductDTO struct {
	ID       int64  `json:"id"`
	Barcode  string `json:"barcode"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Price    string `json:"price"`
	Stock    int64  `json:"stock"`
}

type ProductRequestDTO struct {
	Barcode  string `json:"barcode"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Price    string `json:"price"`
	Stock    int64  `json:"stock"`
}

func toProductDTO(p domain.Product) ProductDTO {
	return ProductDTO{
		ID:       p.ID,
		Barcode:  p.Barcode,
		Name:     p.Name,
		Category: p.Category,
		Price:    p.UnitPrice.StringFixed(2),
		Stock:    p.Stock,
	}
}

// ListProducts serves the terminal's product grid. Display-only reads
// degrade to an empty list when the catalog query fails.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	f := catalog.Filter{
		Query:    r.URL.Query().Get("query"),
		Category: r.URL.Query().Get("category"),
	}
	products, err := h.catalog.Find(r.Context(), f)
	if err != nil {
		log.Printf("product search failed: %v", err)
		respondJSON(w, http.StatusOK, []ProductDTO{})
		return
	}

	out := make([]ProductDTO, len(products))
	for i, p := range products {
		out[i] = toProductDTO(p)
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		log.Printf("category listing failed: %v", err)
		respondJSON(w, http.StatusOK, []string{})
		return
	}
	if categories == nil {
		categories = []string{}
	}
	respondJSON(w, http.StatusOK, categories)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.catalog.Get(r.Context(), id)
	if errors.Is(err, catalog.ErrProductNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "product not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load product")
		return
	}
	respondJSON(w, http.StatusOK, toProductDTO(*p))
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := decodeProduct(w, r)
	if !ok {
		return
	}
	id, err := h.catalog.Create(r.Context(), p)
	if errors.Is(err, catalog.ErrDuplicateBarcode) {
		respondError(w, http.StatusConflict, "duplicate_barcode", err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to create product")
		return
	}
	p.ID = id
	respondJSON(w, http.StatusCreated, toProductDTO(*p))
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, ok := decodeProduct(w, r)
	if !ok {
		return
	}
	p.ID = id
	err := h.catalog.Update(r.Context(), p)
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "not_found", "product not found")
	case errors.Is(err, catalog.ErrDuplicateBarcode):
		respondError(w, http.StatusConflict, "duplicate_barcode", err.Error())
	case err != nil:
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to update product")
	default:
		respondJSON(w, http.StatusOK, toProductDTO(*p))
	}
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	err := h.catalog.Delete(r.Context(), id)
	if errors.Is(err, catalog.ErrProductNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "product not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to delete product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeProduct(w http.ResponseWriter, r *http.Request) (*domain.Product, bool) {
	var req ProductRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return nil, false
	}
	if req.Barcode == "" || req.Name == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "barcode and name are required")
		return nil, false
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil || !price.IsPositive() {
		respondError(w, http.StatusBadRequest, "invalid_price", "price must be a positive number")
		return nil, false
	}
	if req.Stock < 0 {
		respondError(w, http.StatusBadRequest, "invalid_stock", "stock must not be negative")
		return nil, false
	}
	return &domain.Product{
		Barcode:   req.Barcode,
		Name:      req.Name,
		Category:  req.Category,
		UnitPrice: price,
		Stock:     req.Stock,
	}, true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_id", name+" must be a positive integer")
		return 0, false
	}
	return id, true
}
