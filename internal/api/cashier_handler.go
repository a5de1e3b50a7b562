package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/techstore/pos/internal/cashier"
	"github.com/techstore/pos/internal/domain"
)

type CashierDTO struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	FullName  string    `json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
}

type LoginRequestDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CreateCashierRequestDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
	FullName string `json:"full_name"`
}

func toCashierDTO(c domain.Cashier) CashierDTO {
	return CashierDTO{
		ID:        c.ID,
		Username:  c.Username,
		Role:      string(c.Role),
		FullName:  c.FullName,
		CreatedAt: c.CreatedAt,
	}
}

// Login resolves a cashier identity. There are no tokens or sessions; the
// terminal keeps the returned id for its commits.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	c, err := h.cashiers.Authenticate(r.Context(), req.Username, req.Password)
	if errors.Is(err, cashier.ErrInvalidCredentials) {
		respondError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "login failed")
		return
	}
	respondJSON(w, http.StatusOK, toCashierDTO(*c))
}

func (h *Handler) ListCashiers(w http.ResponseWriter, r *http.Request) {
	users, err := h.cashiers.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list cashiers")
		return
	}
	out := make([]CashierDTO, len(users))
	for i, c := range users {
		out[i] = toCashierDTO(c)
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateCashier(w http.ResponseWriter, r *http.Request) {
	var req CreateCashierRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}
	role := domain.Role(req.Role)
	if role == "" {
		role = domain.RoleCashier
	}

	c, err := h.cashiers.Create(r.Context(), req.Username, req.Password, role, req.FullName)
	if errors.Is(err, cashier.ErrDuplicateUsername) {
		respondError(w, http.StatusConflict, "duplicate_username", err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, toCashierDTO(*c))
}
