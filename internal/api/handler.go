// Package api exposes the terminal-facing HTTP surface: catalog browsing and
// CRUD, cart sessions, checkout, transaction history, cashier identities,
// and the dashboard aggregates.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/techstore/pos/internal/cashier"
	"github.com/techstore/pos/internal/catalog"
	"github.com/techstore/pos/internal/checkout"
	"github.com/techstore/pos/internal/ledger"
	"github.com/techstore/pos/internal/session"
	"github.com/techstore/pos/internal/stats"
)

type Handler struct {
	catalog     catalog.RepoInterface
	ledger      ledger.LedgerInterface
	cashiers    cashier.RepoInterface
	sessions    *session.Registry
	coordinator *checkout.Coordinator
	stats       *stats.Service
}

func NewHandler(
	cat catalog.RepoInterface,
	led ledger.LedgerInterface,
	users cashier.RepoInterface,
	sessions *session.Registry,
	coordinator *checkout.Coordinator,
	st *stats.Service,
) *Handler {
	return &Handler{
		catalog:     cat,
		ledger:      led,
		cashiers:    users,
		sessions:    sessions,
		coordinator: coordinator,
		stats:       st,
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Post("/", h.CreateProduct)
		r.Get("/categories", h.ListCategories)
		r.Get("/{id}", h.GetProduct)
		r.Put("/{id}", h.UpdateProduct)
		r.Delete("/{id}", h.DeleteProduct)
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.CreateSession)
		r.Delete("/{id}", h.CloseSession)
		r.Get("/{id}/cart", h.GetCart)
		r.Post("/{id}/cart/items", h.AddCartItem)
		r.Put("/{id}/cart/items/{productID}", h.SetCartQuantity)
		r.Delete("/{id}/cart/items/{productID}", h.RemoveCartItem)
		r.Delete("/{id}/cart", h.ClearCart)
		r.Post("/{id}/checkout", h.Checkout)
	})

	r.Route("/transactions", func(r chi.Router) {
		r.Get("/", h.ListTransactions)
		r.Get("/{id}", h.GetTransaction)
		r.Get("/{id}/receipt", h.GetReceipt)
	})

	r.Post("/login", h.Login)
	r.Route("/cashiers", func(r chi.Router) {
		r.Get("/", h.ListCashiers)
		r.Post("/", h.CreateCashier)
	})

	r.Get("/stats/earnings", h.GetEarnings)
	r.Get("/stats/overview", h.GetOverview)

	return r
}
