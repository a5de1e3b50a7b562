// Package session binds terminal sessions to their live carts. The registry
// is the only shared structure and carries the only lock; each cart stays
// single-owner and unlocked.
package session

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/techstore/pos/internal/cart"
)

var ErrSessionNotFound = errors.New("session not found")

type Registry struct {
	mu    sync.RWMutex
	carts map[string]*cart.Cart
}

func NewRegistry() *Registry {
	return &Registry{carts: make(map[string]*cart.Cart)}
}

// Create opens a session with an empty cart and returns its id.
func (r *Registry) Create() string {
	id := uuid.NewString()
	r.mu.Lock()
	r.carts[id] = cart.New()
	r.mu.Unlock()
	return id
}

// Cart returns the session's cart. The caller is the session's sole owner;
// concurrent mutation of one cart is not supported.
func (r *Registry) Cart(id string) (*cart.Cart, error) {
	r.mu.RLock()
	c, ok := r.carts[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return c, nil
}

// Drop closes the session and discards its cart.
func (r *Registry) Drop(id string) {
	r.mu.Lock()
	delete(r.carts, id)
	r.mu.Unlock()
}

// Len reports how many sessions are open.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.carts)
}
