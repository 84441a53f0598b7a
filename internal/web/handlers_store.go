package web

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/solarerp/internal/core"
)

// handleLowStock lists inventory items at or below their reorder level.
func (s *Server) handleLowStock(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.LowStock(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"items": items,
		"count": len(items),
	})
}

// handleStoreProducts lists the storefront. Query: q, category.
func (s *Server) handleStoreProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products, err := s.service.StoreProducts(r.Context(), strings.TrimSpace(q.Get("q")), strings.TrimSpace(q.Get("category")))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"products": products})
}

// handleStoreProduct returns one product with its reviews.
func (s *Server) handleStoreProduct(w http.ResponseWriter, r *http.Request) {
	product, err := s.service.StoreProduct(r.Context(), chi.URLParam(r, "itemCode"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, product)
}

// handleGetCart returns a customer's cart.
func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := s.service.GetCart(r.Context(), chi.URLParam(r, "customerID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, cart)
}

// handleAddToCart adds quantity of an item, merging with an existing line.
func (s *Server) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	var req core.CartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	cart, err := s.service.AddToCart(r.Context(), chi.URLParam(r, "customerID"), req.ItemCode, req.Quantity)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, cart)
}

// handleUpdateCartItem sets a line's quantity; zero removes the line.
func (s *Server) handleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req core.CartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	cart, err := s.service.UpdateCartItem(r.Context(), chi.URLParam(r, "customerID"), chi.URLParam(r, "itemCode"), req.Quantity)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, cart)
}

// handleRemoveCartItem drops one line from the cart.
func (s *Server) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	cart, err := s.service.RemoveCartItem(r.Context(), chi.URLParam(r, "customerID"), chi.URLParam(r, "itemCode"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, cart)
}

// handleClearCart empties a customer's cart.
func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	if err := s.service.ClearCart(r.Context(), chi.URLParam(r, "customerID")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCheckout turns the cart into an order and a payment.
func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req core.CheckoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	order, err := s.service.Checkout(r.Context(), chi.URLParam(r, "customerID"), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, order)
}
