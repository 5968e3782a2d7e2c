package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	appcart "github.com/knwn/storefront/internal/application/cart"
	"github.com/knwn/storefront/internal/domain/cart"
	"github.com/knwn/storefront/internal/interfaces/http/dto"
	"github.com/knwn/storefront/internal/interfaces/http/middleware"
)

// CartSessions resolves the cart of a browser session
type CartSessions interface {
	Session(ctx context.Context, id string) (*appcart.Session, error)
}

// CartHandler serves the session cart
type CartHandler struct {
	BaseHandler
	carts CartSessions
}

// NewCartHandler creates a CartHandler
func NewCartHandler(carts CartSessions) *CartHandler {
	return &CartHandler{carts: carts}
}

func (h *CartHandler) session(c *gin.Context) (*appcart.Session, bool) {
	sess, err := h.carts.Session(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		h.HandleError(c, err)
		return nil, false
	}
	return sess, true
}

func (h *CartHandler) lineKey(c *gin.Context, req dto.LineRequest) (cart.LineKey, bool) {
	day, ok := h.parseDay(c, req.Date)
	if !ok {
		return cart.LineKey{}, false
	}
	return cart.NewLineKey(req.ItemID, day, req.Customizations), true
}

// respond writes the cart view. A rejected past-date add still returns the
// cart so the client can show the notice.
func (h *CartHandler) respond(c *gin.Context, view *appcart.CartView, err error) {
	if err != nil {
		if errors.Is(err, cart.ErrPastDate) {
			h.HandleErrorWithData(c, err, view)
			return
		}
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// GetCart returns the session cart
// GET /api/v1/cart
func (h *CartHandler) GetCart(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	h.Success(c, sess.View())
}

// AddItem adds one unit of a menu item for a service day
// POST /api/v1/cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	var req dto.LineRequest
	if !h.BindJSON(c, &req) {
		return
	}
	day, ok := h.parseDay(c, req.Date)
	if !ok {
		return
	}
	sess, ok := h.session(c)
	if !ok {
		return
	}

	view, err := sess.Add(c.Request.Context(), appcart.AddItemRequest{
		ItemID:        req.ItemID,
		Date:          day,
		Customization: req.Customizations,
	})
	h.respond(c, view, err)
}

// UpdateQuantity changes a line's quantity by delta; reaching zero removes it
// PATCH /api/v1/cart/items
func (h *CartHandler) UpdateQuantity(c *gin.Context) {
	var req dto.UpdateQuantityRequest
	if !h.BindJSON(c, &req) {
		return
	}
	key, ok := h.lineKey(c, req.LineRequest)
	if !ok {
		return
	}
	sess, ok := h.session(c)
	if !ok {
		return
	}

	view, err := sess.UpdateQuantity(c.Request.Context(), key, req.Delta)
	h.respond(c, view, err)
}

// RemoveItem deletes a line
// DELETE /api/v1/cart/items
func (h *CartHandler) RemoveItem(c *gin.Context) {
	var req dto.LineRequest
	if !h.BindJSON(c, &req) {
		return
	}
	key, ok := h.lineKey(c, req)
	if !ok {
		return
	}
	sess, ok := h.session(c)
	if !ok {
		return
	}

	view, err := sess.Remove(c.Request.Context(), key)
	h.respond(c, view, err)
}

// ClearCart empties the cart
// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	view, err := sess.Clear(c.Request.Context())
	h.respond(c, view, err)
}

// Checkout rebuilds the remote cart and returns the checkout URL. The
// redirect is withheld when the rebuild fails.
// POST /api/v1/cart/checkout
func (h *CartHandler) Checkout(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	result, err := sess.CheckoutHandoff(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
