package handler

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/pocketbook/backend/internal/application/express"
	"github.com/pocketbook/backend/internal/domain/cart"
	"github.com/pocketbook/backend/internal/domain/store"
	"github.com/pocketbook/backend/internal/interfaces/http/dto"
	"github.com/pocketbook/backend/internal/interfaces/http/middleware"
)

// GuestHandler serves the express cart of devices that have not signed in
type GuestHandler struct {
	BaseHandler
	blobs     store.BlobStore
	baseKey   string
	presenter dto.Presenter
	opts      []express.Option
	limiter   *middleware.RateLimiter

	// one cart per key so writes to the same blob are serialized
	carts sync.Map
}

// NewGuestHandler creates a GuestHandler storing carts under baseKey
func NewGuestHandler(blobs store.BlobStore, baseKey string, presenter dto.Presenter, opts ...express.Option) *GuestHandler {
	return &GuestHandler{blobs: blobs, baseKey: baseKey, presenter: presenter, opts: opts}
}

// Limit rate-limits every guest route per device
func (h *GuestHandler) Limit(rl *middleware.RateLimiter) *GuestHandler {
	h.limiter = rl
	return h
}

// RegisterRoutes implements router.RouteRegistrar
func (h *GuestHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/guest/:device", middleware.RateLimit(h.limiter, middleware.GuestKey))
	g.GET("", h.Get)
	g.POST("/items", h.Add)
	g.PUT("/items/:index", h.Edit)
	g.DELETE("/items/:index", h.Delete)
	g.DELETE("", h.Clear)
}

func (h *GuestHandler) cart(c *gin.Context) *express.GuestCart {
	key := express.GuestKey(h.baseKey, c.Param("device"))
	if v, ok := h.carts.Load(key); ok {
		return v.(*express.GuestCart)
	}
	v, _ := h.carts.LoadOrStore(key, express.NewGuestCart(h.blobs, key, h.opts...))
	return v.(*express.GuestCart)
}

func (h *GuestHandler) render(c *gin.Context, status int, b cart.Blob) {
	c.JSON(status, dto.NewSuccessResponse(h.presenter.Cart(b.Data, b.Stamp())))
}

// Get loads the stored cart
func (h *GuestHandler) Get(c *gin.Context) {
	b, err := h.cart(c).Load(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.render(c, http.StatusOK, b)
}

// Add appends an item
func (h *GuestHandler) Add(c *gin.Context) {
	var req dto.ItemRequest
	if err := bind(c, &req); err != nil {
		h.HandleError(c, err)
		return
	}
	item, err := req.Item()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	b, err := h.cart(c).Add(c.Request.Context(), item)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.render(c, http.StatusCreated, b)
}

// Edit replaces an item
func (h *GuestHandler) Edit(c *gin.Context) {
	index, err := indexParam(c, "index")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	var req dto.ItemRequest
	if err := bind(c, &req); err != nil {
		h.HandleError(c, err)
		return
	}
	item, err := req.Item()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	b, err := h.cart(c).Edit(c.Request.Context(), index, item)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.render(c, http.StatusOK, b)
}

// Delete removes an item
func (h *GuestHandler) Delete(c *gin.Context) {
	index, err := indexParam(c, "index")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	b, err := h.cart(c).Delete(c.Request.Context(), index)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.render(c, http.StatusOK, b)
}

// Clear removes the stored cart
func (h *GuestHandler) Clear(c *gin.Context) {
	if err := h.cart(c).Clear(c.Request.Context()); err != nil {
		h.HandleError(c, err)
		return
	}
	h.render(c, http.StatusOK, cart.EmptyBlob())
}
