package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pocketbook/backend/internal/domain/cart"
)

// ReceiptHandler serves the archived express carts
type ReceiptHandler struct {
	WorkspaceHandler
	streamer Streamer
}

// NewReceiptHandler creates a ReceiptHandler
func NewReceiptHandler(base WorkspaceHandler, streamer Streamer) *ReceiptHandler {
	return &ReceiptHandler{WorkspaceHandler: base, streamer: streamer}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *ReceiptHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/receipts")
	g.GET("", h.List)
	g.GET("/stream", h.Stream)
	g.POST("/clear", h.Clear)
	g.GET("/:id", h.Get)
	g.DELETE("/:id", h.Delete)
}

// List returns the history newest first. With ?q= it keeps only receipts
// whose ?field= (totalPrice by default) contains q.
func (h *ReceiptHandler) List(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	var (
		receipts []cart.Receipt
		err      error
	)
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		field := cart.SearchTotalPrice
		if raw := c.Query("field"); raw != "" {
			if field, err = cart.ParseSearchField(raw); err != nil {
				h.HandleError(c, err)
				return
			}
		}
		receipts, err = w.Receipts.Search(field, q)
	} else {
		receipts, err = w.Receipts.History()
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, h.presenter.Receipts(receipts))
}

// Stream pushes the history after every change
func (h *ReceiptHandler) Stream(c *gin.Context) {
	w, release, ok := h.streamWorkspace(c)
	if !ok {
		return
	}
	defer release()
	streamView(c, h.streamer, "receipts", w.Receipts.OnChange, func() (any, error) {
		receipts, err := w.Receipts.History()
		if err != nil {
			return nil, err
		}
		return h.presenter.Receipts(receipts), nil
	})
}

// Get returns one receipt
func (h *ReceiptHandler) Get(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	r, found, err := w.Receipts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !found {
		h.NotFound(c, "Receipt not found")
		return
	}
	h.Success(c, h.presenter.Receipt(r))
}

// Delete removes one receipt
func (h *ReceiptHandler) Delete(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	sub, err := w.Receipts.Delete(c.Request.Context(), c.Param("id"))
	h.Finish(c, http.StatusOK, sub, err)
}

// Clear deletes the whole history
func (h *ReceiptHandler) Clear(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	sub, err := w.Receipts.Clear(c.Request.Context())
	h.Finish(c, http.StatusOK, sub, err)
}
