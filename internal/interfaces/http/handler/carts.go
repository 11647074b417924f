package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pocketbook/backend/internal/application/dispatch"
	"github.com/pocketbook/backend/internal/application/workspace"
	"github.com/pocketbook/backend/internal/domain/cart"
	"github.com/pocketbook/backend/internal/domain/shared"
	"github.com/pocketbook/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
)

// itemCart is what the balance and express carts have in common
type itemCart interface {
	Items() ([]cart.Item, error)
	Stamp() shared.Stamp
	OnChange(fn func([]cart.Item)) func()
	Edit(ctx context.Context, index int, item cart.Item) (*dispatch.Submission, error)
}

// cartRoutes serves the item endpoints shared by both carts
type cartRoutes struct {
	*WorkspaceHandler
	streamer Streamer
	event    string
	pick     func(*workspace.Workspace) itemCart
	add      func(*workspace.Workspace, context.Context, cart.Item) (*dispatch.Submission, error)
	remove   func(*workspace.Workspace, context.Context, int) (*dispatch.Submission, error)
	clear    func(*workspace.Workspace, context.Context) (*dispatch.Submission, error)
}

func (r *cartRoutes) register(g *gin.RouterGroup) {
	g.GET("/stream", r.stream)
	g.POST("/items", r.addItem)
	g.PUT("/items/:index", r.editItem)
	g.DELETE("/items/:index", r.deleteItem)
	g.POST("/clear", r.clearItems)
}

func (r *cartRoutes) stream(c *gin.Context) {
	w, release, ok := r.streamWorkspace(c)
	if !ok {
		return
	}
	defer release()
	ic := r.pick(w)
	streamView(c, r.streamer, r.event, ic.OnChange, func() (any, error) {
		items, err := ic.Items()
		if err != nil {
			return nil, err
		}
		return r.presenter.Cart(items, ic.Stamp()), nil
	})
}

func (r *cartRoutes) addItem(c *gin.Context) {
	w, ok := r.workspace(c)
	if !ok {
		return
	}
	var req dto.ItemRequest
	if err := bind(c, &req); err != nil {
		r.HandleError(c, err)
		return
	}
	item, err := req.Item()
	if err != nil {
		r.HandleError(c, err)
		return
	}
	sub, err := r.add(w, c.Request.Context(), item)
	r.Finish(c, http.StatusCreated, sub, err)
}

func (r *cartRoutes) editItem(c *gin.Context) {
	w, ok := r.workspace(c)
	if !ok {
		return
	}
	index, err := indexParam(c, "index")
	if err != nil {
		r.HandleError(c, err)
		return
	}
	var req dto.ItemRequest
	if err := bind(c, &req); err != nil {
		r.HandleError(c, err)
		return
	}
	item, err := req.Item()
	if err != nil {
		r.HandleError(c, err)
		return
	}
	sub, err := r.pick(w).Edit(c.Request.Context(), index, item)
	r.Finish(c, http.StatusOK, sub, err)
}

func (r *cartRoutes) deleteItem(c *gin.Context) {
	w, ok := r.workspace(c)
	if !ok {
		return
	}
	index, err := indexParam(c, "index")
	if err != nil {
		r.HandleError(c, err)
		return
	}
	sub, err := r.remove(w, c.Request.Context(), index)
	r.Finish(c, http.StatusOK, sub, err)
}

func (r *cartRoutes) clearItems(c *gin.Context) {
	w, ok := r.workspace(c)
	if !ok {
		return
	}
	sub, err := r.clear(w, c.Request.Context())
	r.Finish(c, http.StatusOK, sub, err)
}

// BalanceHandler serves the balance cart
type BalanceHandler struct {
	WorkspaceHandler
	routes cartRoutes
}

// NewBalanceHandler creates a BalanceHandler
func NewBalanceHandler(base WorkspaceHandler, streamer Streamer) *BalanceHandler {
	h := &BalanceHandler{WorkspaceHandler: base}
	h.routes = cartRoutes{
		WorkspaceHandler: &h.WorkspaceHandler,
		streamer:         streamer,
		event:            "balance",
		pick:             func(w *workspace.Workspace) itemCart { return w.Balance },
		add: func(w *workspace.Workspace, ctx context.Context, it cart.Item) (*dispatch.Submission, error) {
			return w.Balance.Consume(ctx, it)
		},
		remove: func(w *workspace.Workspace, ctx context.Context, i int) (*dispatch.Submission, error) {
			return w.Balance.Remove(ctx, i)
		},
		clear: func(w *workspace.Workspace, ctx context.Context) (*dispatch.Submission, error) {
			return w.Balance.ClearAll(ctx)
		},
	}
	return h
}

// RegisterRoutes implements router.RouteRegistrar
func (h *BalanceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/balance")
	g.GET("", h.Get)
	h.routes.register(g)
}

// Get returns the consumption lines; with ?start= it also reports what remains
func (h *BalanceHandler) Get(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	var start *decimal.Decimal
	if raw := strings.TrimSpace(c.Query("start")); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			h.HandleError(c, shared.NewValidationError("start", "Invalid value input"))
			return
		}
		start = &d
	}
	items, err := w.Balance.Items()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, h.presenter.Balance(items, w.Balance.Stamp(), start))
}

// ExpressHandler serves the express cart
type ExpressHandler struct {
	WorkspaceHandler
	routes cartRoutes
}

// NewExpressHandler creates an ExpressHandler
func NewExpressHandler(base WorkspaceHandler, streamer Streamer) *ExpressHandler {
	h := &ExpressHandler{WorkspaceHandler: base}
	h.routes = cartRoutes{
		WorkspaceHandler: &h.WorkspaceHandler,
		streamer:         streamer,
		event:            "express",
		pick:             func(w *workspace.Workspace) itemCart { return w.Express },
		add: func(w *workspace.Workspace, ctx context.Context, it cart.Item) (*dispatch.Submission, error) {
			return w.Express.Add(ctx, it)
		},
		remove: func(w *workspace.Workspace, ctx context.Context, i int) (*dispatch.Submission, error) {
			return w.Express.Delete(ctx, i)
		},
		clear: func(w *workspace.Workspace, ctx context.Context) (*dispatch.Submission, error) {
			return w.Express.Clear(ctx)
		},
	}
	return h
}

// RegisterRoutes implements router.RouteRegistrar
func (h *ExpressHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/express")
	g.GET("", h.Get)
	g.POST("/archive", h.Archive)
	h.routes.register(g)
}

// Get returns the cart and its total
func (h *ExpressHandler) Get(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	items, err := w.Express.Items()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, h.presenter.Cart(items, w.Express.Stamp()))
}

// Archive saves the cart as the next receipt
func (h *ExpressHandler) Archive(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	sub, err := w.Express.Archive(c.Request.Context())
	h.Finish(c, http.StatusCreated, sub, err)
}
