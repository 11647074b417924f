package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pocketbook/backend/internal/interfaces/http/dto"
)

// ChecklistHandler serves the to-buy list
type ChecklistHandler struct {
	WorkspaceHandler
	streamer Streamer
}

// NewChecklistHandler creates a ChecklistHandler
func NewChecklistHandler(base WorkspaceHandler, streamer Streamer) *ChecklistHandler {
	return &ChecklistHandler{WorkspaceHandler: base, streamer: streamer}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *ChecklistHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/list")
	g.GET("", h.Get)
	g.GET("/stream", h.Stream)
	g.POST("/items", h.Add)
	g.PUT("/items/:index", h.Rename)
	g.POST("/items/:index/toggle", h.Toggle)
	g.DELETE("/items/:index", h.Delete)
	g.POST("/clear", h.Clear)
}

// Get returns the list and how many items are left to buy
func (h *ChecklistHandler) Get(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	items, err := w.Checklist.Items()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, h.presenter.List(items))
}

// Stream pushes the list after every change
func (h *ChecklistHandler) Stream(c *gin.Context) {
	w, release, ok := h.streamWorkspace(c)
	if !ok {
		return
	}
	defer release()
	streamView(c, h.streamer, "list", w.Checklist.OnChange, func() (any, error) {
		items, err := w.Checklist.Items()
		if err != nil {
			return nil, err
		}
		return h.presenter.List(items), nil
	})
}

// Add appends an unchecked item
func (h *ChecklistHandler) Add(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	var req dto.NameRequest
	if err := bind(c, &req); err != nil {
		h.HandleError(c, err)
		return
	}
	sub, err := w.Checklist.Add(c.Request.Context(), req.Name)
	h.Finish(c, http.StatusCreated, sub, err)
}

// Rename changes an item's name
func (h *ChecklistHandler) Rename(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	index, err := indexParam(c, "index")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	var req dto.NameRequest
	if err := bind(c, &req); err != nil {
		h.HandleError(c, err)
		return
	}
	sub, err := w.Checklist.Rename(c.Request.Context(), index, req.Name)
	h.Finish(c, http.StatusOK, sub, err)
}

// Toggle flips an item between bought and not bought
func (h *ChecklistHandler) Toggle(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	index, err := indexParam(c, "index")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	sub, err := w.Checklist.Toggle(c.Request.Context(), index)
	h.Finish(c, http.StatusOK, sub, err)
}

// Delete removes an item
func (h *ChecklistHandler) Delete(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	index, err := indexParam(c, "index")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	sub, err := w.Checklist.Delete(c.Request.Context(), index)
	h.Finish(c, http.StatusOK, sub, err)
}

// Clear removes every item
func (h *ChecklistHandler) Clear(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	sub, err := w.Checklist.Clear(c.Request.Context())
	h.Finish(c, http.StatusOK, sub, err)
}
