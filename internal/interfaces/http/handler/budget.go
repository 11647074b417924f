package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pocketbook/backend/internal/domain/budget"
	"github.com/pocketbook/backend/internal/interfaces/http/dto"
)

// BudgetHandler serves the income/expense ledger
type BudgetHandler struct {
	WorkspaceHandler
	streamer Streamer
}

// NewBudgetHandler creates a BudgetHandler
func NewBudgetHandler(base WorkspaceHandler, streamer Streamer) *BudgetHandler {
	return &BudgetHandler{WorkspaceHandler: base, streamer: streamer}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *BudgetHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/budget")
	g.GET("", h.Get)
	g.GET("/stream", h.Stream)
	g.POST("/entries", h.AddEntry)
	g.PUT("/entries/:section/:index", h.EditEntry)
	g.DELETE("/entries/:section/:index", h.DeleteEntry)
	g.POST("/clear", h.Clear)
}

// Get returns both sections and the balance
func (h *BudgetHandler) Get(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	l, err := w.Budget.Ledger()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, h.presenter.Budget(l))
}

// Stream pushes the ledger after every change
func (h *BudgetHandler) Stream(c *gin.Context) {
	w, release, ok := h.streamWorkspace(c)
	if !ok {
		return
	}
	defer release()
	streamView(c, h.streamer, "budget", w.Budget.OnChange, func() (any, error) {
		l, err := w.Budget.Ledger()
		if err != nil {
			return nil, err
		}
		return h.presenter.Budget(l), nil
	})
}

// AddEntry appends an entry to a section
func (h *BudgetHandler) AddEntry(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	var req dto.EntryRequest
	if err := bind(c, &req); err != nil {
		h.HandleError(c, err)
		return
	}
	section, err := budget.ParseSection(req.Section)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	entry, err := budget.NewEntry(section, req.Name, string(req.Value))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	sub, err := w.Budget.Add(c.Request.Context(), section, entry)
	h.Finish(c, http.StatusCreated, sub, err)
}

// EditEntry replaces an entry, moving it when "to" names the other section
func (h *BudgetHandler) EditEntry(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	from, index, err := sectionAndIndex(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	var req dto.EditEntryRequest
	if err := bind(c, &req); err != nil {
		h.HandleError(c, err)
		return
	}
	to := from
	if req.To != "" {
		if to, err = budget.ParseSection(req.To); err != nil {
			h.HandleError(c, err)
			return
		}
	}
	entry, err := budget.NewEntry(to, req.Name, string(req.Value))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	sub, err := w.Budget.Edit(c.Request.Context(), from, index, entry, to)
	h.Finish(c, http.StatusOK, sub, err)
}

// DeleteEntry removes one entry
func (h *BudgetHandler) DeleteEntry(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	section, index, err := sectionAndIndex(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	sub, err := w.Budget.Delete(c.Request.Context(), section, index)
	h.Finish(c, http.StatusOK, sub, err)
}

// Clear empties both sections
func (h *BudgetHandler) Clear(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	sub, err := w.Budget.Clear(c.Request.Context())
	h.Finish(c, http.StatusOK, sub, err)
}

func sectionAndIndex(c *gin.Context) (budget.SectionIndex, int, error) {
	section, err := budget.ParseSection(c.Param("section"))
	if err != nil {
		return 0, 0, err
	}
	index, err := indexParam(c, "index")
	return section, index, err
}
