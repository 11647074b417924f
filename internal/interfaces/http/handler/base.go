package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pocketbook/backend/internal/application/dispatch"
	"github.com/pocketbook/backend/internal/application/workspace"
	"github.com/pocketbook/backend/internal/domain/shared"
	"github.com/pocketbook/backend/internal/infrastructure/logger"
	"github.com/pocketbook/backend/internal/interfaces/http/dto"
	"github.com/pocketbook/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

func getRequestID(c *gin.Context) string {
	return c.GetString(middleware.RequestIDKey)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response, deriving the status from the code
func (h *BaseHandler) Error(c *gin.Context, code, message string) {
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, dto.ErrCodeNotFound, message)
}

// HandleError converts domain and write errors to HTTP responses
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	code := dto.NormalizeErrorCode(shared.Code(err))
	resp := dto.NewErrorResponseWithRequestID(code, err.Error(), getRequestID(c))

	var ve *shared.ValidationError
	switch {
	case errors.As(err, &ve):
		resp.Error.Field = ve.Field
	case code == dto.ErrCodeInternal:
		logger.GetGinLogger(c).Error("Request failed", zap.Error(err))
		resp.Error.Message = "An unexpected error occurred"
	}
	c.JSON(dto.GetHTTPStatus(code), resp)
}

// Finish waits for a write submission and reports every document's outcome.
// Any failed document turns the response into a 502 carrying the joined errors.
func (h *BaseHandler) Finish(c *gin.Context, status int, sub *dispatch.Submission, err error) {
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if err := sub.Wait(c.Request.Context()); err != nil {
		log := logger.GetGinLogger(c)
		for _, path := range sub.Failed() {
			log.Error("Document write failed", zap.String("path", path))
		}
		resp := dto.NewErrorResponseWithRequestID(dto.ErrCodeBackendWrite, err.Error(), getRequestID(c))
		if c.Request.Context().Err() != nil {
			// the client left; writes continue in the background
			resp.Error.Code = dto.ErrCodeInternal
		}
		resp.Data = dto.Write(sub)
		c.JSON(dto.GetHTTPStatus(resp.Error.Code), resp)
		return
	}
	c.JSON(status, dto.NewSuccessResponse(dto.Write(sub)))
}

// indexParam reads a non-negative list index from the path
func indexParam(c *gin.Context, name string) (int, error) {
	i, err := strconv.Atoi(c.Param(name))
	if err != nil || i < 0 {
		return 0, shared.NewValidationError(name, "Invalid index: "+c.Param(name))
	}
	return i, nil
}

// bind decodes the JSON body into req
func bind(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return shared.NewValidationError("", "Invalid request body: "+err.Error())
	}
	return nil
}

// WorkspaceHandler is embedded by handlers that act on the signed-in user's documents
type WorkspaceHandler struct {
	BaseHandler
	registry  *workspace.Registry
	presenter dto.Presenter
}

// NewWorkspaceHandler creates the shared part of the per-user handlers
func NewWorkspaceHandler(registry *workspace.Registry, presenter dto.Presenter) WorkspaceHandler {
	return WorkspaceHandler{registry: registry, presenter: presenter}
}

// workspace returns the user's workspace, writing the error response on failure
func (h *WorkspaceHandler) workspace(c *gin.Context) (*workspace.Workspace, bool) {
	session, ok := middleware.GetSession(c)
	if !ok {
		h.Error(c, dto.ErrCodeUnauthorized, "Sign in required")
		return nil, false
	}
	w, err := h.registry.Get(c.Request.Context(), session)
	if err != nil {
		h.HandleError(c, err)
		return nil, false
	}
	return w, true
}

// streamWorkspace is workspace for SSE handlers; the workspace stays open
// until release is called
func (h *WorkspaceHandler) streamWorkspace(c *gin.Context) (*workspace.Workspace, func(), bool) {
	session, ok := middleware.GetSession(c)
	if !ok {
		h.Error(c, dto.ErrCodeUnauthorized, "Sign in required")
		return nil, nil, false
	}
	w, release, err := h.registry.Hold(c.Request.Context(), session)
	if err != nil {
		h.HandleError(c, err)
		return nil, nil, false
	}
	return w, release, true
}
