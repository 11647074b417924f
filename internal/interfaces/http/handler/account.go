package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pocketbook/backend/internal/application/account"
	"github.com/pocketbook/backend/internal/application/workspace"
	"github.com/pocketbook/backend/internal/infrastructure/auth"
	"github.com/pocketbook/backend/internal/infrastructure/logger"
	"github.com/pocketbook/backend/internal/interfaces/http/dto"
	"github.com/pocketbook/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// AccountHandler provisions and purges the signed-in user's documents
type AccountHandler struct {
	BaseHandler
	accounts    *account.Service
	registry    *workspace.Registry
	tokens      *auth.TokenService
	revocations auth.Revocations
}

// NewAccountHandler creates an AccountHandler. revocations may be nil, in
// which case purge and sign-out do not invalidate outstanding tokens.
func NewAccountHandler(accounts *account.Service, registry *workspace.Registry, tokens *auth.TokenService, revocations auth.Revocations) *AccountHandler {
	return &AccountHandler{accounts: accounts, registry: registry, tokens: tokens, revocations: revocations}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *AccountHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/account", h.Provision)
	rg.GET("/account", h.Get)
	rg.DELETE("/account", h.Purge)
	rg.DELETE("/session", h.SignOut)
}

// AccountResponse reports whether the user has been provisioned
type AccountResponse struct {
	UserID string `json:"userId"`
	Exists bool   `json:"exists"`
}

// Provision creates the profile and the empty ledger of a new user
func (h *AccountHandler) Provision(c *gin.Context) {
	session, ok := middleware.GetSession(c)
	if !ok {
		h.Error(c, dto.ErrCodeUnauthorized, "Sign in required")
		return
	}
	var req account.ProvisionRequest
	if err := bind(c, &req); err != nil {
		h.HandleError(c, err)
		return
	}
	sub, err := h.accounts.Provision(c.Request.Context(), session, req)
	h.Finish(c, http.StatusCreated, sub, err)
}

// Get reports whether the user's profile exists
func (h *AccountHandler) Get(c *gin.Context) {
	session, ok := middleware.GetSession(c)
	if !ok {
		h.Error(c, dto.ErrCodeUnauthorized, "Sign in required")
		return
	}
	exists, err := h.accounts.Exists(c.Request.Context(), session)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, AccountResponse{UserID: session.UserID, Exists: exists})
}

// Purge deletes every document of the user and revokes their tokens
func (h *AccountHandler) Purge(c *gin.Context) {
	session, ok := middleware.GetSession(c)
	if !ok {
		h.Error(c, dto.ErrCodeUnauthorized, "Sign in required")
		return
	}
	h.registry.Drop(session.UserID)
	sub, err := h.accounts.Purge(c.Request.Context(), session)
	if err == nil && h.revocations != nil && h.tokens != nil {
		if rerr := h.revocations.RevokeUser(c.Request.Context(), session.UserID, h.tokens.Expiration()); rerr != nil {
			logger.GetGinLogger(c).Warn("Failed to revoke user tokens", zap.Error(rerr))
		}
	}
	h.Finish(c, http.StatusOK, sub, err)
}

// SignOut revokes the bearer token of this request
func (h *AccountHandler) SignOut(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil || h.revocations == nil {
		h.BadRequest(c, "No bearer token to revoke")
		return
	}
	if err := h.revocations.Revoke(c.Request.Context(), claims.ID, claims.RemainingTTL()); err != nil {
		h.HandleError(c, err)
		return
	}
	h.registry.Drop(claims.UserID)
	c.Status(http.StatusNoContent)
}
