package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pocketbook/backend/internal/domain/shared"
	"github.com/pocketbook/backend/internal/infrastructure/auth"
	"github.com/pocketbook/backend/internal/infrastructure/logger"
	"github.com/pocketbook/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Session context keys and headers
const (
	SessionKey    = "session"
	ClaimsKey     = "token_claims"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
	UserIDHeader  = "X-User-ID"
)

// SessionConfig configures the session middleware
type SessionConfig struct {
	// Tokens validates bearer tokens; nil disables them
	Tokens *auth.TokenService
	// Revocations is optional
	Revocations auth.Revocations
	// AllowUserIDHeader accepts X-User-ID when no bearer token is sent.
	// Never enabled in production.
	AllowUserIDHeader bool
	Logger            *zap.Logger
}

// Session resolves the signed-in user and stores a shared.Session in the context
func Session(cfg SessionConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		userID, claims, err := resolveUser(c, cfg, log)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		session, err := shared.NewSession(userID)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}

		c.Set(SessionKey, session)
		if claims != nil {
			c.Set(ClaimsKey, claims)
		}
		ctx, _ := logger.WithUserID(c.Request.Context(), logger.FromContext(c.Request.Context()), session.UserID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func resolveUser(c *gin.Context, cfg SessionConfig, log *zap.Logger) (string, *auth.Claims, error) {
	header := c.GetHeader(AuthHeaderKey)
	if header == "" {
		if cfg.AllowUserIDHeader {
			return c.GetHeader(UserIDHeader), nil, nil
		}
		return "", nil, auth.ErrInvalidToken
	}
	if cfg.Tokens == nil || !strings.HasPrefix(header, BearerPrefix) {
		return "", nil, auth.ErrInvalidToken
	}

	claims, err := cfg.Tokens.Validate(strings.TrimPrefix(header, BearerPrefix))
	if err != nil {
		return "", nil, err
	}
	if err := auth.Check(c.Request.Context(), cfg.Revocations, claims); err != nil {
		if errors.Is(err, auth.ErrTokenRevoked) {
			return "", nil, err
		}
		// fail open: the revocation store being down must not lock everyone out
		log.Error("Failed to check token revocation", zap.String("jti", claims.ID), zap.Error(err))
	}
	return claims.UserID, claims, nil
}

func abortUnauthorized(c *gin.Context, err error) {
	code, message := dto.ErrCodeUnauthorized, "Sign in required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, message = dto.ErrCodeTokenExpired, "Session has expired"
	case errors.Is(err, auth.ErrTokenRevoked):
		code, message = dto.ErrCodeTokenRevoked, "Session has been signed out"
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidClaims),
		errors.Is(err, auth.ErrMissingUserID), errors.Is(err, auth.ErrTokenNotYetValid):
		code, message = dto.ErrCodeTokenInvalid, "Invalid session token"
	case errors.Is(err, shared.ErrValidation):
		message = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponseWithRequestID(code, message, c.GetString(RequestIDKey)))
}

// GetSession returns the session set by Session
func GetSession(c *gin.Context) (shared.Session, bool) {
	v, ok := c.Get(SessionKey)
	if !ok {
		return shared.Session{}, false
	}
	s, ok := v.(shared.Session)
	return s, ok && s.Valid()
}

// GetClaims returns the token claims, nil for header sessions
func GetClaims(c *gin.Context) *auth.Claims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}
