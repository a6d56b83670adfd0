package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/domain/form"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/infrastructure/auth"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/infrastructure/logger"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// JWT context keys
const (
	JWTClaimsKey     = "jwt_claims"
	JWTUsernameKey   = "jwt_username"
	JWTFormTokenKey  = "jwt_form_token"
	AuthHeaderKey    = "Authorization"
	BearerPrefix     = "Bearer "
	FormTokenParam   = "token"
	SessionHeaderKey = "X-Form-Session"
)

// JWTMiddlewareConfig holds configuration for JWT middleware
type JWTMiddlewareConfig struct {
	// JWTService is required for token validation
	JWTService *auth.JWTService
	// Optional callback if token is invalid (default: return 401)
	OnError func(c *gin.Context, err error)
	Logger  *zap.Logger
}

// AdminAuthMiddleware requires a dashboard token on every request
func AdminAuthMiddleware(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := bearerToken(c.GetHeader(AuthHeaderKey))
		if err != nil {
			handleAuthError(c, cfg, err)
			return
		}

		claims, err := cfg.JWTService.ValidateAdminToken(tokenString)
		if err != nil {
			handleAuthError(c, cfg, err)
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTUsernameKey, claims.Username)
		c.Request = c.Request.WithContext(logger.WithActor(c.Request.Context(), claims.Username))

		if cfg.Logger != nil {
			cfg.Logger.Debug("Admin authenticated", zap.String("username", claims.Username))
		}
		c.Next()
	}
}

// ClientSessionConfig holds configuration for the client session middleware
type ClientSessionConfig struct {
	JWTMiddlewareConfig
	// Required rejects requests without a session. When false the form token
	// alone grants access, as with plain access-code links.
	Required bool
}

// ClientSessionMiddleware binds a request to the form named by the :token
// path parameter. A session, when present, must have been issued for that form.
// Routes without the parameter carry the token in the body; the handler checks
// it against the session with SessionAllows.
func ClientSessionMiddleware(cfg ClientSessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		formToken := ""
		if raw := c.Param(FormTokenParam); raw != "" {
			formToken = form.NormalizeToken(raw)
			if err := form.ValidateToken(formToken); err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
					dto.ErrCodeInvalidFormToken, "This access code is not valid", getRequestID(c)))
				return
			}
			c.Request = c.Request.WithContext(logger.WithFormToken(c.Request.Context(), formToken))
			c.Set(JWTFormTokenKey, formToken)
		}

		raw := sessionToken(c)
		if raw == "" {
			if cfg.Required {
				handleAuthError(c, cfg.JWTMiddlewareConfig, auth.ErrInvalidToken)
				return
			}
			c.Next()
			return
		}

		claims, err := cfg.JWTService.ValidateClientSession(raw, formToken)
		if err != nil {
			handleAuthError(c, cfg.JWTMiddlewareConfig, err)
			return
		}
		c.Set(JWTClaimsKey, claims)
		c.Next()
	}
}

// SessionAllows reports whether the request's session, if any, was issued for
// formToken. Requests without a session pass; the middleware has already
// rejected them when sessions are required.
func SessionAllows(c *gin.Context, formToken string) bool {
	claims := GetJWTClaims(c)
	if claims == nil {
		return true
	}
	return claims.TokenType == auth.TokenTypeClientSession && claims.FormToken == formToken
}

// sessionToken reads the session from the bearer header or X-Form-Session
func sessionToken(c *gin.Context) string {
	if token, err := bearerToken(c.GetHeader(AuthHeaderKey)); err == nil {
		return token
	}
	return strings.TrimSpace(c.GetHeader(SessionHeaderKey))
}

func bearerToken(header string) (string, error) {
	if header == "" || !strings.HasPrefix(header, BearerPrefix) {
		return "", auth.ErrInvalidToken
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
	if token == "" {
		return "", auth.ErrInvalidToken
	}
	return token, nil
}

// handleAuthError handles authentication errors
func handleAuthError(c *gin.Context, cfg JWTMiddlewareConfig, err error) {
	if cfg.Logger != nil {
		cfg.Logger.Warn("JWT authentication failed",
			zap.Error(err),
			zap.String("route", c.FullPath()),
		)
	}

	if cfg.OnError != nil {
		cfg.OnError(c, err)
		c.Abort()
		return
	}

	status, code, message := AuthErrorInfo(err)
	c.AbortWithStatusJSON(status, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// AuthErrorInfo maps an authentication error to its status, code and message
func AuthErrorInfo(err error) (status int, code, message string) {
	status = http.StatusUnauthorized
	code = dto.ErrCodeUnauthorized
	message = "Authentication required"

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, message = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrFormTokenMismatch):
		status = http.StatusForbidden
		code, message = dto.ErrCodeForbidden, "This session does not grant access to this form"
	case errors.Is(err, auth.ErrInvalidTokenType),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrInvalidClaims),
		errors.Is(err, auth.ErrMissingUsername),
		errors.Is(err, auth.ErrMissingFormToken):
		code, message = dto.ErrCodeTokenInvalid, "Invalid token"
	}
	return status, code, message
}

// GetJWTClaims retrieves JWT claims from gin.Context
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if claims, exists := c.Get(JWTClaimsKey); exists {
		if jwtClaims, ok := claims.(*auth.Claims); ok {
			return jwtClaims
		}
	}
	return nil
}

// GetJWTUsername retrieves the admin username from context
func GetJWTUsername(c *gin.Context) string {
	return c.GetString(JWTUsernameKey)
}

// GetFormToken retrieves the normalized form token bound by ClientSessionMiddleware
func GetFormToken(c *gin.Context) string {
	return c.GetString(JWTFormTokenKey)
}
