package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/infrastructure/config"
)

// TokenType represents the type of JWT token
type TokenType string

const (
	// TokenTypeAdmin grants access to the admin dashboard
	TokenTypeAdmin TokenType = "admin"
	// TokenTypeClientSession is the capability to read and write one form
	TokenTypeClientSession TokenType = "client_session"
)

// Common errors
var (
	ErrInvalidToken      = errors.New("invalid token")
	ErrExpiredToken      = errors.New("token has expired")
	ErrInvalidTokenType  = errors.New("invalid token type")
	ErrInvalidClaims     = errors.New("invalid token claims")
	ErrTokenNotYetValid  = errors.New("token is not yet valid")
	ErrMissingUsername   = errors.New("missing username in claims")
	ErrMissingFormToken  = errors.New("missing form token in claims")
	ErrFormTokenMismatch = errors.New("session does not grant access to this form")
)

// Claims represents custom JWT claims
type Claims struct {
	jwt.RegisteredClaims
	Username  string    `json:"username,omitempty"`
	FormToken string    `json:"form_token,omitempty"`
	TokenType TokenType `json:"token_type"`
}

// IssuedToken is a signed token with its expiry
type IssuedToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	TokenType string    `json:"token_type"` // Bearer
}

// JWTService handles JWT token operations
type JWTService struct {
	secret            []byte
	adminExpiration   time.Duration
	sessionExpiration time.Duration
	issuer            string
	now               func() time.Time
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{
		secret:            []byte(cfg.Secret),
		adminExpiration:   cfg.AccessTokenExpiration,
		sessionExpiration: cfg.ClientSessionExpiration,
		issuer:            cfg.Issuer,
		now:               time.Now,
	}
}

// GenerateAdminToken issues a dashboard token for username
func (s *JWTService) GenerateAdminToken(username string) (*IssuedToken, error) {
	if username == "" {
		return nil, ErrMissingUsername
	}
	return s.issue(&Claims{Username: username, TokenType: TokenTypeAdmin}, username, s.adminExpiration)
}

// GenerateClientSession issues a capability bound to one form token
func (s *JWTService) GenerateClientSession(formToken string) (*IssuedToken, error) {
	if formToken == "" {
		return nil, ErrMissingFormToken
	}
	return s.issue(&Claims{FormToken: formToken, TokenType: TokenTypeClientSession}, formToken, s.sessionExpiration)
}

func (s *JWTService) issue(claims *Claims, subject string, ttl time.Duration) (*IssuedToken, error) {
	now := s.now()
	expiresAt := now.Add(ttl)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.New().String(),
		Issuer:    s.issuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings{s.issuer},
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		NotBefore: jwt.NewNumericDate(now),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, err
	}
	return &IssuedToken{
		Token:     token,
		ExpiresAt: expiresAt,
		TokenType: "Bearer",
	}, nil
}

// ValidateAdminToken validates a dashboard token and returns its claims
func (s *JWTService) ValidateAdminToken(tokenString string) (*Claims, error) {
	claims, err := s.validateToken(tokenString, TokenTypeAdmin)
	if err != nil {
		return nil, err
	}
	if claims.Username == "" {
		return nil, ErrMissingUsername
	}
	return claims, nil
}

// ValidateClientSession validates a client capability. When formToken is not
// empty the session must have been issued for that form.
func (s *JWTService) ValidateClientSession(tokenString, formToken string) (*Claims, error) {
	claims, err := s.validateToken(tokenString, TokenTypeClientSession)
	if err != nil {
		return nil, err
	}
	if claims.FormToken == "" {
		return nil, ErrMissingFormToken
	}
	if formToken != "" && claims.FormToken != formToken {
		return nil, ErrFormTokenMismatch
	}
	return claims, nil
}

// validateToken validates a JWT token
func (s *JWTService) validateToken(tokenString string, expectedType TokenType) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}

	if claims.TokenType != expectedType {
		return nil, ErrInvalidTokenType
	}

	return claims, nil
}

// GetExpiresAtTime returns the token's expiration time as time.Time
func (c *Claims) GetExpiresAtTime() time.Time {
	if c.ExpiresAt != nil {
		return c.ExpiresAt.Time
	}
	return time.Time{}
}

// GetRemainingTTL returns the remaining time until the token expires
func (c *Claims) GetRemainingTTL() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	remaining := time.Until(c.ExpiresAt.Time)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// GetClientSessionExpiration returns the client session lifetime
func (s *JWTService) GetClientSessionExpiration() time.Duration {
	return s.sessionExpiration
}
