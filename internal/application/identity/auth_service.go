package identity

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/joserochalaredo-arch/8visas-sub000/internal/domain/form"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/domain/shared"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/infrastructure/auth"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Authentication errors
var (
	ErrInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid username or password")
	ErrUnknownToken       = shared.NewDomainError("INVALID_TOKEN", "This access code is not valid")
)

// LoginInput is the admin login request
type LoginInput struct {
	Username string `json:"username" binding:"required,max=100"`
	Password string `json:"password" binding:"required,max=200"`
}

// SessionInput is the client's request for a form session
type SessionInput struct {
	Token string `json:"token" binding:"required,formtoken"`
}

// AuthService issues admin tokens and client session capabilities
type AuthService struct {
	admin      config.AdminConfig
	records    form.FormRecordRepository
	jwtService *auth.JWTService
	logger     *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	admin config.AdminConfig,
	records form.FormRecordRepository,
	jwtService *auth.JWTService,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		admin:      admin,
		records:    records,
		jwtService: jwtService,
		logger:     logger,
	}
}

// Login checks the admin credentials and returns a dashboard token
func (s *AuthService) Login(_ context.Context, input LoginInput) (*auth.IssuedToken, error) {
	usernameOK := subtle.ConstantTimeCompare([]byte(input.Username), []byte(s.admin.Username)) == 1
	passwordErr := auth.CheckPassword(s.admin.PasswordHash, input.Password)
	if !usernameOK || passwordErr != nil {
		s.logger.Warn("Admin login failed", zap.String("username", input.Username))
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwtService.GenerateAdminToken(s.admin.Username)
	if err != nil {
		s.logger.Error("Failed to generate admin token", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication token")
	}

	s.logger.Info("Admin logged in", zap.String("username", input.Username))
	return token, nil
}

// OpenClientSession exchanges a form token for a session capability. Unknown
// tokens are rejected so a session cannot be minted for arbitrary codes.
func (s *AuthService) OpenClientSession(ctx context.Context, input SessionInput) (*auth.IssuedToken, error) {
	token := form.NormalizeToken(input.Token)
	if err := form.ValidateToken(token); err != nil {
		return nil, err
	}

	record, err := s.records.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("Session requested for unknown token", zap.String("form_token", token))
			return nil, ErrUnknownToken
		}
		return nil, err
	}
	if !record.IsActive {
		return nil, form.ErrFormInactive
	}

	session, err := s.jwtService.GenerateClientSession(token)
	if err != nil {
		s.logger.Error("Failed to generate client session", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to open a session")
	}
	return session, nil
}
