package service

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/spec-kit/ticket-advisor/internal/auth"
	"github.com/spec-kit/ticket-advisor/internal/config"
	"github.com/spec-kit/ticket-advisor/internal/domain"
	apperrors "github.com/spec-kit/ticket-advisor/pkg/util/errorutil"
)

// AuthService issues tokens to the configured API client.
type AuthService struct {
	tokenMgr   *auth.TokenManager
	clientID   string
	secretHash string
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, tokens *auth.TokenManager) *AuthService {
	return &AuthService{
		tokenMgr:   tokens,
		clientID:   cfg.ClientID,
		secretHash: cfg.ClientSecretHash,
	}
}

// IssueToken exchanges client credentials for a bearer token.
func (s *AuthService) IssueToken(_ context.Context, clientID, secret string) (domain.Token, error) {
	if strings.TrimSpace(clientID) == "" || secret == "" {
		return domain.Token{}, apperrors.NewValidationError("client_id and client_secret required", nil)
	}
	if s.secretHash == "" {
		return domain.Token{}, apperrors.NewUnauthorized("client credentials not configured")
	}
	if subtle.ConstantTimeCompare([]byte(clientID), []byte(s.clientID)) != 1 {
		return domain.Token{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if err := auth.CompareSecret(s.secretHash, secret); err != nil {
		return domain.Token{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, err := s.tokenMgr.GenerateToken(s.clientID, domain.AllScopes)
	if err != nil {
		return domain.Token{}, apperrors.NewInternalError(err)
	}
	return token, nil
}
