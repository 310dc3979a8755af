package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JosueBrenes/VolunChain-Backend/internal/core/domain"
	"github.com/JosueBrenes/VolunChain-Backend/internal/core/ports"
)

// AuthService orquestra a verificação do token, a busca do usuário e a checagem
// de e-mail verificado. Cada etapa só roda quando a anterior teve sucesso.
type AuthService struct {
	verifier ports.TokenVerifier
	users    ports.UserRepository
}

var _ ports.Authenticator = (*AuthService)(nil)

func NewAuthService(verifier ports.TokenVerifier, users ports.UserRepository) (*AuthService, error) {
	if verifier == nil {
		return nil, fmt.Errorf("token verifier is required")
	}
	if users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	return &AuthService{verifier: verifier, users: users}, nil
}

// Authenticate converte o bearer token em um AuthenticatedUser.
//
// domain.ErrNoToken, domain.ErrInvalidToken, domain.ErrUserNotFound e
// domain.ErrEmailNotVerified são respostas ao cliente; erros que envolvem
// domain.ErrUserLookup são falhas do repositório.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.AuthenticatedUser, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.AuthenticatedUser{}, domain.ErrNoToken
	}

	identity, err := s.verifier.Verify(token)
	if err != nil {
		return domain.AuthenticatedUser{}, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if strings.TrimSpace(identity.ID) == "" {
		return domain.AuthenticatedUser{}, fmt.Errorf("%w: missing subject", domain.ErrInvalidToken)
	}

	user, err := s.users.FindByID(ctx, identity.ID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.AuthenticatedUser{}, domain.ErrUserNotFound
		}
		return domain.AuthenticatedUser{}, fmt.Errorf("%w: find user %s: %v", domain.ErrUserLookup, identity.ID, err)
	}

	authenticated := domain.NewAuthenticatedUser(identity, user)
	if !authenticated.IsVerified {
		return authenticated, domain.ErrEmailNotVerified
	}

	return authenticated, nil
}

// IsVerified consulta o status de verificação diretamente no repositório.
func (s *AuthService) IsVerified(ctx context.Context, userID string) (bool, error) {
	verified, err := s.users.IsVerified(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return false, err
		}
		return false, fmt.Errorf("%w: verification status for %s: %v", domain.ErrUserLookup, userID, err)
	}
	return verified, nil
}
