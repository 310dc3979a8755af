package ports

import (
	"context"
	"time"

	"github.com/JosueBrenes/VolunChain-Backend/internal/core/domain"
)

// TokenVerifier valida uma credencial bearer. Qualquer falha é reportada como
// domain.ErrInvalidToken.
type TokenVerifier interface {
	Verify(token string) (domain.DecodedIdentity, error)
}

type TokenIssuer interface {
	Issue(identity domain.DecodedIdentity, ttl time.Duration) (string, error)
}

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.AuthenticatedUser, error)
	IsVerified(ctx context.Context, userID string) (bool, error)
}
