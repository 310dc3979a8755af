// Package token emite e valida bearer tokens JWT assinados com HS256.
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/JosueBrenes/VolunChain-Backend/internal/core/domain"
	"github.com/JosueBrenes/VolunChain-Backend/internal/core/ports"
)

// Claims são as claims próprias dos access tokens.
type Claims struct {
	UserID string `json:"id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type JWT struct {
	secret []byte
	now    func() time.Time
}

var (
	_ ports.TokenVerifier = (*JWT)(nil)
	_ ports.TokenIssuer   = (*JWT)(nil)
)

func NewJWT(secret string) (*JWT, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	return &JWT{secret: []byte(secret), now: time.Now}, nil
}

func (j *JWT) Issue(identity domain.DecodedIdentity, ttl time.Duration) (string, error) {
	if identity.ID == "" {
		return "", fmt.Errorf("identity id is required")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("ttl must be positive")
	}

	now := j.now()
	claims := Claims{
		UserID: identity.ID,
		Role:   identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify confere assinatura e expiração. Toda falha é reportada como
// domain.ErrInvalidToken; a causa fica na mensagem apenas para os logs.
func (j *JWT) Verify(raw string) (domain.DecodedIdentity, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return j.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return domain.DecodedIdentity{}, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return domain.DecodedIdentity{}, domain.ErrInvalidToken
	}

	id := claims.UserID
	if id == "" {
		id = claims.Subject
	}
	if id == "" {
		return domain.DecodedIdentity{}, fmt.Errorf("%w: missing id claim", domain.ErrInvalidToken)
	}

	return domain.DecodedIdentity{ID: id, Role: claims.Role}, nil
}
