package devbackend

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "smartappt-devbackend"

// ErrInvalidToken reports a bearer token that cannot authenticate a caller.
var ErrInvalidToken = errors.New("invalid token")

type accessClaims struct {
	jwt.RegisteredClaims
	Kind       string `json:"kind"`
	TenantID   string `json:"tenant_id,omitempty"`
	Generation int    `json:"gen"`
}

// tokenSigner mints and verifies HS256 access tokens.
type tokenSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func (c tokenSigner) mint(account Account, generation int) (string, error) {
	issuedAt := c.now()
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   account.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(c.ttl)),
		},
		Kind:       account.Kind(),
		TenantID:   account.TenantID,
		Generation: generation,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (c tokenSigner) verify(raw string) (accessClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return accessClaims{}, ErrInvalidToken
	}
	var parsed accessClaims
	_, err := jwt.ParseWithClaims(raw, &parsed, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return accessClaims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if parsed.Subject == "" {
		return accessClaims{}, fmt.Errorf("%w: subject missing", ErrInvalidToken)
	}
	return parsed, nil
}
