// Package auth verifies bearer tokens issued by the external identity
// provider. The server never issues production tokens itself; GenerateToken
// exists for tests and local development.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lavelar/admitd/internal/common"
)

// Identity is the authenticated principal extracted from a verified token.
// It is the raw auth identity, not the resolved owner id used by the
// metadata store; the two are mapped by metadata.Client.ResolveOwnerID.
type Identity struct {
	Subject string
	Email   string
}

// Claims carries the registered claims plus the provider's email claim.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// GenerateToken mints an HS256 token for the given subject.
func GenerateToken(subject, email string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		Email: email,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ResolveIdentity verifies the token signature and expiry and returns the
// identity it asserts. Tokens without a subject are rejected: downstream
// profile resolution keys off it.
func ResolveIdentity(tokenString string, secretKey []byte) (*Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	return &Identity{Subject: claims.Subject, Email: claims.Email}, nil
}
