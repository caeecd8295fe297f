package token

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Signer is an interface for signing and verifying JWT tokens
type Signer interface {
	// Sign creates a signed JWT token from claims
	Sign(claims jwt.Claims) (string, error)

	// GetVerificationKey returns the key used to verify a parsed token
	GetVerificationKey(token *jwt.Token) (any, error)

	// GetSigningMethod returns the JWT signing method used
	GetSigningMethod() jwt.SigningMethod
}

// HMACSigner implements Signer using symmetric HMAC-SHA256. Every instance
// behind the load balancer must share the same secret.
type HMACSigner struct {
	secret []byte
}

// NewHMACSigner creates a new HMAC signer with the given secret
func NewHMACSigner(secret string) (*HMACSigner, error) {
	if secret == "" {
		return nil, errors.New("[NewHMACSigner] secret is required")
	}
	return &HMACSigner{
		secret: []byte(secret),
	}, nil
}

func (h *HMACSigner) Sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(h.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token with HMAC: %w", err)
	}
	return signedToken, nil
}

func (h *HMACSigner) GetVerificationKey(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return h.secret, nil
}

func (h *HMACSigner) GetSigningMethod() jwt.SigningMethod {
	return jwt.SigningMethodHS256
}
