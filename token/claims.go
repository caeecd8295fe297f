package token

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/golang-jwt/jwt/v5"
)

// Audiences separate the two token families. A token minted for one is never
// accepted by a verifier expecting the other.
const (
	AudienceOAuthFlow = "oauth-flow"
	AudienceSession   = "session"
)

// MinNonceBytes is the minimum entropy of a state nonce.
const MinNonceBytes = 16

var hexNonce = regexp.MustCompile(`^[0-9a-f]+$`)

// Claims is implemented by the concrete claim sets the codec can carry.
// Validate is called by the JWT parser after the registered claims check, so a
// structurally incomplete payload fails at deserialization.
type Claims interface {
	jwt.Claims
	Validate() error
	registered() *jwt.RegisteredClaims
}

// StateClaims bind a single authorization attempt to its creator and return URL.
type StateClaims struct {
	CreatorID   string  `json:"creator"`
	ReturnURL   *string `json:"return_url,omitempty"`
	ClientState *string `json:"client_state,omitempty"`
	Nonce       string  `json:"nonce"`
	jwt.RegisteredClaims
}

func (c *StateClaims) registered() *jwt.RegisteredClaims {
	return &c.RegisteredClaims
}

func (c *StateClaims) Validate() error {
	if c.CreatorID == "" {
		return errors.New("state token has no creator")
	}
	if len(c.Nonce) < MinNonceBytes*2 || !hexNonce.MatchString(c.Nonce) {
		return fmt.Errorf("state token nonce must be at least %d hex-encoded bytes", MinNonceBytes)
	}
	return nil
}

// SessionClaims prove that a visitor passed the sponsorship check for one creator.
type SessionClaims struct {
	Sponsor      bool   `json:"sponsor"`
	CreatorID    string `json:"creator"`
	VisitorLogin string `json:"login"`
	VisitorName  string `json:"name,omitempty"`
	IsOwner      bool   `json:"owner"`
	jwt.RegisteredClaims
}

func (c *SessionClaims) registered() *jwt.RegisteredClaims {
	return &c.RegisteredClaims
}

func (c *SessionClaims) Validate() error {
	if !c.Sponsor {
		return errors.New("session token is not a sponsor session")
	}
	if c.CreatorID == "" || c.VisitorLogin == "" {
		return errors.New("session token is missing creator or visitor")
	}
	return nil
}
