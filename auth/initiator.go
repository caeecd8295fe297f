package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-sponsor-gate/internal/errors"
	"github.com/jrsteele09/go-sponsor-gate/internal/utils"
	"github.com/jrsteele09/go-sponsor-gate/token"
	"golang.org/x/oauth2"
)

const (
	nonceBytes      = 32
	defaultStateTTL = 10 * time.Minute
)

// AuthorizationRequest starts a sponsorship check for one creator.
type AuthorizationRequest struct {
	CreatorID   string
	ReturnURL   string
	ClientState string
}

// Initiator turns an AuthorizationRequest into the platform's authorize URL.
// All flow state travels inside the signed state parameter.
type Initiator struct {
	codec     *token.Codec
	oauth     *oauth2.Config
	redirects *RedirectValidator
	issuer    string
	stateTTL  time.Duration
}

// InitiatorOption defines a function type to modify the Initiator instance.
type InitiatorOption func(*Initiator)

func WithStateTTL(ttl time.Duration) InitiatorOption {
	return func(i *Initiator) {
		if ttl > 0 {
			i.stateTTL = ttl
		}
	}
}

func NewInitiator(codec *token.Codec, oauthCfg *oauth2.Config, redirects *RedirectValidator, issuer string, options ...InitiatorOption) (*Initiator, error) {
	if codec == nil {
		return nil, errors.New("[NewInitiator] codec is required")
	}
	if oauthCfg == nil {
		return nil, errors.New("[NewInitiator] oauth2 config is required")
	}
	if redirects == nil {
		return nil, errors.New("[NewInitiator] redirect validator is required")
	}
	if issuer == "" {
		return nil, errors.New("[NewInitiator] issuer is required")
	}
	i := &Initiator{
		codec:     codec,
		oauth:     oauthCfg,
		redirects: redirects,
		issuer:    issuer,
		stateTTL:  defaultStateTTL,
	}
	for _, opt := range options {
		opt(i)
	}
	return i, nil
}

// BuildAuthorizationURL validates the request, signs a state token binding the
// creator and return URL, and returns the URL to send the visitor to.
func (i *Initiator) BuildAuthorizationURL(_ context.Context, req AuthorizationRequest) (string, error) {
	creatorID := strings.TrimSpace(req.CreatorID)
	if creatorID == "" {
		return "", apperrors.New(apperrors.KindInvalidInput, "missing_creator", "A creator must be specified")
	}

	claims := &token.StateClaims{CreatorID: creatorID}
	if req.ReturnURL != "" {
		canonical, ok := i.redirects.Validate(req.ReturnURL)
		if !ok {
			return "", apperrors.Wrap(apperrors.KindInvalidInput, "invalid_return_url",
				apperrors.ErrInvalidRedirectURI, "The return URL is not allowed")
		}
		claims.ReturnURL = utils.Ptr(canonical)
	}
	if req.ClientState != "" {
		claims.ClientState = utils.Ptr(req.ClientState)
	}

	nonce, err := newNonce()
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindInternal, "internal_error", err, "Could not start authorization")
	}
	claims.Nonce = nonce

	state, err := i.codec.Issue(claims, i.stateTTL, i.issuer, token.AudienceOAuthFlow)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindInternal, "internal_error",
			fmt.Errorf("[Initiator BuildAuthorizationURL] %w", err), "Could not start authorization")
	}
	return i.oauth.AuthCodeURL(state), nil
}

func newNonce() (string, error) {
	b := make([]byte, nonceBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	return hex.EncodeToString(b), nil
}
