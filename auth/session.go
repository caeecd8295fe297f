package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-sponsor-gate/internal/errors"
	"github.com/jrsteele09/go-sponsor-gate/internal/metrics"
	"github.com/jrsteele09/go-sponsor-gate/token"
)

// AuthorizationResult describes a verified sponsor session.
type AuthorizationResult struct {
	CreatorID    string
	VisitorLogin string
	VisitorName  string
	IsOwner      bool
	IssuedAt     time.Time
	ExpiresAt    time.Time
	TokenAge     time.Duration
	Source       TokenSource
}

// SessionVerifier checks session tokens against a requested creator.
type SessionVerifier struct {
	codec      *token.Codec
	issuer     string
	extractors []Extractor
}

// SessionVerifierOption defines a function type to modify the SessionVerifier instance.
type SessionVerifierOption func(*SessionVerifier)

func WithExtractors(extractors ...Extractor) SessionVerifierOption {
	return func(v *SessionVerifier) {
		if len(extractors) > 0 {
			v.extractors = extractors
		}
	}
}

func NewSessionVerifier(codec *token.Codec, issuer string, options ...SessionVerifierOption) (*SessionVerifier, error) {
	if codec == nil {
		return nil, errors.New("[NewSessionVerifier] codec is required")
	}
	if issuer == "" {
		return nil, errors.New("[NewSessionVerifier] issuer is required")
	}
	v := &SessionVerifier{
		codec:      codec,
		issuer:     issuer,
		extractors: DefaultExtractors(),
	}
	for _, opt := range options {
		opt(v)
	}
	return v, nil
}

// Authorize verifies rawToken and checks it was issued for requestedCreatorID.
func (v *SessionVerifier) Authorize(rawToken, requestedCreatorID string) (*AuthorizationResult, error) {
	return v.authorize(rawToken, requestedCreatorID, "")
}

// AuthorizeRequest locates the session token in r and authorizes it.
func (v *SessionVerifier) AuthorizeRequest(r *http.Request, requestedCreatorID string) (*AuthorizationResult, error) {
	raw, source, ok := ExtractToken(r, v.extractors)
	if !ok {
		err := apperrors.Wrap(apperrors.KindUnauthenticated, "no_credential", apperrors.ErrNoCredential, "A sponsor session is required")
		metrics.IncSessionCheck(err.Code, "")
		return nil, err
	}
	return v.authorize(raw, requestedCreatorID, source)
}

func (v *SessionVerifier) authorize(rawToken, requestedCreatorID string, source TokenSource) (*AuthorizationResult, error) {
	result, err := v.verify(rawToken, requestedCreatorID)
	code := "authorized"
	if err != nil {
		code = apperrors.CodeOf(err)
	} else {
		result.Source = source
	}
	metrics.IncSessionCheck(code, string(source))
	return result, err
}

// Verify checks the signature, audience and expiry of rawToken without
// binding it to a creator. Callers that learn the creator later finish with
// AuthorizationResult.CheckCreator.
func (v *SessionVerifier) Verify(rawToken string) (*AuthorizationResult, error) {
	if rawToken == "" {
		return nil, apperrors.Wrap(apperrors.KindUnauthenticated, "no_credential", apperrors.ErrNoCredential, "A sponsor session is required")
	}

	var claims token.SessionClaims
	if err := v.codec.Verify(rawToken, v.issuer, token.AudienceSession, &claims); err != nil {
		return nil, err
	}

	now := v.codec.Now()
	if claims.ExpiresAt == nil || !now.Before(claims.ExpiresAt.Time) {
		return nil, apperrors.Wrap(apperrors.KindUnauthorized, "token_expired", token.ErrExpired, "The session has expired, please sign in again")
	}

	result := &AuthorizationResult{
		CreatorID:    claims.CreatorID,
		VisitorLogin: claims.VisitorLogin,
		VisitorName:  claims.VisitorName,
		IsOwner:      claims.IsOwner,
		ExpiresAt:    claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		result.IssuedAt = claims.IssuedAt.Time
		result.TokenAge = now.Sub(result.IssuedAt)
	}
	return result, nil
}

// CheckCreator reports an error unless the session was issued for requestedCreatorID.
func (r *AuthorizationResult) CheckCreator(requestedCreatorID string) error {
	if !strings.EqualFold(r.CreatorID, strings.TrimSpace(requestedCreatorID)) {
		return apperrors.Wrap(apperrors.KindUnauthorized, "creator_mismatch",
			fmt.Errorf("%w: token for %q, requested %q", apperrors.ErrCreatorMismatch, r.CreatorID, requestedCreatorID),
			"This session was issued for a different creator")
	}
	return nil
}

func (v *SessionVerifier) verify(rawToken, requestedCreatorID string) (*AuthorizationResult, error) {
	if strings.TrimSpace(requestedCreatorID) == "" {
		return nil, apperrors.New(apperrors.KindInvalidInput, "missing_creator", "A creator must be specified")
	}
	result, err := v.Verify(rawToken)
	if err != nil {
		return nil, err
	}
	if err := result.CheckCreator(requestedCreatorID); err != nil {
		return nil, err
	}
	return result, nil
}
