package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-sponsor-gate/internal/errors"
)

// Verification failures. Callers match them with errors.Is.
var (
	ErrExpired          = apperrors.ErrTokenExpired
	ErrMalformed        = apperrors.ErrTokenMalformed
	ErrAudienceMismatch = apperrors.ErrAudienceMismatch
)

// Codec issues and verifies the compact signed tokens used for both the OAuth
// state and the visitor session. One codec serves both audiences.
type Codec struct {
	signer  Signer
	nowTime func() time.Time
}

// CodecOption defines a function type to modify the Codec instance.
type CodecOption func(*Codec)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) CodecOption {
	return func(c *Codec) {
		c.nowTime = nowFunc
	}
}

// NewCodec creates a codec around the given signer.
func NewCodec(signer Signer, options ...CodecOption) (*Codec, error) {
	if signer == nil {
		return nil, errors.New("[NewCodec] signer is required")
	}
	c := &Codec{
		signer:  signer,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Issue stamps the registered claims (iss, aud, iat, exp, jti) onto claims and
// signs them. The claims value is updated in place so the caller can read the
// resulting expiry.
func (c *Codec) Issue(claims Claims, ttl time.Duration, issuer, audience string) (string, error) {
	if claims == nil {
		return "", errors.New("[Codec Issue] claims are required")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("[Codec Issue] ttl must be positive, got %s", ttl)
	}
	if issuer == "" || audience == "" {
		return "", errors.New("[Codec Issue] issuer and audience are required")
	}
	if err := claims.Validate(); err != nil {
		return "", fmt.Errorf("[Codec Issue] refusing to sign invalid claims: %w", err)
	}

	now := c.nowTime()
	rc := claims.registered()
	rc.Issuer = issuer
	rc.Audience = jwt.ClaimStrings{audience}
	rc.IssuedAt = jwt.NewNumericDate(now)
	rc.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	rc.ID = uuid.NewString()

	signed, err := c.signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("[Codec Issue] %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm, issuer, audience and expiry, then decodes
// into the supplied claims. Expiry is exclusive: a token checked at exactly its
// exp instant is expired.
func (c *Codec) Verify(raw, expectedIssuer, expectedAudience string, into Claims) error {
	if strings.TrimSpace(raw) == "" {
		return malformed(errors.New("empty token"))
	}
	if into == nil {
		return errors.New("[Codec Verify] destination claims are required")
	}

	_, err := jwt.ParseWithClaims(raw, into, c.signer.GetVerificationKey,
		jwt.WithValidMethods([]string{c.signer.GetSigningMethod().Alg()}),
		jwt.WithIssuer(expectedIssuer),
		jwt.WithAudience(expectedAudience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.nowTime),
	)
	if err != nil {
		return classify(err)
	}
	return nil
}

// Now exposes the codec clock so verifiers share one notion of time.
func (c *Codec) Now() time.Time {
	return c.nowTime()
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return apperrors.Wrap(apperrors.KindUnauthorized, "token_expired",
			fmt.Errorf("%w: %v", ErrExpired, err), "The session has expired, please sign in again")
	case errors.Is(err, jwt.ErrTokenInvalidAudience), errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return apperrors.Wrap(apperrors.KindUnauthorized, "wrong_audience",
			fmt.Errorf("%w: %v", ErrAudienceMismatch, err), "The token was not issued for this purpose")
	default:
		return malformed(err)
	}
}

func malformed(err error) error {
	return apperrors.Wrap(apperrors.KindUnauthorized, "token_malformed",
		fmt.Errorf("%w: %v", ErrMalformed, err), "The token is invalid")
}
