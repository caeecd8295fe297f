package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jrsteele09/go-sponsor-gate/creators"
	"github.com/jrsteele09/go-sponsor-gate/github"
	apperrors "github.com/jrsteele09/go-sponsor-gate/internal/errors"
	"github.com/jrsteele09/go-sponsor-gate/internal/metrics"
	"github.com/jrsteele09/go-sponsor-gate/internal/utils"
	"github.com/jrsteele09/go-sponsor-gate/token"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	defaultSessionTTL  = time.Hour
	defaultCacheMargin = 5 * time.Minute
	defaultStepTimeout = 10 * time.Second
)

// Callback failure codes surfaced to the client as error=<code>.
const (
	CodeOAuthDenied          = "oauth_denied"
	CodeInvalidState         = "invalid_state"
	CodeInvalidRequest       = "invalid_request"
	CodeTokenExchangeFailed  = "token_exchange_failed"
	CodeIdentityUnavailable  = "identity_unavailable"
	CodeCreatorNotRegistered = "creator_not_registered"
	CodeNotSponsor           = "not_sponsor"
	CodeUpstreamFailure      = "upstream_failure"
)

// Platform is the identity provider side of the callback.
type Platform interface {
	Exchange(ctx context.Context, code string) (string, error)
	Viewer(ctx context.Context, accessToken string) (*github.User, error)
}

// SponsorOracle decides sponsorship membership for a creator credential.
type SponsorOracle interface {
	IsSponsor(ctx context.Context, credential, visitorLogin string) (bool, error)
}

// CallbackRequest carries the query parameters the platform returned with.
type CallbackRequest struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// CallbackOutcome is the single result of a callback. ReturnURL and
// ClientState come only from a verified state token.
type CallbackOutcome struct {
	ReturnURL   string
	ClientState string
	CreatorID   string

	// Set on success.
	SessionToken string
	VisitorLogin string
	VisitorName  string
	IsOwner      bool
	ExpiresAt    time.Time
	CacheUntil   time.Time

	// Err is set on failure.
	Err *apperrors.Error
}

func (o *CallbackOutcome) Success() bool {
	return o.Err == nil && o.SessionToken != ""
}

// CallbackService completes the authorization flow: it verifies the state,
// exchanges the code, resolves the visitor and creator, asks the oracle and
// mints a session token.
type CallbackService struct {
	codec       *token.Codec
	platform    Platform
	creators    creators.Repo
	oracle      SponsorOracle
	issuer      string
	sessionTTL  time.Duration
	cacheMargin time.Duration
	stepTimeout time.Duration
}

// CallbackOption defines a function type to modify the CallbackService instance.
type CallbackOption func(*CallbackService)

func WithSessionTTL(ttl time.Duration) CallbackOption {
	return func(s *CallbackService) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithCacheMargin sets how long before expiry clients should stop reusing a token.
func WithCacheMargin(margin time.Duration) CallbackOption {
	return func(s *CallbackService) {
		if margin >= 0 {
			s.cacheMargin = margin
		}
	}
}

// WithStepTimeout bounds each outbound call of the flow.
func WithStepTimeout(timeout time.Duration) CallbackOption {
	return func(s *CallbackService) {
		if timeout > 0 {
			s.stepTimeout = timeout
		}
	}
}

func NewCallbackService(codec *token.Codec, platform Platform, creatorRepo creators.Repo, oracle SponsorOracle, issuer string, options ...CallbackOption) (*CallbackService, error) {
	if codec == nil {
		return nil, errors.New("[NewCallbackService] codec is required")
	}
	if platform == nil {
		return nil, errors.New("[NewCallbackService] platform is required")
	}
	if creatorRepo == nil {
		return nil, errors.New("[NewCallbackService] creators repo is required")
	}
	if oracle == nil {
		return nil, errors.New("[NewCallbackService] oracle is required")
	}
	if issuer == "" {
		return nil, errors.New("[NewCallbackService] issuer is required")
	}
	s := &CallbackService{
		codec:       codec,
		platform:    platform,
		creators:    creatorRepo,
		oracle:      oracle,
		issuer:      issuer,
		sessionTTL:  defaultSessionTTL,
		cacheMargin: defaultCacheMargin,
		stepTimeout: defaultStepTimeout,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Handle runs the callback and always returns an outcome.
func (s *CallbackService) Handle(ctx context.Context, req CallbackRequest) *CallbackOutcome {
	out := s.handle(ctx, req)
	code := "success"
	if out.Err != nil {
		code = out.Err.Code
		log.Warn().Err(out.Err.Err).
			Str("code", out.Err.Code).
			Str("creator", out.CreatorID).
			Str("visitor", out.VisitorLogin).
			Msg("authorization callback rejected")
	} else {
		log.Info().
			Str("creator", out.CreatorID).
			Str("visitor", out.VisitorLogin).
			Bool("owner", out.IsOwner).
			Msg("sponsor session issued")
	}
	metrics.IncCallbackOutcome(code)
	return out
}

func (s *CallbackService) handle(ctx context.Context, req CallbackRequest) *CallbackOutcome {
	out := &CallbackOutcome{}

	// The state is read before anything else so even a denied consent can be
	// reported back to a trusted return URL.
	var state token.StateClaims
	stateErr := errors.New("state parameter missing")
	if req.State != "" {
		stateErr = s.codec.Verify(req.State, s.issuer, token.AudienceOAuthFlow, &state)
	}
	if stateErr == nil {
		out.CreatorID = state.CreatorID
		out.ReturnURL = utils.Value(state.ReturnURL)
		out.ClientState = utils.Value(state.ClientState)
	}

	if req.Error != "" {
		msg := "Authorization was denied"
		if req.ErrorDescription != "" {
			msg = req.ErrorDescription
		}
		return out.fail(apperrors.KindUnauthorized, CodeOAuthDenied, fmt.Errorf("platform returned %q", req.Error), msg)
	}
	if stateErr != nil {
		out.ReturnURL, out.ClientState = "", ""
		return out.fail(apperrors.KindInvalidInput, CodeInvalidState, stateErr, "The authorization request is invalid or has expired, please try again")
	}
	if req.Code == "" {
		return out.fail(apperrors.KindInvalidInput, CodeInvalidRequest, errors.New("code parameter missing"), "The authorization response is incomplete")
	}

	accessToken, err := s.exchange(ctx, req.Code)
	if err != nil {
		kind := apperrors.KindUpstream
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode != "" {
			kind = apperrors.KindInvalidInput
		}
		return out.fail(kind, CodeTokenExchangeFailed, err, "Could not complete sign-in with GitHub")
	}

	visitor, err := s.viewer(ctx, accessToken)
	if err != nil {
		return out.fail(apperrors.KindUpstream, CodeIdentityUnavailable, err, "Could not read your GitHub profile")
	}
	out.VisitorLogin = visitor.Login
	out.VisitorName = visitor.Name

	credential, err := s.credential(ctx, state.CreatorID)
	switch {
	case errors.Is(err, apperrors.ErrCreatorNotFound):
		return out.fail(apperrors.KindNotFound, CodeCreatorNotRegistered, err, "This creator is not registered")
	case err != nil:
		return out.fail(apperrors.KindUpstream, CodeUpstreamFailure, err, "Could not look up the creator")
	}

	out.IsOwner = strings.EqualFold(visitor.Login, state.CreatorID)
	if !out.IsOwner {
		sponsor, err := s.isSponsor(ctx, credential, visitor.Login)
		if err != nil {
			return out.fail(apperrors.KindUpstream, CodeUpstreamFailure, err, "Could not verify your sponsorship")
		}
		if !sponsor {
			return out.fail(apperrors.KindUnauthorized, CodeNotSponsor,
				fmt.Errorf("%s does not sponsor %s", visitor.Login, state.CreatorID),
				fmt.Sprintf("You need to sponsor %s to access this content", state.CreatorID))
		}
	}

	session := &token.SessionClaims{
		Sponsor:      true,
		CreatorID:    state.CreatorID,
		VisitorLogin: visitor.Login,
		VisitorName:  visitor.Name,
		IsOwner:      out.IsOwner,
	}
	session.Subject = visitor.Login
	signed, err := s.codec.Issue(session, s.sessionTTL, s.issuer, token.AudienceSession)
	if err != nil {
		return out.fail(apperrors.KindInternal, "internal_error", err, "Could not create your session")
	}

	out.SessionToken = signed
	out.ExpiresAt = session.ExpiresAt.Time
	out.CacheUntil = out.ExpiresAt.Add(-s.cacheMargin)
	return out
}

func (s *CallbackService) exchange(ctx context.Context, code string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.stepTimeout)
	defer cancel()
	accessToken, err := s.platform.Exchange(ctx, code)
	if err != nil {
		return "", err
	}
	if accessToken == "" {
		return "", errors.New("no access token issued")
	}
	return accessToken, nil
}

func (s *CallbackService) viewer(ctx context.Context, accessToken string) (*github.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.stepTimeout)
	defer cancel()
	user, err := s.platform.Viewer(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Login == "" {
		return nil, errors.New("platform returned no login")
	}
	return user, nil
}

func (s *CallbackService) credential(ctx context.Context, creatorID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.stepTimeout)
	defer cancel()
	return s.creators.AccessCredential(ctx, creatorID)
}

func (s *CallbackService) isSponsor(ctx context.Context, credential, visitorLogin string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.stepTimeout)
	defer cancel()
	return s.oracle.IsSponsor(ctx, credential, visitorLogin)
}

func (o *CallbackOutcome) fail(kind apperrors.Kind, code string, err error, message string) *CallbackOutcome {
	o.Err = apperrors.Wrap(kind, code, err, message)
	o.SessionToken = ""
	return o
}
