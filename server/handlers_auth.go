package server

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jrsteele09/go-sponsor-gate/auth"
	apperrors "github.com/jrsteele09/go-sponsor-gate/internal/errors"
	"github.com/rs/zerolog/log"
)

// AuthorizeHandler starts the browser flow by redirecting to the platform's
// consent page. Invalid input is answered with a JSON error and no redirect.
func (s *Server) AuthorizeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		req := auth.AuthorizationRequest{
			CreatorID:   firstParam(q, paramCreator, paramCreatorLegacy),
			ReturnURL:   firstParam(q, paramReturnURL, paramReturnURLLegacy),
			ClientState: q.Get(paramState),
		}

		authURL, err := s.services.Initiator.BuildAuthorizationURL(r.Context(), req)
		if err != nil {
			writeAppError(w, err)
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// CallbackHandler completes the flow and renders exactly one response: a
// redirect back to the verified return URL, or an HTML page when there is none.
func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		outcome := s.services.Callback.Handle(r.Context(), auth.CallbackRequest{
			Code:             q.Get(paramCode),
			State:            q.Get(paramState),
			Error:            q.Get(paramError),
			ErrorDescription: q.Get(paramErrorDescription),
		})

		w.Header().Set("Cache-Control", "no-store")
		if outcome.ReturnURL != "" {
			target, err := returnRedirect(outcome)
			if err == nil {
				http.Redirect(w, r, target, http.StatusFound)
				return
			}
			log.Err(err).Msg("failed to build return redirect")
		}

		if !outcome.Success() {
			status := http.StatusInternalServerError
			code, message := "internal_error", "Something went wrong, please try again"
			if outcome.Err != nil {
				status = apperrors.HTTPStatus(outcome.Err.Kind)
				code, message = outcome.Err.Code, outcome.Err.Message
			}
			s.renderFailurePage(w, status, code, message)
			return
		}

		maxAge := int(outcome.ExpiresAt.Sub(s.nowTime()).Seconds())
		s.SetSessionCookie(w, outcome.SessionToken, r, maxAge)
		s.renderSuccessPage(w, outcome)
	}
}

// returnRedirect appends the outcome to the caller's return URL, replacing any
// parameters of the same name it already carried.
func returnRedirect(outcome *auth.CallbackOutcome) (string, error) {
	u, err := url.Parse(outcome.ReturnURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for _, key := range []string{
		returnParamStatus, returnParamToken, returnParamCreator, returnParamVisitorLogin,
		returnParamVisitorName, returnParamIsOwner, returnParamExpiresAt, returnParamCacheUntil,
		returnParamError, returnParamErrorMessage, returnParamState,
	} {
		q.Del(key)
	}

	if outcome.Success() {
		q.Set(returnParamStatus, "true")
		q.Set(returnParamToken, outcome.SessionToken)
		q.Set(returnParamCreator, outcome.CreatorID)
		q.Set(returnParamVisitorLogin, outcome.VisitorLogin)
		if outcome.VisitorName != "" {
			q.Set(returnParamVisitorName, outcome.VisitorName)
		}
		q.Set(returnParamIsOwner, strconv.FormatBool(outcome.IsOwner))
		q.Set(returnParamExpiresAt, outcome.ExpiresAt.UTC().Format(time.RFC3339))
		q.Set(returnParamCacheUntil, outcome.CacheUntil.UTC().Format(time.RFC3339))
	} else {
		code, message := "internal_error", "Something went wrong, please try again"
		if outcome.Err != nil {
			code, message = outcome.Err.Code, outcome.Err.Message
		}
		q.Set(returnParamStatus, "false")
		q.Set(returnParamError, code)
		q.Set(returnParamErrorMessage, message)
	}
	if outcome.ClientState != "" {
		q.Set(returnParamState, outcome.ClientState)
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}

func firstParam(q url.Values, names ...string) string {
	for _, name := range names {
		if v := q.Get(name); v != "" {
			return v
		}
	}
	return ""
}
