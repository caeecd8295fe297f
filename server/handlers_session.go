package server

import (
	"net/http"
	"time"
)

type sessionResponse struct {
	Valid           bool   `json:"valid"`
	Authorized      bool   `json:"authorized"`
	CreatorID       string `json:"creatorId"`
	VisitorLogin    string `json:"visitorLogin"`
	VisitorName     string `json:"visitorName,omitempty"`
	IsOwner         bool   `json:"isOwner"`
	IssuedAt        string `json:"issuedAt,omitempty"`
	ExpiresAt       string `json:"expiresAt"`
	TokenAgeSeconds int64  `json:"tokenAgeSeconds"`
	Source          string `json:"source"`
}

// SessionHandler lets a player ask whether the session it holds is good for a
// creator before it starts loading media.
func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		creatorID := firstParam(r.URL.Query(), paramCreator, paramCreatorLegacy)

		result, err := s.services.Sessions.AuthorizeRequest(r, creatorID)
		if err != nil {
			writeAppError(w, err)
			return
		}

		resp := sessionResponse{
			Valid:           true,
			Authorized:      true,
			CreatorID:       result.CreatorID,
			VisitorLogin:    result.VisitorLogin,
			VisitorName:     result.VisitorName,
			IsOwner:         result.IsOwner,
			ExpiresAt:       result.ExpiresAt.UTC().Format(time.RFC3339),
			TokenAgeSeconds: int64(result.TokenAge / time.Second),
			Source:          string(result.Source),
		}
		if !result.IssuedAt.IsZero() {
			resp.IssuedAt = result.IssuedAt.UTC().Format(time.RFC3339)
		}
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, resp)
	}
}
