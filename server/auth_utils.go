package server

import (
	"net/http"

	"github.com/jrsteele09/go-sponsor-gate/auth"
)

// SetSessionCookie stores the session token for same-site players. The cookie
// lives exactly as long as the token.
func (s *Server) SetSessionCookie(w http.ResponseWriter, sessionToken string, r *http.Request, maxAge int) {
	isSecure := getScheme(r) == "https"

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    sessionToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}
