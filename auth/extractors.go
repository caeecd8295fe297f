package auth

import (
	"net/http"
	"strings"
)

// TokenSource names the transport a session token arrived on.
type TokenSource string

const (
	SourceBearer TokenSource = "bearer"
	SourceCookie TokenSource = "cookie"
	SourceQuery  TokenSource = "query"
)

// Default credential locations.
const (
	SessionCookieName = "sponsor_token"
	TokenQueryParam   = "token"
)

// Extractor pulls a raw token from one place in a request.
type Extractor struct {
	Source  TokenSource
	Extract func(r *http.Request) (string, bool)
}

func BearerExtractor() Extractor {
	return Extractor{
		Source: SourceBearer,
		Extract: func(r *http.Request) (string, bool) {
			header := r.Header.Get("Authorization")
			if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
				return "", false
			}
			raw := strings.TrimSpace(header[len("Bearer "):])
			return raw, raw != ""
		},
	}
}

func CookieExtractor(name string) Extractor {
	return Extractor{
		Source: SourceCookie,
		Extract: func(r *http.Request) (string, bool) {
			c, err := r.Cookie(name)
			if err != nil || c.Value == "" {
				return "", false
			}
			return c.Value, true
		},
	}
}

func QueryExtractor(param string) Extractor {
	return Extractor{
		Source: SourceQuery,
		Extract: func(r *http.Request) (string, bool) {
			raw := r.URL.Query().Get(param)
			return raw, raw != ""
		},
	}
}

// DefaultExtractors is the lookup order used for session tokens: header first,
// then cookie, then query string.
func DefaultExtractors() []Extractor {
	return []Extractor{
		BearerExtractor(),
		CookieExtractor(SessionCookieName),
		QueryExtractor(TokenQueryParam),
	}
}

// ExtractToken returns the first token found by extractors.
func ExtractToken(r *http.Request, extractors []Extractor) (string, TokenSource, bool) {
	for _, e := range extractors {
		if raw, ok := e.Extract(r); ok {
			return raw, e.Source, true
		}
	}
	return "", "", false
}
