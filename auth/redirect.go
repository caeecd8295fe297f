package auth

import (
	"net"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-sponsor-gate/internal/config"
)

// MaxRedirectURLLength bounds accepted return URLs.
const MaxRedirectURLLength = 2048

// RedirectValidator decides whether a caller-supplied return URL is a safe
// place to send a visitor (and their session token) after authorization.
type RedirectValidator struct {
	production     bool
	allowedDomains []string
}

// NewRedirectValidator creates a validator. An empty allow-list admits any host
// that passes the scheme and loopback rules.
func NewRedirectValidator(env config.Environment, allowedDomains []string) *RedirectValidator {
	domains := make([]string, 0, len(allowedDomains))
	for _, d := range allowedDomains {
		d = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), ".")
		if d != "" {
			domains = append(domains, d)
		}
	}
	return &RedirectValidator{
		production:     env.IsProduction(),
		allowedDomains: domains,
	}
}

// Validate returns the canonical form of candidate and true when it is an
// acceptable redirect target.
func (v *RedirectValidator) Validate(candidate string) (string, bool) {
	if candidate == "" || len(candidate) > MaxRedirectURLLength {
		return "", false
	}
	u, err := url.Parse(candidate)
	if err != nil || u.Scheme == "" || u.Host == "" || u.Opaque != "" {
		return "", false
	}
	if u.User != nil {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", false
	}

	switch u.Scheme {
	case "https":
	case "http":
		if v.production || (host != "localhost" && host != "127.0.0.1") {
			return "", false
		}
	default:
		return "", false
	}

	if len(v.allowedDomains) > 0 && !v.domainAllowed(host) {
		return "", false
	}
	if v.production && isLoopback(host) {
		return "", false
	}

	canonical := u.String()
	if len(canonical) > MaxRedirectURLLength {
		return "", false
	}
	return canonical, true
}

func (v *RedirectValidator) domainAllowed(host string) bool {
	for _, d := range v.allowedDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func isLoopback(host string) bool {
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
