package config

import (
	"fmt"
	"strconv"
	"strings"
)

type SecurityConfig interface {
	GetSigningSecret() string
	GetTokenIssuer() string
	GetAllowedRedirectDomains() []string
	GetRateLimitPerMinute() int
}

type Security struct {
	signingSecret  string
	issuer         string
	redirectDomain []string
	rateLimit      int
}

var _ SecurityConfig = Security{}

func newSecurity(get func(string, string) string) (Security, error) {
	rateLimit, err := strconv.Atoi(get("RATE_LIMIT_PER_MINUTE", "60"))
	if err != nil || rateLimit < 0 {
		return Security{}, fmt.Errorf("[config] invalid RATE_LIMIT_PER_MINUTE %q", get("RATE_LIMIT_PER_MINUTE", ""))
	}

	var domains []string
	for _, d := range splitList(get("ALLOWED_REDIRECT_DOMAINS", "")) {
		domains = append(domains, strings.ToLower(strings.TrimPrefix(d, ".")))
	}

	return Security{
		signingSecret:  get("JWT_SECRET", ""),
		issuer:         get("TOKEN_ISSUER", "sponsor-gate"),
		redirectDomain: domains,
		rateLimit:      rateLimit,
	}, nil
}

// GetSigningSecret returns the HMAC secret shared by every instance.
func (s Security) GetSigningSecret() string {
	return s.signingSecret
}

func (s Security) GetTokenIssuer() string {
	return s.issuer
}

// GetAllowedRedirectDomains returns the return-URL allow-list; empty means any host.
func (s Security) GetAllowedRedirectDomains() []string {
	return append([]string(nil), s.redirectDomain...)
}

// GetRateLimitPerMinute is the per-IP request budget on the auth routes; 0 disables limiting.
func (s Security) GetRateLimitPerMinute() int {
	return s.rateLimit
}
