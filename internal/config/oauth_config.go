package config

import (
	"fmt"
	"strconv"
	"time"

	"golang.org/x/oauth2/github"
)

type OAuthConfig interface {
	GetClientID() string
	GetClientSecret() string
	GetAuthURL() string
	GetTokenURL() string
	GetAPIBaseURL() string
	GetScopes() []string
	GetStateTokenExpiry() time.Duration
	GetSessionTokenExpiry() time.Duration
	GetSessionCacheMargin() time.Duration
	GetPlatformTimeout() time.Duration
	GetSponsorOracleStrict() bool
}

type OAuth struct {
	clientID       string
	clientSecret   string
	authURL        string
	tokenURL       string
	apiBaseURL     string
	scopes         []string
	cacheMargin    time.Duration
	timeout        time.Duration
	strictSponsors bool
}

var _ OAuthConfig = OAuth{}

func newOAuth(get func(string, string) string) (OAuth, error) {
	timeout, err := time.ParseDuration(get("PLATFORM_TIMEOUT", "10s"))
	if err != nil || timeout <= 0 {
		return OAuth{}, fmt.Errorf("[config] invalid PLATFORM_TIMEOUT %q", get("PLATFORM_TIMEOUT", ""))
	}
	margin, err := time.ParseDuration(get("SESSION_CACHE_MARGIN", "5m"))
	if err != nil || margin < 0 {
		return OAuth{}, fmt.Errorf("[config] invalid SESSION_CACHE_MARGIN %q", get("SESSION_CACHE_MARGIN", ""))
	}
	strict, err := strconv.ParseBool(get("SPONSOR_ORACLE_STRICT", "false"))
	if err != nil {
		return OAuth{}, fmt.Errorf("[config] invalid SPONSOR_ORACLE_STRICT: %w", err)
	}

	return OAuth{
		clientID:       get("GITHUB_CLIENT_ID", ""),
		clientSecret:   get("GITHUB_CLIENT_SECRET", ""),
		authURL:        get("GITHUB_AUTH_URL", github.Endpoint.AuthURL),
		tokenURL:       get("GITHUB_TOKEN_URL", github.Endpoint.TokenURL),
		apiBaseURL:     get("GITHUB_API_URL", "https://api.github.com"),
		scopes:         splitList(get("GITHUB_SCOPES", "read:user")),
		cacheMargin:    margin,
		timeout:        timeout,
		strictSponsors: strict,
	}, nil
}

func (o OAuth) GetClientID() string {
	return o.clientID
}

func (o OAuth) GetClientSecret() string {
	return o.clientSecret
}

func (o OAuth) GetAuthURL() string {
	return o.authURL
}

func (o OAuth) GetTokenURL() string {
	return o.tokenURL
}

func (o OAuth) GetAPIBaseURL() string {
	return o.apiBaseURL
}

func (o OAuth) GetScopes() []string {
	return append([]string(nil), o.scopes...)
}

func (OAuth) GetStateTokenExpiry() time.Duration {
	return 10 * time.Minute
}

func (OAuth) GetSessionTokenExpiry() time.Duration {
	return 1 * time.Hour
}

// GetSessionCacheMargin is how much earlier than the real expiry a client
// should stop reusing a cached session token.
func (o OAuth) GetSessionCacheMargin() time.Duration {
	return o.cacheMargin
}

func (o OAuth) GetPlatformTimeout() time.Duration {
	return o.timeout
}

func (o OAuth) GetSponsorOracleStrict() bool {
	return o.strictSponsors
}
