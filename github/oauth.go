package github

import (
	"github.com/jrsteele09/go-sponsor-gate/internal/config"
	"golang.org/x/oauth2"
	oauth2github "golang.org/x/oauth2/github"
)

// CallbackPath is where the platform returns the visitor after consent.
const CallbackPath = "/auth/callback"

// NewOAuth2Config builds the client used both to form the authorize URL and to
// exchange the code. The redirect URI is fixed so the two always agree.
func NewOAuth2Config(cfg config.OAuthConfig, baseURL string) *oauth2.Config {
	endpoint := oauth2github.Endpoint
	if cfg.GetAuthURL() != "" {
		endpoint.AuthURL = cfg.GetAuthURL()
	}
	if cfg.GetTokenURL() != "" {
		endpoint.TokenURL = cfg.GetTokenURL()
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	return &oauth2.Config{
		ClientID:     cfg.GetClientID(),
		ClientSecret: cfg.GetClientSecret(),
		Endpoint:     endpoint,
		RedirectURL:  baseURL + CallbackPath,
		Scopes:       cfg.GetScopes(),
	}
}
