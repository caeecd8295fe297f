package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-sponsor-gate/internal/metrics"
	"github.com/jrsteele09/go-sponsor-gate/sponsors"
	"golang.org/x/oauth2"
)

const (
	defaultAPIBaseURL = "https://api.github.com"
	defaultUserAgent  = "sponsor-gate"
	maxResponseBytes  = 4 << 20
)

// User is the authenticated visitor as reported by the platform.
type User struct {
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// StatusError is returned for non-2xx platform responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("github responded %d: %s", e.StatusCode, e.Body)
}

var _ sponsors.Lister = (*Client)(nil)

// Client talks to the GitHub OAuth token endpoint, the REST user endpoint and
// the GraphQL sponsorship listing.
type Client struct {
	oauth      *oauth2.Config
	httpClient *http.Client
	apiBaseURL string
	userAgent  string
}

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithAPIBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.apiBaseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

func NewClient(oauthCfg *oauth2.Config, options ...ClientOption) (*Client, error) {
	if oauthCfg == nil {
		return nil, errors.New("[github NewClient] oauth2 config is required")
	}
	c := &Client{
		oauth:      oauthCfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiBaseURL: defaultAPIBaseURL,
		userAgent:  defaultUserAgent,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Exchange trades a one-time authorization code for the visitor's access token.
func (c *Client) Exchange(ctx context.Context, code string) (string, error) {
	defer metrics.ObserveUpstream("github_token", time.Now())

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("[github Exchange] %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("[github Exchange] response carried no access token")
	}
	return tok.AccessToken, nil
}

// Viewer resolves the identity behind accessToken.
func (c *Client) Viewer(ctx context.Context, accessToken string) (*User, error) {
	defer metrics.ObserveUpstream("github_user", time.Now())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBaseURL+"/user", nil)
	if err != nil {
		return nil, fmt.Errorf("[github Viewer] %w", err)
	}
	c.setHeaders(req, accessToken)

	var user User
	if err := c.do(req, &user); err != nil {
		return nil, fmt.Errorf("[github Viewer] %w", err)
	}
	if user.Login == "" {
		return nil, errors.New("[github Viewer] user has no login")
	}
	return &user, nil
}

const sponsorsQuery = `query($after: String) {
  viewer {
    sponsorshipsAsMaintainer(first: 100, after: $after) {
      nodes {
        createdAt
        sponsorEntity {
          ... on User { login name }
          ... on Organization { login name }
        }
        tier { name monthlyPriceInDollars }
      }
      pageInfo { hasNextPage endCursor }
    }
  }
}`

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type sponsorsResponse struct {
	Data struct {
		Viewer *struct {
			SponsorshipsAsMaintainer *struct {
				Nodes []struct {
					CreatedAt     time.Time `json:"createdAt"`
					SponsorEntity *struct {
						Login string `json:"login"`
						Name  string `json:"name"`
					} `json:"sponsorEntity"`
					Tier *struct {
						Name                  string `json:"name"`
						MonthlyPriceInDollars int    `json:"monthlyPriceInDollars"`
					} `json:"tier"`
				} `json:"nodes"`
				PageInfo struct {
					HasNextPage bool   `json:"hasNextPage"`
					EndCursor   string `json:"endCursor"`
				} `json:"pageInfo"`
			} `json:"sponsorshipsAsMaintainer"`
		} `json:"viewer"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// SponsorsPage fetches one page of sponsorships received by the owner of credential.
func (c *Client) SponsorsPage(ctx context.Context, credential, cursor string) (*sponsors.Page, error) {
	defer metrics.ObserveUpstream("github_graphql", time.Now())

	vars := map[string]any{"after": nil}
	if cursor != "" {
		vars["after"] = cursor
	}
	body, err := json.Marshal(graphQLRequest{Query: sponsorsQuery, Variables: vars})
	if err != nil {
		return nil, fmt.Errorf("[github SponsorsPage] %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBaseURL+"/graphql", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("[github SponsorsPage] %w", err)
	}
	c.setHeaders(req, credential)
	req.Header.Set("Content-Type", "application/json")

	var resp sponsorsResponse
	if err := c.do(req, &resp); err != nil {
		return nil, fmt.Errorf("[github SponsorsPage] %w", err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("[github SponsorsPage] graphql: %s", resp.Errors[0].Message)
	}
	if resp.Data.Viewer == nil || resp.Data.Viewer.SponsorshipsAsMaintainer == nil {
		return nil, errors.New("[github SponsorsPage] response carried no sponsorship data")
	}

	listing := resp.Data.Viewer.SponsorshipsAsMaintainer
	page := &sponsors.Page{
		Records:     make([]sponsors.Record, 0, len(listing.Nodes)),
		HasNextPage: listing.PageInfo.HasNextPage,
		EndCursor:   listing.PageInfo.EndCursor,
	}
	for _, n := range listing.Nodes {
		if n.SponsorEntity == nil || n.SponsorEntity.Login == "" {
			continue
		}
		r := sponsors.Record{
			Login:     n.SponsorEntity.Login,
			Name:      n.SponsorEntity.Name,
			CreatedAt: n.CreatedAt,
		}
		if n.Tier != nil {
			r.TierName = n.Tier.Name
			r.MonthlyPriceInDollars = n.Tier.MonthlyPriceInDollars
		}
		page.Records = append(page.Records, r)
	}
	return page, nil
}

func (c *Client) setHeaders(req *http.Request, bearer string) {
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", c.userAgent)
}

func (c *Client) do(req *http.Request, into any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return &StatusError{StatusCode: resp.StatusCode, Body: snippet}
	}
	if err := json.Unmarshal(body, into); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
