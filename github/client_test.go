package github_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/jrsteele09/go-sponsor-gate/github"
	"github.com/jrsteele09/go-sponsor-gate/internal/config"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeGitHub struct {
	*httptest.Server
	graphQLBodies []map[string]any
	lastAuth      string
}

func newFakeGitHub(t *testing.T) *fakeGitHub {
	t.Helper()
	f := &fakeGitHub{}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		if r.Form.Get("code") != "good-code" {
			_, _ = io.WriteString(w, `{"error":"bad_verification_code","error_description":"The code passed is incorrect or expired."}`)
			return
		}
		require.Equal(t, "client-id", r.Form.Get("client_id"))
		require.Equal(t, "https://gate.example.com/auth/callback", r.Form.Get("redirect_uri"))
		_, _ = io.WriteString(w, `{"access_token":"gho_visitor","token_type":"bearer","scope":"read:user"}`)
	})

	mux.HandleFunc("GET /user", func(w http.ResponseWriter, r *http.Request) {
		f.lastAuth = r.Header.Get("Authorization")
		switch r.Header.Get("Authorization") {
		case "Bearer gho_visitor":
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"login":"carol","name":"Carol C","avatar_url":"https://avatars.example.com/carol"}`)
		case "Bearer gho_nologin":
			_, _ = io.WriteString(w, `{"name":"Nobody"}`)
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"message":"Bad credentials"}`)
		}
	})

	mux.HandleFunc("POST /graphql", func(w http.ResponseWriter, r *http.Request) {
		f.lastAuth = r.Header.Get("Authorization")
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.graphQLBodies = append(f.graphQLBodies, body)

		if r.Header.Get("Authorization") == "Bearer broken" {
			_, _ = io.WriteString(w, `{"errors":[{"message":"Resource not accessible"}]}`)
			return
		}
		vars, _ := body["variables"].(map[string]any)
		if vars["after"] == nil {
			_, _ = io.WriteString(w, `{"data":{"viewer":{"sponsorshipsAsMaintainer":{
				"nodes":[
					{"createdAt":"2025-01-02T03:04:05Z","sponsorEntity":{"login":"bob","name":"Bob"},"tier":{"name":"Gold","monthlyPriceInDollars":25}},
					{"createdAt":"2025-02-02T03:04:05Z","sponsorEntity":null,"tier":null}
				],
				"pageInfo":{"hasNextPage":true,"endCursor":"Y3Vyc29yOjE="}}}}}`)
			return
		}
		_, _ = io.WriteString(w, `{"data":{"viewer":{"sponsorshipsAsMaintainer":{
			"nodes":[{"createdAt":"2025-03-02T03:04:05Z","sponsorEntity":{"login":"acme-org","name":"Acme"},"tier":{"name":"Org","monthlyPriceInDollars":100}}],
			"pageInfo":{"hasNextPage":false,"endCursor":"Y3Vyc29yOjI="}}}}}`)
	})

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func newClient(t *testing.T, f *fakeGitHub) *github.Client {
	t.Helper()
	cfg := &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "https://gate.example.com/auth/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:   f.URL + "/login/oauth/authorize",
			TokenURL:  f.URL + "/login/oauth/access_token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	c, err := github.NewClient(cfg, github.WithHTTPClient(f.Client()), github.WithAPIBaseURL(f.URL+"/"))
	require.NoError(t, err)
	return c
}

func TestClient_Exchange(t *testing.T) {
	f := newFakeGitHub(t)
	c := newClient(t, f)

	tok, err := c.Exchange(context.Background(), "good-code")
	require.NoError(t, err)
	require.Equal(t, "gho_visitor", tok)

	_, err = c.Exchange(context.Background(), "stale-code")
	require.Error(t, err)
}

func TestClient_Viewer(t *testing.T) {
	f := newFakeGitHub(t)
	c := newClient(t, f)

	user, err := c.Viewer(context.Background(), "gho_visitor")
	require.NoError(t, err)
	require.Equal(t, &github.User{Login: "carol", Name: "Carol C", AvatarURL: "https://avatars.example.com/carol"}, user)
	require.Equal(t, "Bearer gho_visitor", f.lastAuth)

	_, err = c.Viewer(context.Background(), "revoked")
	var statusErr *github.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)

	_, err = c.Viewer(context.Background(), "gho_nologin")
	require.Error(t, err)
}

func TestClient_SponsorsPage(t *testing.T) {
	f := newFakeGitHub(t)
	c := newClient(t, f)

	first, err := c.SponsorsPage(context.Background(), "creator-pat", "")
	require.NoError(t, err)
	require.True(t, first.HasNextPage)
	require.Equal(t, "Y3Vyc29yOjE=", first.EndCursor)
	require.Len(t, first.Records, 1, "entities hidden from the viewer are skipped")
	require.Equal(t, "bob", first.Records[0].Login)
	require.Equal(t, "Gold", first.Records[0].TierName)
	require.Equal(t, 25, first.Records[0].MonthlyPriceInDollars)
	require.Equal(t, "Bearer creator-pat", f.lastAuth)

	second, err := c.SponsorsPage(context.Background(), "creator-pat", first.EndCursor)
	require.NoError(t, err)
	require.False(t, second.HasNextPage)
	require.Equal(t, "acme-org", second.Records[0].Login)

	require.Len(t, f.graphQLBodies, 2)
	vars := f.graphQLBodies[1]["variables"].(map[string]any)
	require.Equal(t, "Y3Vyc29yOjE=", vars["after"], "cursor travels as a variable, never spliced into the query")
}

func TestClient_SponsorsPageErrors(t *testing.T) {
	f := newFakeGitHub(t)
	c := newClient(t, f)

	_, err := c.SponsorsPage(context.Background(), "broken", "")
	require.ErrorContains(t, err, "Resource not accessible")
}

func TestNewOAuth2Config(t *testing.T) {
	settings, err := config.New(func(key string) string {
		if key == "GITHUB_CLIENT_ID" {
			return "cid"
		}
		return ""
	})
	require.NoError(t, err)

	cfg := github.NewOAuth2Config(settings, "https://gate.example.com")
	require.Equal(t, "https://gate.example.com/auth/callback", cfg.RedirectURL)
	require.Equal(t, []string{"read:user"}, cfg.Scopes)
	require.Equal(t, "https://github.com/login/oauth/authorize", cfg.Endpoint.AuthURL)

	authURL, err := url.Parse(cfg.AuthCodeURL("state-value"))
	require.NoError(t, err)
	require.Equal(t, "state-value", authURL.Query().Get("state"))
	require.Equal(t, "cid", authURL.Query().Get("client_id"))
}
