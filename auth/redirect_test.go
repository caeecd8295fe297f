package auth_test

import (
	"strings"
	"testing"

	"github.com/jrsteele09/go-sponsor-gate/auth"
	"github.com/jrsteele09/go-sponsor-gate/internal/config"
	"github.com/stretchr/testify/require"
)

func TestRedirectValidator(t *testing.T) {
	long := "https://blog.example.com/" + strings.Repeat("a", auth.MaxRedirectURLLength)

	tests := []struct {
		name      string
		env       config.Environment
		allowed   []string
		candidate string
		want      string
		ok        bool
	}{
		{name: "https accepted", env: config.EnvProduction, candidate: "https://blog.example.com/post?id=1", want: "https://blog.example.com/post?id=1", ok: true},
		{name: "canonicalised", env: config.EnvProduction, candidate: "HTTPS://blog.example.com/a b", want: "https://blog.example.com/a%20b", ok: true},
		{name: "empty", env: config.EnvDevelopment, candidate: "", ok: false},
		{name: "relative", env: config.EnvDevelopment, candidate: "/post", ok: false},
		{name: "scheme relative", env: config.EnvDevelopment, candidate: "//evil.example.com/x", ok: false},
		{name: "javascript", env: config.EnvDevelopment, candidate: "javascript:alert(1)", ok: false},
		{name: "data url", env: config.EnvDevelopment, candidate: "data:text/html,hi", ok: false},
		{name: "ftp", env: config.EnvDevelopment, candidate: "ftp://example.com/file", ok: false},
		{name: "garbage", env: config.EnvDevelopment, candidate: "http://[::1", ok: false},
		{name: "control characters", env: config.EnvDevelopment, candidate: "https://example.com/\x00", ok: false},
		{name: "user info", env: config.EnvDevelopment, candidate: "https://trusted.example.com@evil.example.com/", ok: false},
		{name: "http remote host", env: config.EnvDevelopment, candidate: "http://blog.example.com/", ok: false},
		{name: "http localhost in dev", env: config.EnvDevelopment, candidate: "http://localhost:3000/cb", want: "http://localhost:3000/cb", ok: true},
		{name: "http loopback ip in dev", env: config.EnvDevelopment, candidate: "http://127.0.0.1:3000/cb", want: "http://127.0.0.1:3000/cb", ok: true},
		{name: "http localhost in prod", env: config.EnvProduction, candidate: "http://localhost:3000/cb", ok: false},
		{name: "https localhost in prod", env: config.EnvProduction, candidate: "https://localhost/cb", ok: false},
		{name: "https localhost subdomain in prod", env: config.EnvProduction, candidate: "https://app.localhost/cb", ok: false},
		{name: "https loopback range in prod", env: config.EnvProduction, candidate: "https://127.8.9.10/cb", ok: false},
		{name: "https ipv6 loopback in prod", env: config.EnvProduction, candidate: "https://[::1]/cb", ok: false},
		{name: "https localhost in dev", env: config.EnvDevelopment, candidate: "https://localhost/cb", want: "https://localhost/cb", ok: true},
		{name: "too long", env: config.EnvProduction, candidate: long, ok: false},
		{name: "allow-list exact", env: config.EnvProduction, allowed: []string{"example.com"}, candidate: "https://example.com/", want: "https://example.com/", ok: true},
		{name: "allow-list subdomain", env: config.EnvProduction, allowed: []string{"example.com"}, candidate: "https://Blog.Example.com/", want: "https://Blog.Example.com/", ok: true},
		{name: "allow-list dot boundary", env: config.EnvProduction, allowed: []string{"example.com"}, candidate: "https://evilexample.com/", ok: false},
		{name: "allow-list suffix trick", env: config.EnvProduction, allowed: []string{"example.com"}, candidate: "https://example.com.evil.net/", ok: false},
		{name: "allow-list case insensitive", env: config.EnvProduction, allowed: []string{"EXAMPLE.com"}, candidate: "https://example.COM/", want: "https://example.COM/", ok: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := auth.NewRedirectValidator(tt.env, tt.allowed)
			got, ok := v.Validate(tt.candidate)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}
