// Command creatorctl manages the creator credentials the gate uses to read
// sponsorship listings.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jrsteele09/go-sponsor-gate/creators/redisrepo"
	"github.com/jrsteele09/go-sponsor-gate/github"
	"github.com/jrsteele09/go-sponsor-gate/internal/config"
	"github.com/jrsteele09/go-sponsor-gate/internal/logging"
	"github.com/jrsteele09/go-sponsor-gate/sponsors"
	"github.com/rs/zerolog/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(openFromConfig).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// openFromConfig connects to the same Redis store and platform API the server
// uses, configured from the same environment.
func openFromConfig(ctx context.Context) (*dependencies, error) {
	c, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Configure(logging.Options{Level: c.GetLogLevel(), Env: c.GetEnv()})
	if c.GetSigningSecret() == "" || c.GetRedisURL() == "" {
		return nil, errors.New("JWT_SECRET and REDIS_URL must be set")
	}

	rdb, err := redisrepo.Connect(ctx, c.GetRedisURL())
	if err != nil {
		return nil, err
	}
	closeFn := func() {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("closing redis")
		}
	}
	sealer, err := redisrepo.NewSealer(c.GetSigningSecret())
	if err != nil {
		closeFn()
		return nil, err
	}
	repo, err := redisrepo.New(rdb, sealer)
	if err != nil {
		closeFn()
		return nil, err
	}

	platform, err := github.NewClient(github.NewOAuth2Config(c, c.GetBaseURL()),
		github.WithHTTPClient(&http.Client{Timeout: c.GetPlatformTimeout()}),
		github.WithAPIBaseURL(c.GetAPIBaseURL()),
		github.WithUserAgent(c.GetAppName()),
	)
	if err != nil {
		closeFn()
		return nil, err
	}
	// Strict so that an operator sees platform failures instead of a quiet "no".
	oracle, err := sponsors.NewOracle(platform, sponsors.WithStrict(true))
	if err != nil {
		closeFn()
		return nil, err
	}

	return &dependencies{repo: repo, oracle: oracle, platform: platform, close: closeFn}, nil
}
