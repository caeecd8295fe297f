package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-sponsor-gate/auth"
	"github.com/jrsteele09/go-sponsor-gate/creators/redisrepo"
	"github.com/jrsteele09/go-sponsor-gate/github"
	"github.com/jrsteele09/go-sponsor-gate/internal/config"
	"github.com/jrsteele09/go-sponsor-gate/server"
	"github.com/jrsteele09/go-sponsor-gate/sponsors"
	"github.com/jrsteele09/go-sponsor-gate/storage"
	"github.com/jrsteele09/go-sponsor-gate/storage/r2"
	"github.com/jrsteele09/go-sponsor-gate/stream"
	"github.com/jrsteele09/go-sponsor-gate/token"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// build wires the components from configuration. The returned cleanup
// releases the Redis connection pool.
func build(ctx context.Context, c config.Config) (*server.Server, func(), error) {
	signer, err := token.NewHMACSigner(c.GetSigningSecret())
	if err != nil {
		return nil, nil, err
	}
	codec, err := token.NewCodec(signer)
	if err != nil {
		return nil, nil, err
	}

	rdb, err := redisrepo.Connect(ctx, c.GetRedisURL())
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("closing redis")
		}
	}
	fail := func(err error) (*server.Server, func(), error) {
		cleanup()
		return nil, nil, err
	}

	sealer, err := redisrepo.NewSealer(c.GetSigningSecret())
	if err != nil {
		return fail(err)
	}
	creatorRepo, err := redisrepo.New(rdb, sealer)
	if err != nil {
		return fail(err)
	}

	// Platform calls are request/response and bounded end to end.
	httpClient := &http.Client{
		Timeout:   c.GetPlatformTimeout(),
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	oauthCfg := github.NewOAuth2Config(c, c.GetBaseURL())
	platform, err := github.NewClient(oauthCfg,
		github.WithHTTPClient(httpClient),
		github.WithAPIBaseURL(c.GetAPIBaseURL()),
		github.WithUserAgent(c.GetAppName()),
	)
	if err != nil {
		return fail(err)
	}
	oracle, err := sponsors.NewOracle(platform, sponsors.WithStrict(c.GetSponsorOracleStrict()))
	if err != nil {
		return fail(err)
	}

	bucket, err := r2.New(c)
	if err != nil {
		return fail(err)
	}
	// Storage bodies stream to viewers, so only connect and headers are bounded.
	storageClient := &http.Client{
		Transport: otelhttp.NewTransport(storage.NewTransport(c.GetPlatformTimeout())),
	}
	objects, err := storage.NewClient(bucket, storage.WithHTTPClient(storageClient))
	if err != nil {
		return fail(err)
	}

	redirects := auth.NewRedirectValidator(c.GetEnv(), c.GetAllowedRedirectDomains())
	initiator, err := auth.NewInitiator(codec, oauthCfg, redirects, c.GetTokenIssuer(),
		auth.WithStateTTL(c.GetStateTokenExpiry()))
	if err != nil {
		return fail(err)
	}
	callback, err := auth.NewCallbackService(codec, platform, creatorRepo, oracle, c.GetTokenIssuer(),
		auth.WithSessionTTL(c.GetSessionTokenExpiry()),
		auth.WithCacheMargin(c.GetSessionCacheMargin()),
		auth.WithStepTimeout(c.GetPlatformTimeout()),
	)
	if err != nil {
		return fail(err)
	}
	verifier, err := auth.NewSessionVerifier(codec, c.GetTokenIssuer())
	if err != nil {
		return fail(err)
	}
	gate, err := stream.NewGate(objects, verifier, c.GetBaseURL(),
		stream.WithSignedURLTTLs(c.GetSignedURLTTL(), c.GetMetadataURLTTL()))
	if err != nil {
		return fail(err)
	}

	srv, err := server.New(c, server.Services{
		Initiator: initiator,
		Callback:  callback,
		Sessions:  verifier,
		Gate:      gate,
	})
	if err != nil {
		return fail(fmt.Errorf("[build] %w", err))
	}
	return srv, cleanup, nil
}
