package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/httprate"
	"github.com/jrsteele09/go-sponsor-gate/auth"
	"github.com/jrsteele09/go-sponsor-gate/internal/config"
	"github.com/jrsteele09/go-sponsor-gate/stream"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// AuthorizationStarter builds the platform consent URL for a visitor.
type AuthorizationStarter interface {
	BuildAuthorizationURL(ctx context.Context, req auth.AuthorizationRequest) (string, error)
}

// CallbackProcessor runs the platform callback flow to a single outcome.
type CallbackProcessor interface {
	Handle(ctx context.Context, req auth.CallbackRequest) *auth.CallbackOutcome
}

// SessionAuthorizer checks the session token carried by a request.
type SessionAuthorizer interface {
	AuthorizeRequest(r *http.Request, requestedCreatorID string) (*auth.AuthorizationResult, error)
}

// StreamGate serves protected HLS content.
type StreamGate interface {
	ServeManifest(ctx context.Context, req stream.ManifestRequest) ([]byte, error)
	ServeSegment(ctx context.Context, req stream.SegmentRequest) (io.ReadCloser, int64, error)
	Metadata(ctx context.Context, contentID string) (*stream.Metadata, error)
}

// Services groups the domain components the HTTP layer delegates to.
type Services struct {
	Initiator AuthorizationStarter
	Callback  CallbackProcessor
	Sessions  SessionAuthorizer
	Gate      StreamGate
}

type Server struct {
	env       config.Environment
	mux       *http.ServeMux
	handler   http.Handler
	routes    []string
	config    config.Config
	services  Services
	pages     pages
	rateLimit func(http.Handler) http.Handler
	nowTime   func() time.Time
}

// ServerOption defines a function type to modify the Server instance.
type ServerOption func(*Server)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServerOption {
	return func(s *Server) {
		s.nowTime = nowFunc
	}
}

func New(config config.Config, services Services, options ...ServerOption) (*Server, error) {
	if config == nil {
		return nil, errors.New("[Server New] config is required")
	}
	if services.Initiator == nil || services.Callback == nil || services.Sessions == nil || services.Gate == nil {
		return nil, errors.New("[Server New] initiator, callback, sessions and gate are required")
	}

	s := &Server{
		env:      config.GetEnv(),
		mux:      http.NewServeMux(),
		config:   config,
		services: services,
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(s)
	}

	pages, err := loadPages()
	if err != nil {
		return nil, fmt.Errorf("[Server New] %w", err)
	}
	s.pages = pages

	if limit := config.GetRateLimitPerMinute(); limit > 0 {
		s.rateLimit = httprate.LimitByIP(limit, time.Minute)
	}

	s.initRoutes()
	s.logRoutes()
	s.handler = otelhttp.NewHandler(s.mux, config.GetAppName())

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env.IsProduction() {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	log.Debug().Msgf("[%-19s] %s", color+paddedMethod+ResetColor, path)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
