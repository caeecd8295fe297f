package server

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog/log"
)

func ChainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}

// HTMLMiddleWare is the chain for browser-facing routes.
func (s *Server) HTMLMiddleWare(mw ...func(http.HandlerFunc) http.HandlerFunc) []func(http.HandlerFunc) http.HandlerFunc {
	chainedMiddleWare := []func(http.HandlerFunc) http.HandlerFunc{
		s.LoggingMiddleware,
		s.RecoverMiddleware,
		s.FrameSecurityMiddleware,
	}
	chainedMiddleWare = append(chainedMiddleWare, mw...)
	return chainedMiddleWare
}

// APIMiddleware is the chain for JSON and streaming routes, which players and
// widgets call cross-origin.
func (s *Server) APIMiddleware(mw ...func(http.HandlerFunc) http.HandlerFunc) []func(http.HandlerFunc) http.HandlerFunc {
	chainedMiddleWare := []func(http.HandlerFunc) http.HandlerFunc{
		s.LoggingMiddleware,
		s.RecoverMiddleware,
		s.CorsMiddleware,
	}
	chainedMiddleWare = append(chainedMiddleWare, mw...)
	return chainedMiddleWare
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int64
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.written += int64(n)
	return n, err
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// LoggingMiddleware logs method, path, status and duration. The query string is
// never logged because it may carry a session token.
func (s *Server) LoggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := s.nowTime()
		rec := &statusRecorder{ResponseWriter: w}
		next(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		if !s.env.IsProduction() {
			paddedMethod := fmt.Sprintf(" %-7s", r.Method)
			log.Debug().Msgf("[%s%s%s] %s %s%d%s %s", methodColors[r.Method], paddedMethod, ResetColor,
				r.URL.Path, statusColor(rec.status), rec.status, ResetColor, s.nowTime().Sub(start))
			return
		}
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Int64("bytes", rec.written).
			Dur("duration", s.nowTime().Sub(start)).
			Msg("request")
	}
}

func (s *Server) FrameSecurityMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Prevent embedding on other sites
		w.Header().Set("X-Frame-Options", "SAMEORIGIN")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'self'")
		next(w, r)
	}
}

// RecoverMiddleware turns a panic into a fallback response. Browser routes get
// the failure page, everything else a JSON error.
func (s *Server) RecoverMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			log.Error().
				Str("path", r.URL.Path).
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("recovered from panic")

			if strings.Contains(r.Header.Get("Accept"), "text/html") {
				s.renderFailurePage(w, http.StatusInternalServerError, "internal_error", "Something went wrong, please try again")
				return
			}
			writeJSONError(w, "internal_error", "Something went wrong", http.StatusInternalServerError)
		}()
		next(w, r)
	}
}

// RateLimitMiddleware applies the per-IP limit configured by RATE_LIMIT_PER_MINUTE.
func (s *Server) RateLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	if s.rateLimit == nil {
		return next
	}
	return s.rateLimit(next).ServeHTTP
}

func (s *Server) CorsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		// No Origin header = same-origin request, no CORS headers needed
		if origin == "" {
			next(w, r)
			return
		}

		allowedOrigins := s.config.GetAllowedOrigins()
		isAllowed := allowedOrigins.IsAllowedOrigin(origin)
		isWildcard := allowedOrigins.IsAllowedOrigin("*")

		w.Header().Add("Vary", "Origin")
		if r.Method == http.MethodOptions {
			if isAllowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			} else if isWildcard {
				// Don't set Allow-Credentials with wildcard
				w.Header().Set("Access-Control-Allow-Origin", "*")
			}
			if isAllowed || isWildcard {
				w.Header().Set("Access-Control-Allow-Methods", s.config.GetAllowedMethods())
				w.Header().Set("Access-Control-Allow-Headers", s.config.GetAllowedHeaders())
				w.Header().Set("Access-Control-Max-Age", "86400")
			}
			next(w, r)
			return
		}

		if isAllowed {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		} else if isWildcard {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		// If not allowed, don't set CORS headers - browser will block

		next(w, r)
	}
}
