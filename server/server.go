package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-nafath-server/internal/config"
	"github.com/jrsteele09/go-nafath-server/verification"
	"github.com/rs/cors"
)

// IdentityVerifier is the verification session API the HTTP handlers drive
type IdentityVerifier interface {
	IsConfigured() bool
	Initiate(ctx context.Context, category string) (*verification.Initiation, error)
	HandleCallback(ctx context.Context, code, state string) (string, error)
	AbortCallback(ctx context.Context, state string) error
	GetSessionData(ctx context.Context, token string) (*verification.IdentityView, error)
	Consume(ctx context.Context, token string) (*verification.IdentityView, error)
	Delete(ctx context.Context, token string) error
}

type Server struct {
	env         string // Environment (e.g., "DEV", "PROD")
	mux         *http.ServeMux
	handler     http.Handler
	routes      []string
	config      config.Config
	verifier    IdentityVerifier
	healthCheck func(ctx context.Context) error
}

// ServerOption defines a function type to modify the Server instance.
type ServerOption func(*Server)

// WithHealthCheck sets the readiness probe run by the health endpoint
func WithHealthCheck(check func(ctx context.Context) error) ServerOption {
	return func(s *Server) {
		s.healthCheck = check
	}
}

func New(config config.Config, verifier IdentityVerifier, options ...ServerOption) *Server {
	s := &Server{
		env:      config.GetEnv(),
		mux:      http.NewServeMux(),
		config:   config,
		verifier: verifier,
	}
	for _, opt := range options {
		opt(s)
	}

	s.initRoutes()
	s.handler = s.corsHandler().Handler(s.mux)
	s.logRoutes()

	return s
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

// corsHandler allows the browser application to call the API with credentials
func (s *Server) corsHandler() *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins:   s.config.GetAllowedOrigins().List(),
		AllowedMethods:   s.config.GetAllowedMethods(),
		AllowedHeaders:   s.config.GetAllowedHeaders(),
		AllowCredentials: true,
		MaxAge:           86400,
	})
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
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
