package http

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aescanero/webapp/internal/application/health"
	"github.com/aescanero/webapp/internal/auth"
	"github.com/aescanero/webapp/internal/config"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humagin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Controller registers its operations on the API
type Controller interface {
	RegisterRoutes(api huma.API)
}

// Server represents the HTTP API server
type Server struct {
	router *gin.Engine
	api    huma.API
	health *health.Registry
	logger *zap.Logger

	server      *http.Server
	httpsServer *http.Server
	tls         config.TLSConfig

	anonymous         map[string]bool
	anonymousPrefixes []string

	mu            sync.Mutex
	listener      net.Listener
	httpsListener net.Listener
}

// Config holds HTTP server configuration
type Config struct {
	Name        string
	Version     string
	Environment config.Environment

	Port              int
	HTTPSPort         int
	HTTPSRedirectPort int
	TLS               config.TLSConfig
	CORSEnabled       bool
	ReadHeaderTimeout time.Duration

	Health  *health.Registry
	Policy  auth.Policy
	Metrics MetricsCollector
	Logger  *zap.Logger
}

// MetricsCollector records requests and serves the /metrics endpoint
type MetricsCollector interface {
	MetricsRecorder
	Handler() http.Handler
}

// NewServer creates a new HTTP server. Middleware order: recovery, request id,
// logging, metrics, HTTPS redirection (outside Production), CORS,
// authorization.
func NewServer(cfg *Config) *Server {
	if cfg.Environment.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	policy := cfg.Policy
	if policy == nil {
		policy = auth.AllowAll()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := cfg.Health
	if registry == nil {
		registry = health.NewRegistry(5*time.Second, logger)
	}

	router := gin.New()

	s := &Server{
		router:    router,
		health:    registry,
		logger:    logger,
		tls:       cfg.TLS,
		anonymous: map[string]bool{},
	}

	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(requestLogger(logger))
	if cfg.Metrics != nil {
		router.Use(requestMetrics(cfg.Metrics))
	}
	if !cfg.Environment.IsProduction() {
		router.Use(httpsRedirect(cfg.HTTPSRedirectPort))
	}
	if cfg.CORSEnabled {
		router.Use(corsMiddleware())
	}
	router.Use(authorization(policy, s.isAnonymous, logger))

	router.NoRoute(s.handleNotFound)

	s.api = humagin.New(router, s.apiConfig(cfg))
	s.setupRoutes(cfg)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	if cfg.TLS.Enabled() {
		s.httpsServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.HTTPSPort),
			Handler:           router,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		}
	}

	return s
}

// apiConfig builds the huma configuration. The OpenAPI document, its schemas
// and the docs UI are only served in Development.
func (s *Server) apiConfig(cfg *Config) huma.Config {
	apiCfg := huma.DefaultConfig(cfg.Name, cfg.Version)
	apiCfg.CreateHooks = nil

	if !cfg.Environment.IsDevelopment() {
		apiCfg.OpenAPIPath = ""
		apiCfg.DocsPath = ""
		apiCfg.SchemasPath = ""
		return apiCfg
	}

	if p := apiCfg.OpenAPIPath; p != "" {
		for _, suffix := range []string{".json", ".yaml", "-3.0.json", "-3.0.yaml"} {
			s.anonymous[p+suffix] = true
		}
	}
	if p := apiCfg.DocsPath; p != "" {
		s.anonymous[p] = true
	}
	if p := apiCfg.SchemasPath; p != "" {
		s.anonymousPrefixes = append(s.anonymousPrefixes, strings.TrimSuffix(p, "/")+"/")
	}
	return apiCfg
}

// setupRoutes configures the built-in routes
func (s *Server) setupRoutes(cfg *Config) {
	s.registerHealth()

	if cfg.Metrics != nil {
		s.router.GET(PathMetrics, gin.WrapH(cfg.Metrics.Handler()))
		s.anonymous[PathMetrics] = true
	}
}

func (s *Server) isAnonymous(route string) bool {
	if s.anonymous[route] {
		return true
	}
	for _, p := range s.anonymousPrefixes {
		if strings.HasPrefix(route, p) {
			return true
		}
	}
	return false
}

// MapControllers registers controller routes. Controller routes pass through
// the authorization policy.
func (s *Server) MapControllers(controllers ...Controller) {
	for _, c := range controllers {
		c.RegisterRoutes(s.api)
	}
}

// API returns the huma API for direct registrations
func (s *Server) API() huma.API {
	return s.api
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Listen binds the configured ports. It fails if a port is in use or the TLS
// key pair cannot be loaded.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var tlsConfig *tls.Config
	if s.httpsServer != nil {
		cert, err := tls.LoadX509KeyPair(s.tls.CertFile, s.tls.KeyFile)
		if err != nil {
			return fmt.Errorf("failed to load TLS key pair: %w", err)
		}
		tlsConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}

	if s.httpsServer != nil {
		httpsLn, err := net.Listen("tcp", s.httpsServer.Addr)
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("failed to listen on %s: %w", s.httpsServer.Addr, err)
		}
		s.httpsServer.TLSConfig = tlsConfig
		s.httpsListener = httpsLn
	}

	s.listener = ln
	return nil
}

// Addr returns the bound HTTP address, or the configured one before Listen
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.server.Addr
}

// Serve serves on the bound listeners until Shutdown. It returns the first
// serve error.
func (s *Server) Serve() error {
	s.mu.Lock()
	ln, httpsLn := s.listener, s.httpsListener
	s.mu.Unlock()

	if ln == nil {
		return errors.New("server is not listening")
	}

	errCh := make(chan error, 2)
	serving := 1

	s.logger.Info("starting HTTP server", zap.String("addr", ln.Addr().String()))
	go func() {
		errCh <- s.server.Serve(ln)
	}()

	if httpsLn != nil {
		serving++
		s.logger.Info("starting HTTPS server", zap.String("addr", httpsLn.Addr().String()))
		go func() {
			errCh <- s.httpsServer.ServeTLS(httpsLn, "", "")
		}()
	}

	for i := 0; i < serving; i++ {
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve HTTP: %w", err)
		}
	}

	return nil
}

// Start binds and serves, blocking until Shutdown
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return s.Serve()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	var errs []error
	if err := s.server.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if s.httpsServer != nil {
		if err := s.httpsServer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server shut down complete")
	return nil
}
