package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aescanero/webapp/internal/application/health"
	"github.com/aescanero/webapp/internal/auth"
	"github.com/aescanero/webapp/internal/config"
	"github.com/aescanero/webapp/pkg/adapters/metrics/prometheus"
	"github.com/aescanero/webapp/pkg/api/controllers"
	"github.com/danielgtaylor/huma/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testOption func(cfg *Config)

func withPolicy(p auth.Policy) testOption {
	return func(cfg *Config) { cfg.Policy = p }
}

func withRedirectPort(port int) testOption {
	return func(cfg *Config) { cfg.HTTPSRedirectPort = port }
}

func withChecks(checks ...health.Check) testOption {
	return func(cfg *Config) {
		for _, c := range checks {
			if err := cfg.Health.Register(c); err != nil {
				panic(err)
			}
		}
	}
}

func newTestServer(t *testing.T, env config.Environment, opts ...testOption) *Server {
	t.Helper()

	registry := health.NewRegistry(time.Second, zap.NewNop())
	require.NoError(t, registry.Register(health.Self()))

	cfg := &Config{
		Name:              "webapp",
		Version:           "test",
		Environment:       env,
		Port:              0,
		HTTPSRedirectPort: 443,
		ReadHeaderTimeout: time.Second,
		Health:            registry,
		Metrics:           prometheus.NewCollector(),
		Logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	s := NewServer(cfg)
	s.MapControllers(controllers.NewInfoController(controllers.ServiceInfo{
		Name:        cfg.Name,
		Version:     cfg.Version,
		Environment: env.String(),
	}))
	return s
}

func do(s *Server, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

var overTLS = map[string]string{headerForwardedProto: "https"}

func TestHealthProbes(t *testing.T) {
	s := newTestServer(t, config.EnvironmentProduction)

	for _, path := range []string{PathHealth, PathHealthReady, PathHealthLive} {
		t.Run(path, func(t *testing.T) {
			rec := do(s, http.MethodGet, path, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

			var report HealthReport
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
			assert.Equal(t, "Healthy", report.Status)
			assert.Equal(t, "Healthy", report.Entries["self"].Status)
		})
	}
}

func TestHealthProbes_Unhealthy(t *testing.T) {
	s := newTestServer(t, config.EnvironmentProduction, withChecks(
		health.CheckFunc("redis", func(ctx context.Context) health.Result {
			return health.Unhealthy("redis is unreachable", errors.New("connection refused"))
		}),
	))

	rec := do(s, http.MethodGet, PathHealthReady, nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var report HealthReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "Unhealthy", report.Status)
	assert.Equal(t, "connection refused", report.Entries["redis"].Error)
}

func TestHealthProbes_DegradedIsSuccess(t *testing.T) {
	s := newTestServer(t, config.EnvironmentProduction, withChecks(
		health.CheckFunc("cache", func(ctx context.Context) health.Result {
			return health.Degraded("warming up", nil)
		}),
	))

	rec := do(s, http.MethodGet, PathHealthLive, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHTTPSRedirect(t *testing.T) {
	tests := map[string]struct {
		env          config.Environment
		redirectPort int
		target       string
		headers      map[string]string
		wantStatus   int
		wantLocation string
	}{
		"production serves plain http": {
			env:        config.EnvironmentProduction,
			target:     "http://example.com/health/ready",
			wantStatus: http.StatusOK,
		},
		"development redirects plain http": {
			env:          config.EnvironmentDevelopment,
			target:       "http://example.com/health?verbose=1",
			wantStatus:   http.StatusTemporaryRedirect,
			wantLocation: "https://example.com/health?verbose=1",
		},
		"staging redirects unknown routes too": {
			env:          config.EnvironmentStaging,
			target:       "http://example.com:8080/missing",
			wantStatus:   http.StatusTemporaryRedirect,
			wantLocation: "https://example.com/missing",
		},
		"custom redirect port": {
			env:          config.EnvironmentStaging,
			redirectPort: 8443,
			target:       "http://example.com:8080/health",
			wantStatus:   http.StatusTemporaryRedirect,
			wantLocation: "https://example.com:8443/health",
		},
		"direct tls is not redirected": {
			env:        config.EnvironmentDevelopment,
			target:     "https://example.com/health",
			wantStatus: http.StatusOK,
		},
		"tls terminated by proxy is not redirected": {
			env:        config.EnvironmentStaging,
			target:     "http://example.com/health",
			headers:    overTLS,
			wantStatus: http.StatusOK,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			port := tc.redirectPort
			if port == 0 {
				port = 443
			}
			s := newTestServer(t, tc.env, withRedirectPort(port))

			rec := do(s, http.MethodGet, tc.target, tc.headers)
			require.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, tc.wantLocation, rec.Header().Get("Location"))
		})
	}
}

func TestHTTPSHost(t *testing.T) {
	assert.Equal(t, "example.com", httpsHost("example.com", 443))
	assert.Equal(t, "example.com", httpsHost("example.com:80", 443))
	assert.Equal(t, "example.com:8443", httpsHost("example.com", 8443))
	assert.Equal(t, "[::1]", httpsHost("[::1]:8080", 443))
	assert.Equal(t, "[::1]:8443", httpsHost("[::1]:8080", 8443))
	assert.Equal(t, "[::1]", httpsHost("[::1]", 443))
	assert.Equal(t, "[::1]:8443", httpsHost("[::1]", 8443))
}

func TestHTTPSRedirect_IPv6Host(t *testing.T) {
	s := newTestServer(t, config.EnvironmentStaging)

	req := httptest.NewRequest(http.MethodGet, PathHealth, nil)
	req.Host = "[::1]"
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "https://[::1]/health", rec.Header().Get("Location"))
}

func TestHTTPSRedirect_MissingHost(t *testing.T) {
	s := newTestServer(t, config.EnvironmentStaging)

	req := httptest.NewRequest(http.MethodGet, PathHealth, nil)
	req.Host = ""
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Location"))
}

func TestOpenAPI(t *testing.T) {
	t.Run("development exposes the document", func(t *testing.T) {
		s := newTestServer(t, config.EnvironmentDevelopment)

		rec := do(s, http.MethodGet, "/openapi.json", overTLS)
		require.Equal(t, http.StatusOK, rec.Code)

		var doc struct {
			Paths map[string]interface{} `json:"paths"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
		assert.Contains(t, doc.Paths, PathHealth)
		assert.Contains(t, doc.Paths, PathHealthReady)
		assert.Contains(t, doc.Paths, PathHealthLive)
		assert.Contains(t, doc.Paths, "/api/info")
	})

	for _, env := range []config.Environment{config.EnvironmentProduction, config.EnvironmentStaging} {
		t.Run(env.String()+" hides the document", func(t *testing.T) {
			s := newTestServer(t, env)

			rec := do(s, http.MethodGet, "/openapi.json", overTLS)
			assert.Equal(t, http.StatusNotFound, rec.Code)
			rec = do(s, http.MethodGet, "/docs", overTLS)
			assert.Equal(t, http.StatusNotFound, rec.Code)
		})
	}
}

func TestNotFound(t *testing.T) {
	s := newTestServer(t, config.EnvironmentProduction)

	rec := do(s, http.MethodGet, "/does/not/exist", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t, config.EnvironmentProduction)

	rec := do(s, http.MethodGet, PathHealth, nil)
	assert.NotEmpty(t, rec.Header().Get(headerRequestID))

	rec = do(s, http.MethodGet, PathHealth, map[string]string{headerRequestID: "abc-123"})
	assert.Equal(t, "abc-123", rec.Header().Get(headerRequestID))
}

func TestAuthorization(t *testing.T) {
	secret := []byte("secret")
	s := newTestServer(t, config.EnvironmentProduction, withPolicy(auth.NewBearerJWT(secret, "", "")))

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(secret)
	require.NoError(t, err)

	rec := do(s, http.MethodGet, "/api/info", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))

	rec = do(s, http.MethodGet, "/api/info", map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusOK, rec.Code)

	var info controllers.ServiceInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "webapp", info.Name)
	assert.Equal(t, "Production", info.Environment)

	// Probes and metrics stay anonymous, unknown routes still 404.
	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, PathHealthLive, nil).Code)
	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, PathMetrics, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(s, http.MethodGet, "/nope", nil).Code)
}

type secretOutput struct {
	Body string
}

type pathController struct {
	paths []string
}

func (p pathController) RegisterRoutes(api huma.API) {
	for i, path := range p.paths {
		huma.Register(api, huma.Operation{
			OperationID: fmt.Sprintf("get-secret-%d", i),
			Method:      http.MethodGet,
			Path:        path,
		}, func(ctx context.Context, _ *struct{}) (*secretOutput, error) {
			return &secretOutput{Body: "secret"}, nil
		})
	}
}

func TestAuthorization_DocsRoutesDoNotShadowControllers(t *testing.T) {
	s := newTestServer(t, config.EnvironmentDevelopment, withPolicy(auth.NewBearerJWT([]byte("secret"), "", "")))
	s.MapControllers(pathController{paths: []string{"/docsets", "/openapi-admin", "/schemasx"}})

	for _, path := range []string{"/docsets", "/openapi-admin", "/schemasx"} {
		rec := do(s, http.MethodGet, path, overTLS)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.NotContains(t, rec.Body.String(), "secret", path)
	}

	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/openapi.json", overTLS).Code)
	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/docs", overTLS).Code)
}

func TestNewServer_Defaults(t *testing.T) {
	s := NewServer(&Config{Environment: config.EnvironmentProduction})

	rec := do(s, http.MethodGet, PathHealth, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report HealthReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "Healthy", report.Status)
	assert.Empty(t, report.Entries)
}

func TestAuthorization_Forbidden(t *testing.T) {
	policy := auth.PolicyFunc(func(*http.Request) error {
		return fmt.Errorf("%w: missing role", auth.ErrForbidden)
	})
	s := newTestServer(t, config.EnvironmentProduction, withPolicy(policy))

	rec := do(s, http.MethodGet, "/api/info", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, config.EnvironmentProduction)

	do(s, http.MethodGet, PathHealth, nil)

	rec := do(s, http.MethodGet, PathMetrics, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestListen_PortInUse(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer occupied.Close()

	port := occupied.Addr().(*net.TCPAddr).Port
	s := newTestServer(t, config.EnvironmentProduction)
	s.server.Addr = fmt.Sprintf("127.0.0.1:%d", port)

	err = s.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
}

func TestListen_BadKeyPair(t *testing.T) {
	s := newTestServer(t, config.EnvironmentProduction, func(cfg *Config) {
		cfg.TLS = config.TLSConfig{CertFile: "missing.crt", KeyFile: "missing.key"}
		cfg.HTTPSPort = 0
	})

	err := s.Listen()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TLS key pair")
}

func TestServeAndShutdown(t *testing.T) {
	s := newTestServer(t, config.EnvironmentProduction)
	s.server.Addr = "127.0.0.1:0"
	require.NoError(t, s.Listen())

	served := make(chan error, 1)
	go func() { served <- s.Serve() }()

	resp, err := http.Get("http://" + s.Addr() + PathHealth)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after Shutdown")
	}
}

func TestServe_NotListening(t *testing.T) {
	s := newTestServer(t, config.EnvironmentProduction)
	assert.Error(t, s.Serve())
}
