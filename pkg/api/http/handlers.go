package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aescanero/webapp/internal/application/health"
	"github.com/danielgtaylor/huma/v2"
	"github.com/gin-gonic/gin"
)

// Health probe paths
const (
	PathHealth      = "/health"
	PathHealthReady = "/health/ready"
	PathHealthLive  = "/health/live"
	PathMetrics     = "/metrics"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// handleNotFound handles requests that match no route
func (s *Server) handleNotFound(c *gin.Context) {
	abortWithError(c, http.StatusNotFound, "NOT_FOUND", "No route matches "+c.Request.Method+" "+c.Request.URL.Path)
}

// HealthEntry is the outcome of one check
type HealthEntry struct {
	Status      string `json:"status" enum:"Healthy,Degraded,Unhealthy" doc:"Check status"`
	Description string `json:"description,omitempty" doc:"Human readable detail"`
	Duration    string `json:"duration" doc:"Time spent in the check" example:"1.2ms"`
	Error       string `json:"error,omitempty" doc:"Failure reason"`
}

// HealthReport is the body of every health probe response
type HealthReport struct {
	Status        string                 `json:"status" enum:"Healthy,Degraded,Unhealthy" doc:"Aggregate status"`
	TotalDuration string                 `json:"totalDuration" doc:"Time spent evaluating all checks"`
	Entries       map[string]HealthEntry `json:"entries" doc:"Per-check results"`
	Timestamp     time.Time              `json:"timestamp" doc:"Evaluation start time"`
}

// HealthOutput wraps the health report for huma
type HealthOutput struct {
	Status       int
	CacheControl string `header:"Cache-Control"`
	Body         HealthReport
}

// registerHealth registers the three probe routes. They evaluate the same
// registry; orchestrators decide what a failure means per probe.
func (s *Server) registerHealth() {
	probes := []struct {
		id, path, summary string
	}{
		{"get-health", PathHealth, "Health check"},
		{"get-health-ready", PathHealthReady, "Readiness probe"},
		{"get-health-live", PathHealthLive, "Liveness probe"},
	}

	for _, p := range probes {
		huma.Register(s.api, huma.Operation{
			OperationID: p.id,
			Method:      http.MethodGet,
			Path:        p.path,
			Summary:     p.summary,
			Description: "Evaluates the registered health checks. Responds 503 when any check is unhealthy.",
			Tags:        []string{"Health"},
			Errors:      []int{http.StatusServiceUnavailable},
		}, s.handleHealth)
		s.anonymous[p.path] = true
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	report := s.health.Run(ctx)

	status := http.StatusOK
	if report.Status == health.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}

	return &HealthOutput{
		Status:       status,
		CacheControl: "no-store",
		Body:         toHealthReport(report),
	}, nil
}

func toHealthReport(report *health.Report) HealthReport {
	entries := make(map[string]HealthEntry, len(report.Entries))
	for name, e := range report.Entries {
		entries[name] = HealthEntry{
			Status:      e.Status.String(),
			Description: e.Description,
			Duration:    e.Duration.String(),
			Error:       e.Error,
		}
	}

	return HealthReport{
		Status:        report.Status.String(),
		TotalDuration: report.TotalDuration.String(),
		Entries:       entries,
		Timestamp:     report.Timestamp.UTC(),
	}
}
