// Package http provides the HTTP host of the service.
//
// The server exposes:
//   - Health probes on /health, /health/ready and /health/live
//   - Prometheus metrics on /metrics
//   - The OpenAPI document and docs UI, in Development only
//   - Routes contributed by controllers through MapControllers
//
// Outside Production, plain HTTP requests are redirected to HTTPS. Every
// matched, non-anonymous route passes the configured authorization policy.
package http
