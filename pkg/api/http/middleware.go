package http

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aescanero/webapp/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	headerRequestID      = "X-Request-ID"
	headerForwardedProto = "X-Forwarded-Proto"
	contextRequestID     = "request_id"
)

// requestID reuses an inbound request id or assigns a new one
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(contextRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// requestLogger is a middleware for request logging
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		duration := time.Since(start)

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", duration),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", c.GetString(contextRequestID)))
	}
}

// MetricsRecorder records handled requests
type MetricsRecorder interface {
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
}

func requestMetrics(recorder MetricsRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		recorder.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// isHTTPS reports whether the client reached us over TLS, directly or through
// a proxy that terminated it.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get(headerForwardedProto), "https")
}

// httpsRedirect sends plain HTTP requests to the HTTPS origin with a
// temporary redirect, keeping method and body. Requests without a Host have
// no redirect target and are served as is.
func httpsRedirect(port int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isHTTPS(c.Request) || c.Request.Host == "" {
			c.Next()
			return
		}

		target := *c.Request.URL
		target.Scheme = "https"
		target.Host = httpsHost(c.Request.Host, port)

		c.Redirect(http.StatusTemporaryRedirect, target.String())
		c.Abort()
	}
}

func httpsHost(host string, port int) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	} else {
		host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	}
	if port == 443 {
		if strings.Contains(host, ":") {
			return "[" + host + "]"
		}
		return host
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// authorization runs policy for every matched route that is not anonymous.
// Unmatched requests fall through to the not-found handler.
func authorization(policy auth.Policy, anonymous func(route string) bool, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" || anonymous(route) {
			c.Next()
			return
		}

		err := policy.Authorize(c.Request)
		if err == nil {
			c.Next()
			return
		}

		logger.Debug("request not authorized",
			zap.String("route", route),
			zap.String("request_id", c.GetString(contextRequestID)),
			zap.Error(err))

		if errors.Is(err, auth.ErrForbidden) {
			abortWithError(c, http.StatusForbidden, "FORBIDDEN", "Access to this resource is forbidden")
			return
		}
		c.Header("WWW-Authenticate", "Bearer")
		abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Valid credentials are required")
	}
}

// CORS middleware
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
