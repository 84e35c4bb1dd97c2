package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aescanero/webapp/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrUnauthenticated means the request carries no usable credentials.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden means the credentials are valid but not sufficient.
	ErrForbidden = errors.New("forbidden")
)

// Policy decides whether a request may reach its handler
type Policy interface {
	Authorize(r *http.Request) error
}

// PolicyFunc adapts a function to the Policy interface
type PolicyFunc func(r *http.Request) error

// Authorize calls f(r)
func (f PolicyFunc) Authorize(r *http.Request) error {
	return f(r)
}

// AllowAll admits every request
func AllowAll() Policy {
	return PolicyFunc(func(*http.Request) error { return nil })
}

// BearerJWT validates HS256 bearer tokens
type BearerJWT struct {
	secret []byte
	parser *jwt.Parser
}

// NewBearerJWT creates a policy accepting tokens signed with secret. Empty
// issuer or audience are not checked.
func NewBearerJWT(secret []byte, issuer, audience string) *BearerJWT {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}

	return &BearerJWT{
		secret: secret,
		parser: jwt.NewParser(opts...),
	}
}

// Authorize checks the Authorization header
func (p *BearerJWT) Authorize(r *http.Request) error {
	header := r.Header.Get("Authorization")
	if header == "" {
		return fmt.Errorf("%w: missing bearer token", ErrUnauthenticated)
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return fmt.Errorf("%w: malformed authorization header", ErrUnauthenticated)
	}

	_, err := p.parser.Parse(strings.TrimSpace(token), func(*jwt.Token) (interface{}, error) {
		return p.secret, nil
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrTokenInvalidAudience), errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return fmt.Errorf("%w: %v", ErrForbidden, err)
	default:
		return fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
}

// FromConfig selects the policy for the given configuration
func FromConfig(cfg config.AuthConfig) Policy {
	if cfg.JWTSecret == "" {
		return AllowAll()
	}
	return NewBearerJWT([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.JWTAudience)
}
