// Package health provides dependency checks for the health registry.
//
// Implementations:
//   - redis: PING against a go-redis client
package health
