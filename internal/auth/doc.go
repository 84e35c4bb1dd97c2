// Package auth provides the authorization policies applied by the HTTP
// middleware before requests reach route handlers.
//
// AllowAll admits every request and is the default. BearerJWT admits
// requests carrying a valid HS256-signed bearer token.
package auth
