// Package controllers holds the API controllers mapped onto the HTTP server.
package controllers
