// Package grpc serves the standard gRPC health checking protocol so that
// orchestrators can probe the service over gRPC as well as HTTP.
package grpc
