// Package health implements the health checks behind the orchestrator probes.
//
// A Registry holds named checks and evaluates all of them concurrently, each
// bounded by a timeout, folding the results into a Report whose status is the
// worst individual status. The Monitor re-evaluates the registry on a fixed
// interval in the background, logs the outcome and records metrics.
package health
