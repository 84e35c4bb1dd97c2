// Package config provides configuration management for the web application host.
//
// Configuration is loaded from environment variables using the env package.
// All configuration values have sensible defaults; the deployment environment
// defaults to Production so that development-only surfaces stay disabled unless
// explicitly requested.
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if cfg.Environment.IsDevelopment() {
//	    fmt.Printf("OpenAPI docs served on %s\n", cfg.GetHTTPAddr())
//	}
package config
