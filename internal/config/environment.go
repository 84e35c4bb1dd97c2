package config

import "strings"

// Environment is the deployment mode the process runs in.
type Environment string

// Well-known environments. Any other value is accepted and behaves like
// neither Development nor Production.
const (
	EnvironmentDevelopment Environment = "Development"
	EnvironmentStaging     Environment = "Staging"
	EnvironmentProduction  Environment = "Production"
)

// Is reports whether e names the same environment as other, ignoring case.
func (e Environment) Is(other Environment) bool {
	return strings.EqualFold(strings.TrimSpace(string(e)), string(other))
}

// IsDevelopment reports whether the process runs in Development.
func (e Environment) IsDevelopment() bool {
	return e.Is(EnvironmentDevelopment)
}

// IsProduction reports whether the process runs in Production.
func (e Environment) IsProduction() bool {
	return e.Is(EnvironmentProduction)
}

func (e Environment) String() string {
	return string(e)
}
