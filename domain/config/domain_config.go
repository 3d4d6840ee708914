package config

import "time"

// DomainConfig holds all configurable business rules and constraints
type DomainConfig struct {
	// Graph constraints
	MaxNodesPerGraph int
	MaxEdgesPerGraph int

	// Projection settings
	EdgeIDSeparator           string
	DisambiguateParallelEdges bool

	// Field key settings
	FieldKeySeparator string
	MaxFieldsPerNode  int

	// Session constraints
	MaxMappingsPerSession int
	SessionTimeout        time.Duration
	GraphCacheTTL         time.Duration
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		// Graph constraints
		MaxNodesPerGraph: 10000,
		MaxEdgesPerGraph: 50000,

		// Edge ids keep the "source-target" shape the canvas keys on.
		EdgeIDSeparator:           "-",
		DisambiguateParallelEdges: false,

		FieldKeySeparator: "-",
		MaxFieldsPerNode:  500,

		MaxMappingsPerSession: 10000,
		SessionTimeout:        2 * time.Hour,
		GraphCacheTTL:         5 * time.Minute,
	}
}

// Validate checks that the configuration is usable
func (c *DomainConfig) Validate() error {
	if c.EdgeIDSeparator == "" {
		return errInvalid("EdgeIDSeparator must not be empty")
	}
	if c.FieldKeySeparator == "" {
		return errInvalid("FieldKeySeparator must not be empty")
	}
	if c.MaxNodesPerGraph <= 0 || c.MaxEdgesPerGraph <= 0 {
		return errInvalid("graph limits must be positive")
	}
	if c.MaxMappingsPerSession <= 0 {
		return errInvalid("MaxMappingsPerSession must be positive")
	}
	return nil
}

type configError string

func (e configError) Error() string { return "domain config: " + string(e) }

func errInvalid(msg string) error { return configError(msg) }
