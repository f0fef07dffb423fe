package numa

import (
	errs "github.com/23skdu/numatopo/internal/errors"
)

const (
	// DefaultGranule is the heap allocation granularity shares are aligned to.
	DefaultGranule uint64 = 2 << 20

	// MaxNodes bounds the node count, matching the kernel's MAX_NUMNODES.
	MaxNodes = 1024

	// InvalidNode is returned alongside an error when no node can be reported.
	InvalidNode = ^uint32(0)

	// DefaultSysfsRoot is where the kernel exposes the node hierarchy.
	DefaultSysfsRoot = "/sys"
)

// Config controls topology discovery
type Config struct {
	// Enabled requests NUMA-aware placement. Discovery may still disable it.
	Enabled bool `envconfig:"ENABLED" default:"true"`
	// FakeNodes forces a synthetic topology with this many nodes when > 1.
	FakeNodes uint32 `envconfig:"FAKE_NODES" default:"0"`
	// SysfsRoot is the sysfs mount point used for discovery.
	SysfsRoot string `envconfig:"SYSFS_ROOT" default:"/sys"`
}

// DefaultConfig returns a Config that discovers the real topology
func DefaultConfig() Config {
	return Config{
		Enabled:   true,
		FakeNodes: 0,
		SysfsRoot: DefaultSysfsRoot,
	}
}

// IsFaked reports whether this configuration overrides the node count
func (c Config) IsFaked() bool {
	return c.FakeNodes > 1
}

// Validate checks the configuration for errors
func (c Config) Validate() error {
	if c.FakeNodes > MaxNodes {
		return errs.NewConfigurationError("validate", "fake node count exceeds maximum").
			WithContext("fake_nodes", c.FakeNodes).
			WithContext("max_nodes", MaxNodes)
	}
	if !c.IsFaked() && c.Enabled && c.SysfsRoot == "" {
		return errs.NewConfigurationError("validate", "sysfs root cannot be empty")
	}
	return nil
}
