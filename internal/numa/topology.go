// Package numa discovers the NUMA topology of the machine and splits heap
// sizes into per-node shares.
//
// A Topology is built once by Initialize during startup and is immutable
// afterwards, so it can be shared by any number of goroutines without
// locking.
package numa

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	errs "github.com/23skdu/numatopo/internal/errors"
	"github.com/23skdu/numatopo/internal/metrics"
)

// Topology is the discovered (or faked) NUMA layout of the process.
type Topology struct {
	enabled  bool
	faked    bool
	count    uint32
	nodeCPUs [][]int
	platform Platform
}

// Initialize performs the one-time topology discovery. A nil platform uses
// sysfs under cfg.SysfsRoot. Discovery failures never surface as errors;
// they leave a disabled single-node topology behind.
func Initialize(cfg Config, platform Platform, logger zerolog.Logger) *Topology {
	if platform == nil {
		platform = NewSysfsPlatform(cfg.SysfsRoot)
	}

	t := &Topology{
		count:    1,
		platform: platform,
	}

	err := cfg.Validate()
	switch {
	case err != nil:
		logger.Warn().Err(err).Msg("Invalid NUMA configuration, disabling NUMA support")
		metrics.NUMADiscoveryFailuresTotal.Inc()
	case cfg.IsFaked():
		t.enabled = true
		t.faked = true
		t.count = cfg.FakeNodes
		t.nodeCPUs = fakeNodeCPUs(t.count, runtime.NumCPU())
	case !cfg.Enabled:
		// disabled by configuration
	default:
		t.discover(logger)
	}

	logger.Info().Str("support", t.String()).Msgf("NUMA Support: %s", t.String())
	if t.enabled {
		logger.Info().Uint32("nodes", t.count).Msgf("NUMA Nodes: %d", t.count)
	}

	t.publish()
	return t
}

func (t *Topology) discover(logger zerolog.Logger) {
	count, err := t.platform.NodeCount()
	if err != nil {
		logger.Warn().
			Err(errs.WrapPlatformError(err, "initialize", "node discovery failed")).
			Msg("NUMA discovery failed, falling back to a single node")
		metrics.NUMADiscoveryFailuresTotal.Inc()
		return
	}
	if count <= 1 {
		logger.Debug().Uint32("nodes", count).Msg("Single NUMA node, NUMA support not needed")
		return
	}

	nodeCPUs := make([][]int, count)
	for node := uint32(0); node < count; node++ {
		cpus, err := t.platform.NodeCPUs(node)
		if err != nil {
			logger.Debug().Err(err).Uint32("node", node).Msg("Failed to read node CPUs")
			continue
		}
		nodeCPUs[node] = cpus
	}

	t.enabled = true
	t.count = count
	t.nodeCPUs = nodeCPUs
}

// fakeNodeCPUs spreads CPUs across faked nodes the same way ID maps them.
func fakeNodeCPUs(count uint32, numCPU int) [][]int {
	nodeCPUs := make([][]int, count)
	for cpu := 0; cpu < numCPU; cpu++ {
		node := uint32(cpu) % count //nolint:gosec // G115 - cpu is non-negative
		nodeCPUs[node] = append(nodeCPUs[node], cpu)
	}
	return nodeCPUs
}

func (t *Topology) publish() {
	metrics.NUMAEnabled.Set(boolToFloat(t.enabled))
	metrics.NUMAFaked.Set(boolToFloat(t.faked))
	metrics.NUMANodes.Set(float64(t.count))
	for node, cpus := range t.nodeCPUs {
		metrics.NUMANodeCPUs.WithLabelValues(strconv.Itoa(node)).Set(float64(len(cpus)))
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// IsEnabled returns whether NUMA-aware placement is active
func (t *Topology) IsEnabled() bool { return t.enabled }

// IsFaked returns whether the node count is a synthetic override
func (t *Topology) IsFaked() bool { return t.faked }

// Count returns the number of NUMA nodes. Never zero.
func (t *Topology) Count() uint32 { return t.count }

// ID returns the node of the CPU the calling goroutine currently runs on.
// The answer is advisory: the goroutine may migrate right after the call.
func (t *Topology) ID() uint32 {
	if t.faked {
		cpu, err := t.platform.CurrentCPU()
		if err != nil || cpu < 0 {
			return 0
		}
		return uint32(cpu) % t.count //nolint:gosec // G115 - cpu is non-negative
	}
	if !t.enabled {
		return 0
	}

	node, err := t.platform.CurrentNode()
	if err != nil || node >= t.count {
		return 0
	}
	return node
}

// MemoryID returns the node whose memory backs addr. addr must point into
// committed memory; otherwise InvalidNode and an error wrapping
// ErrAddressNotMapped are returned.
func (t *Topology) MemoryID(addr uintptr) (uint32, error) {
	if t.faked {
		// Consecutive granules rotate across the faked nodes.
		return uint32((uint64(addr) / DefaultGranule) % uint64(t.count)), nil //nolint:gosec // G115 - less than count
	}
	if !t.enabled {
		return 0, nil
	}

	node, err := t.platform.MemoryNode(addr)
	if err != nil {
		metrics.NUMAMemoryQueryErrorsTotal.Inc()
		return InvalidNode, errs.WrapPlatformError(err, "memory_id", "failed to query node backing address").
			WithContext("addr", fmt.Sprintf("%#x", addr))
	}
	if node >= t.count {
		metrics.NUMAMemoryQueryErrorsTotal.Inc()
		return InvalidNode, errs.NewContractError("memory_id", "platform reported node outside topology").
			WithContext("node", node).
			WithContext("count", t.count)
	}
	return node, nil
}

// NodeCPUs returns a copy of the CPUs attached to node
func (t *Topology) NodeCPUs(node uint32) []int {
	t.assertNode("node_cpus", node)
	if int(node) >= len(t.nodeCPUs) {
		return nil
	}
	cpus := make([]int, len(t.nodeCPUs[node]))
	copy(cpus, t.nodeCPUs[node])
	return cpus
}

// String returns "Faked", "Enabled" or "Disabled"
func (t *Topology) String() string {
	if t.faked {
		return "Faked"
	}
	if t.enabled {
		return "Enabled"
	}
	return "Disabled"
}

// Describe returns a multi-line human-readable description of the topology.
func (t *Topology) Describe() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("NUMA support: %s\n", t.String()))
	sb.WriteString(fmt.Sprintf("NUMA nodes: %d\n", t.count))
	for node := uint32(0); node < t.count; node++ {
		cpus := t.NodeCPUs(node)
		if len(cpus) == 0 {
			sb.WriteString(fmt.Sprintf("  Node %d: CPUs unknown\n", node))
			continue
		}
		sb.WriteString(fmt.Sprintf("  Node %d: CPUs %s\n", node, formatList(cpus)))
	}
	return sb.String()
}

// formatList renders sorted ids in the kernel list format.
func formatList(ids []int) string {
	var parts []string
	for i := 0; i < len(ids); {
		j := i
		for j+1 < len(ids) && ids[j+1] == ids[j]+1 {
			j++
		}
		if i == j {
			parts = append(parts, strconv.Itoa(ids[i]))
		} else {
			parts = append(parts, strconv.Itoa(ids[i])+"-"+strconv.Itoa(ids[j]))
		}
		i = j + 1
	}
	return strings.Join(parts, ",")
}

func (t *Topology) assertNode(op string, node uint32) {
	if debugChecks && node >= t.count {
		panic(errs.NewContractError(op, "node out of range").
			WithContext("node", node).
			WithContext("count", t.count))
	}
}
