package numa

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	// ErrUnsupported is returned when the platform cannot answer NUMA queries.
	ErrUnsupported = errors.New("NUMA queries not supported on this platform")
	// ErrAddressNotMapped is returned for addresses without committed memory.
	ErrAddressNotMapped = errors.New("address not backed by committed memory")
	// ErrNoNodes is returned when the node hierarchy lists no nodes.
	ErrNoNodes = errors.New("no NUMA nodes found")
)

// Platform answers the operating system side of topology queries.
type Platform interface {
	// NodeCount returns the number of nodes. Node ids are dense in [0, count).
	NodeCount() (uint32, error)
	// NodeCPUs returns the CPUs attached to a node.
	NodeCPUs(node uint32) ([]int, error)
	// CurrentCPU returns the CPU the calling thread runs on.
	CurrentCPU() (int, error)
	// CurrentNode returns the node of the CPU the calling thread runs on.
	CurrentNode() (uint32, error)
	// MemoryNode returns the node whose memory backs addr.
	MemoryNode(addr uintptr) (uint32, error)
}

// SysfsPlatform discovers nodes from the sysfs node hierarchy and answers
// live queries with getcpu(2) and get_mempolicy(2).
type SysfsPlatform struct {
	Root string
}

// NewSysfsPlatform creates a platform reading sysfs under root
func NewSysfsPlatform(root string) *SysfsPlatform {
	if root == "" {
		root = DefaultSysfsRoot
	}
	return &SysfsPlatform{Root: root}
}

func (p *SysfsPlatform) nodeDir() string {
	return filepath.Join(p.Root, "devices", "system", "node")
}

// NodeCount reads the online node list, falling back to the node<N>
// directories. The count is the highest node id plus one.
func (p *SysfsPlatform) NodeCount() (uint32, error) {
	base := p.nodeDir()
	if _, err := os.Stat(base); err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("%w: %s not found", ErrUnsupported, base)
		}
		return 0, err
	}

	ids, err := readListFile(filepath.Join(base, "online"))
	if err != nil {
		if !os.IsNotExist(err) {
			return 0, fmt.Errorf("failed to read online nodes: %w", err)
		}
		ids, err = listNodeDirs(base)
		if err != nil {
			return 0, fmt.Errorf("failed to list NUMA nodes: %w", err)
		}
	}
	if len(ids) == 0 {
		return 0, ErrNoNodes
	}

	highest := ids[len(ids)-1]
	if highest >= MaxNodes {
		return 0, fmt.Errorf("node id %d exceeds maximum %d", highest, MaxNodes)
	}
	return uint32(highest + 1), nil //nolint:gosec // G115 - bounded by MaxNodes
}

// NodeCPUs parses node<N>/cpulist. A missing file yields an empty list.
func (p *SysfsPlatform) NodeCPUs(node uint32) ([]int, error) {
	path := filepath.Join(p.nodeDir(), "node"+strconv.FormatUint(uint64(node), 10), "cpulist")
	cpus, err := readListFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []int{}, nil
		}
		return nil, err
	}
	return cpus, nil
}

// CurrentCPU returns the CPU the calling thread runs on
func (p *SysfsPlatform) CurrentCPU() (int, error) {
	cpu, _, err := getcpu()
	if err != nil {
		return -1, err
	}
	return int(cpu), nil
}

// CurrentNode returns the node of the CPU the calling thread runs on
func (p *SysfsPlatform) CurrentNode() (uint32, error) {
	_, node, err := getcpu()
	if err != nil {
		return InvalidNode, err
	}
	return node, nil
}

// MemoryNode returns the node whose memory backs addr
func (p *SysfsPlatform) MemoryNode(addr uintptr) (uint32, error) {
	return memoryNode(addr)
}

func listNodeDirs(base string) ([]int, error) {
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "node") {
			continue
		}
		id, err := strconv.Atoi(strings.TrimPrefix(entry.Name(), "node"))
		if err != nil || id < 0 {
			continue
		}
		ids = append(ids, id)
	}

	return sortDedupe(ids), nil
}
