package numa

import (
	"bytes"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/23skdu/numatopo/internal/errors"
	"github.com/23skdu/numatopo/internal/metrics"
)

// fakePlatform answers platform queries from fixed values
type fakePlatform struct {
	count        uint32
	countErr     error
	cpus         map[uint32][]int
	cpu          int
	cpuErr       error
	node         uint32
	nodeErr      error
	memNode      uint32
	memErr       error
	countQueries int
}

func (p *fakePlatform) NodeCount() (uint32, error) {
	p.countQueries++
	return p.count, p.countErr
}

func (p *fakePlatform) NodeCPUs(node uint32) ([]int, error) {
	return p.cpus[node], nil
}

func (p *fakePlatform) CurrentCPU() (int, error) { return p.cpu, p.cpuErr }

func (p *fakePlatform) CurrentNode() (uint32, error) { return p.node, p.nodeErr }

func (p *fakePlatform) MemoryNode(_ uintptr) (uint32, error) { return p.memNode, p.memErr }

func twoNodePlatform() *fakePlatform {
	return &fakePlatform{
		count: 2,
		cpus: map[uint32][]int{
			0: {0, 1, 2, 3},
			1: {4, 5, 6, 7},
		},
	}
}

func TestInitialize_DisabledByConfig(t *testing.T) {
	platform := twoNodePlatform()
	topo := Initialize(Config{Enabled: false}, platform, zerolog.Nop())

	assert.False(t, topo.IsEnabled())
	assert.False(t, topo.IsFaked())
	assert.Equal(t, uint32(1), topo.Count())
	assert.Equal(t, "Disabled", topo.String())
	assert.Equal(t, 0, platform.countQueries)

	assert.Equal(t, uint32(0), topo.ID())
	node, err := topo.MemoryID(0xdeadbeef)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), node)
}

func TestInitialize_Enabled(t *testing.T) {
	platform := twoNodePlatform()
	platform.node = 1
	platform.memNode = 1

	topo := Initialize(DefaultConfig(), platform, zerolog.Nop())

	assert.True(t, topo.IsEnabled())
	assert.False(t, topo.IsFaked())
	assert.Equal(t, uint32(2), topo.Count())
	assert.Equal(t, "Enabled", topo.String())
	assert.Equal(t, uint32(1), topo.ID())

	node, err := topo.MemoryID(0x1000)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), node)

	assert.Equal(t, []int{4, 5, 6, 7}, topo.NodeCPUs(1))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.NUMANodes))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.NUMAEnabled))
	assert.Equal(t, float64(4), testutil.ToFloat64(metrics.NUMANodeCPUs.WithLabelValues("1")))
}

func TestInitialize_DiscoveryFailureDegrades(t *testing.T) {
	before := testutil.ToFloat64(metrics.NUMADiscoveryFailuresTotal)
	platform := &fakePlatform{countErr: ErrUnsupported}

	var buf bytes.Buffer
	topo := Initialize(DefaultConfig(), platform, zerolog.New(&buf))

	assert.False(t, topo.IsEnabled())
	assert.Equal(t, uint32(1), topo.Count())
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.NUMADiscoveryFailuresTotal))
	assert.Contains(t, buf.String(), "NUMA discovery failed")
	assert.Contains(t, buf.String(), "NUMA Support: Disabled")
	assert.NotContains(t, buf.String(), "NUMA Nodes")
}

func TestInitialize_SingleNodeDisables(t *testing.T) {
	topo := Initialize(DefaultConfig(), &fakePlatform{count: 1}, zerolog.Nop())

	assert.False(t, topo.IsEnabled())
	assert.Equal(t, uint32(1), topo.Count())
}

func TestInitialize_InvalidConfigDegrades(t *testing.T) {
	topo := Initialize(Config{Enabled: true, FakeNodes: MaxNodes + 1}, twoNodePlatform(), zerolog.Nop())

	assert.False(t, topo.IsEnabled())
	assert.False(t, topo.IsFaked())
	assert.Equal(t, uint32(1), topo.Count())
}

func TestInitialize_LogsStartupLines(t *testing.T) {
	var buf bytes.Buffer
	Initialize(DefaultConfig(), twoNodePlatform(), zerolog.New(&buf))

	assert.Contains(t, buf.String(), "NUMA Support: Enabled")
	assert.Contains(t, buf.String(), "NUMA Nodes: 2")
}

func TestInitialize_Faked(t *testing.T) {
	platform := &fakePlatform{countErr: ErrUnsupported, cpu: 6}
	topo := Initialize(Config{Enabled: false, FakeNodes: 4}, platform, zerolog.Nop())

	assert.True(t, topo.IsEnabled())
	assert.True(t, topo.IsFaked())
	assert.Equal(t, uint32(4), topo.Count())
	assert.Equal(t, "Faked", topo.String())
	assert.Equal(t, 0, platform.countQueries)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.NUMAFaked))

	// cpu 6 on 4 faked nodes
	assert.Equal(t, uint32(2), topo.ID())

	for granule := uint64(0); granule < 8; granule++ {
		node, err := topo.MemoryID(uintptr(granule*DefaultGranule + 123))
		require.NoError(t, err)
		assert.Equal(t, uint32(granule%4), node)
	}
}

func TestFaked_IDWithoutCPU(t *testing.T) {
	platform := &fakePlatform{cpuErr: ErrUnsupported}
	topo := Initialize(Config{FakeNodes: 3}, platform, zerolog.Nop())

	assert.Equal(t, uint32(0), topo.ID())
}

func TestID_PlatformFailures(t *testing.T) {
	platform := twoNodePlatform()
	topo := Initialize(DefaultConfig(), platform, zerolog.Nop())

	platform.nodeErr = errors.New("getcpu failed")
	assert.Equal(t, uint32(0), topo.ID())

	platform.nodeErr = nil
	platform.node = 7
	assert.Equal(t, uint32(0), topo.ID(), "out of range node must not escape")
}

func TestMemoryID_Errors(t *testing.T) {
	platform := twoNodePlatform()
	topo := Initialize(DefaultConfig(), platform, zerolog.Nop())
	before := testutil.ToFloat64(metrics.NUMAMemoryQueryErrorsTotal)

	platform.memErr = ErrAddressNotMapped
	node, err := topo.MemoryID(0x10)
	require.Error(t, err)
	assert.Equal(t, InvalidNode, node)
	assert.True(t, errors.Is(err, ErrAddressNotMapped))

	var se *errs.StructuredError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, errs.ErrorTypePlatform, se.Type)
	assert.Equal(t, "0x10", se.Context["addr"])

	platform.memErr = nil
	platform.memNode = 5
	node, err = topo.MemoryID(0x10)
	require.Error(t, err)
	assert.Equal(t, InvalidNode, node)
	require.True(t, errors.As(err, &se))
	assert.Equal(t, errs.ErrorTypeContract, se.Type)

	assert.Equal(t, before+2, testutil.ToFloat64(metrics.NUMAMemoryQueryErrorsTotal))
}

func TestNodeCPUs_ReturnsCopy(t *testing.T) {
	topo := Initialize(DefaultConfig(), twoNodePlatform(), zerolog.Nop())

	cpus := topo.NodeCPUs(0)
	cpus[0] = 99
	assert.Equal(t, []int{0, 1, 2, 3}, topo.NodeCPUs(0))
}

func TestDescribe(t *testing.T) {
	topo := Initialize(DefaultConfig(), twoNodePlatform(), zerolog.Nop())
	desc := topo.Describe()

	assert.Contains(t, desc, "NUMA support: Enabled")
	assert.Contains(t, desc, "NUMA nodes: 2")
	assert.Contains(t, desc, "Node 0: CPUs 0-3")
	assert.Contains(t, desc, "Node 1: CPUs 4-7")

	disabled := Initialize(Config{}, nil, zerolog.Nop())
	assert.Contains(t, disabled.Describe(), "Node 0: CPUs unknown")
}

func TestFakeNodeCPUs(t *testing.T) {
	nodeCPUs := fakeNodeCPUs(3, 8)

	assert.Equal(t, []int{0, 3, 6}, nodeCPUs[0])
	assert.Equal(t, []int{1, 4, 7}, nodeCPUs[1])
	assert.Equal(t, []int{2, 5}, nodeCPUs[2])
}

func TestFormatList(t *testing.T) {
	assert.Equal(t, "0-3", formatList([]int{0, 1, 2, 3}))
	assert.Equal(t, "0,2,4-6,9", formatList([]int{0, 2, 4, 5, 6, 9}))
	assert.Equal(t, "", formatList(nil))
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.NoError(t, Config{Enabled: false}.Validate())
	assert.NoError(t, Config{FakeNodes: MaxNodes}.Validate())

	err := Config{FakeNodes: MaxNodes + 1}.Validate()
	var se *errs.StructuredError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, errs.ErrorTypeConfiguration, se.Type)

	assert.Error(t, Config{Enabled: true, SysfsRoot: ""}.Validate())
}

func TestConfigIsFaked(t *testing.T) {
	assert.False(t, Config{FakeNodes: 0}.IsFaked())
	assert.False(t, Config{FakeNodes: 1}.IsFaked())
	assert.True(t, Config{FakeNodes: 2}.IsFaked())
}
