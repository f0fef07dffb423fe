//go:build linux

package numa

import (
	"errors"
	"runtime"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetcpu(t *testing.T) {
	cpu, node, err := getcpu()
	if err != nil {
		t.Skipf("getcpu unavailable: %v", err)
	}

	assert.Less(t, int(cpu), runtime.NumCPU()*64)
	assert.Less(t, node, uint32(MaxNodes))
}

func TestMemoryNode_HeapAddress(t *testing.T) {
	buf := make([]byte, 1<<16)
	buf[0] = 1

	node, err := memoryNode(uintptr(unsafe.Pointer(&buf[0])))
	if err != nil && !errors.Is(err, ErrAddressNotMapped) {
		t.Skipf("get_mempolicy unavailable: %v", err)
	}
	require.NoError(t, err)
	assert.Less(t, node, uint32(MaxNodes))
	runtime.KeepAlive(buf)
}

func TestMemoryNode_UnmappedAddress(t *testing.T) {
	node, err := memoryNode(0)
	if err != nil && !errors.Is(err, ErrAddressNotMapped) {
		t.Skipf("get_mempolicy unavailable: %v", err)
	}

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAddressNotMapped))
	assert.Equal(t, InvalidNode, node)
}

func TestSysfsPlatform_LiveQueries(t *testing.T) {
	p := NewSysfsPlatform("")

	cpu, err := p.CurrentCPU()
	if err != nil {
		t.Skipf("getcpu unavailable: %v", err)
	}
	assert.GreaterOrEqual(t, cpu, 0)

	_, err = p.CurrentNode()
	assert.NoError(t, err)
}
