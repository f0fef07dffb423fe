//go:build linux

package numa

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// get_mempolicy(2) flags
const (
	mpolFNode = 1 << 0
	mpolFAddr = 1 << 1
)

// getcpu returns the CPU and node the calling thread is running on.
func getcpu() (cpu, node uint32, err error) {
	_, _, errno := unix.RawSyscall(unix.SYS_GETCPU,
		uintptr(unsafe.Pointer(&cpu)),
		uintptr(unsafe.Pointer(&node)),
		0)
	if errno != 0 {
		return 0, 0, fmt.Errorf("getcpu: %w", errno)
	}
	return cpu, node, nil
}

// memoryNode asks the kernel which node holds the page containing addr.
func memoryNode(addr uintptr) (uint32, error) {
	var node int32
	_, _, errno := unix.Syscall6(unix.SYS_GET_MEMPOLICY,
		uintptr(unsafe.Pointer(&node)),
		0,
		0,
		addr,
		mpolFNode|mpolFAddr,
		0)
	if errno != 0 {
		if errors.Is(errno, unix.EFAULT) {
			return InvalidNode, fmt.Errorf("%w: %#x", ErrAddressNotMapped, addr)
		}
		if errors.Is(errno, unix.ENOSYS) {
			return InvalidNode, fmt.Errorf("%w: get_mempolicy: %w", ErrUnsupported, errno)
		}
		return InvalidNode, fmt.Errorf("get_mempolicy: %w", errno)
	}
	if node < 0 {
		return InvalidNode, fmt.Errorf("get_mempolicy returned node %d", node)
	}
	return uint32(node), nil
}
