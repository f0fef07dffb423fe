//go:build !linux

package numa

func getcpu() (cpu, node uint32, err error) {
	return 0, 0, ErrUnsupported
}

func memoryNode(_ uintptr) (uint32, error) {
	return InvalidNode, ErrUnsupported
}
