//go:build unix

package arena

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Map returns an anonymous page-aligned mapping of at least size bytes
// and a release function that unmaps it. Mapped arenas live outside the
// Go heap: the garbage collector never touches them, so a heap image
// survives for exactly as long as the caller keeps the mapping.
func Map(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("arena: invalid mapping size %d", size)
	}
	data, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, nil, fmt.Errorf("arena: mmap: %w", err)
	}
	release := func() error {
		if data == nil {
			return nil
		}
		err := unix.Munmap(data)
		data = nil
		return err
	}
	return data[:size], release, nil
}
