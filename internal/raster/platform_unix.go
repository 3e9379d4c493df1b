//go:build unix

package raster

import (
	"fmt"
	"syscall"
)

// mmapFile maps a file read-only for the lifetime of the returned slice.
// The descriptor itself isn't needed afterward — the mapping stays valid
// once the fd is closed.
func mmapFile(fd uintptr, size int) ([]byte, error) {
	data, err := syscall.Mmap(int(fd), 0, size, syscall.PROT_READ, syscall.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmap: %w", err)
	}
	return data, nil
}

// munmapFile releases a mapping returned by mmapFile.
func munmapFile(data []byte) error {
	return syscall.Munmap(data)
}
