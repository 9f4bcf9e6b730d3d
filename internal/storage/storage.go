package storage

import (
	"errors"
	"fmt"
	"io"

	"taskhub/internal/domain"
)

var (
	ErrUnknownDisk  = errors.New("unknown storage disk")
	ErrBlobNotFound = errors.New("blob not found in storage")
)

// Disk is one logical blob store addressed by relative paths.
type Disk interface {
	Exists(path string) bool
	Write(path string, r io.Reader) (int64, error)
	Open(path string) (io.ReadCloser, error)
	Delete(path string) error
	Size(path string) (int64, error)
	// URL returns a directly addressable URL for the blob, or "" when
	// the disk requires an authenticated download indirection.
	URL(path string) string
}

// Store routes blob operations to named disks. Two are expected:
// "public" (URL-addressable) and "private" (download endpoint only).
type Store struct {
	disks map[domain.DiskName]Disk
}

func NewStore() *Store {
	return &Store{disks: make(map[domain.DiskName]Disk)}
}

func (s *Store) Mount(name domain.DiskName, d Disk) {
	s.disks[name] = d
}

func (s *Store) Disk(name domain.DiskName) (Disk, error) {
	d, ok := s.disks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDisk, name)
	}
	return d, nil
}
