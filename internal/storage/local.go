package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalDisk stores blobs under a root directory on the local filesystem.
type LocalDisk struct {
	root    string
	baseURL string // empty for private disks
}

func NewLocalDisk(root, baseURL string) *LocalDisk {
	return &LocalDisk{root: root, baseURL: baseURL}
}

func (d *LocalDisk) abs(path string) string {
	return filepath.Join(d.root, filepath.FromSlash(path))
}

func (d *LocalDisk) Exists(path string) bool {
	info, err := os.Stat(d.abs(path))
	return err == nil && !info.IsDir()
}

func (d *LocalDisk) Write(path string, r io.Reader) (int64, error) {
	abs := d.abs(path)
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return 0, err
	}

	dst, err := os.Create(abs)
	if err != nil {
		return 0, err
	}
	defer dst.Close()

	n, err := io.Copy(dst, r)
	if err != nil {
		_ = os.Remove(abs)
		return 0, err
	}
	return n, nil
}

func (d *LocalDisk) Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(d.abs(path))
	if os.IsNotExist(err) {
		return nil, ErrBlobNotFound
	}
	return f, err
}

func (d *LocalDisk) Delete(path string) error {
	err := os.Remove(d.abs(path))
	if os.IsNotExist(err) {
		return ErrBlobNotFound
	}
	return err
}

func (d *LocalDisk) Size(path string) (int64, error) {
	info, err := os.Stat(d.abs(path))
	if os.IsNotExist(err) {
		return 0, ErrBlobNotFound
	}
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (d *LocalDisk) URL(path string) string {
	if d.baseURL == "" {
		return ""
	}
	return strings.TrimSuffix(d.baseURL, "/") + "/" + filepath.ToSlash(path)
}
