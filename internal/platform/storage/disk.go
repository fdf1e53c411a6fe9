// Package storage persists uploaded files on the local disk.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// ErrInvalidPath is returned for keys that escape the storage root.
var ErrInvalidPath = errors.New("storage: invalid path")

// Disk stores objects below a private root directory. Files are only served
// through handlers that authorize the owning record.
type Disk struct {
	root string
}

// NewDisk prepares the root directory.
func NewDisk(root string) (*Disk, error) {
	if root == "" {
		return nil, errors.New("storage: root directory required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return &Disk{root: root}, nil
}

func (d *Disk) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", ErrInvalidPath
	}
	return filepath.Join(d.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// Put writes r to key and returns the number of bytes stored.
func (d *Disk) Put(key string, r io.Reader) (int64, error) {
	full, err := d.resolve(key)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return 0, fmt.Errorf("storage: mkdir: %w", err)
	}
	f, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("storage: create temp: %w", err)
	}
	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return 0, fmt.Errorf("storage: write: %w", err)
	}
	if err := os.Rename(f.Name(), full); err != nil {
		_ = os.Remove(f.Name())
		return 0, fmt.Errorf("storage: rename: %w", err)
	}
	return n, nil
}

// Open returns a seekable reader for key.
func (d *Disk) Open(key string) (io.ReadSeekCloser, error) {
	full, err := d.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Delete removes key. Missing files are not an error.
func (d *Disk) Delete(key string) error {
	full, err := d.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: delete: %w", err)
	}
	return nil
}

// ThumbnailWidth is the width in pixels of generated image previews.
const ThumbnailWidth = 200

// PutThumbnail decodes an image and stores a JPEG preview at key.
func (d *Disk) PutThumbnail(key string, data []byte) error {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("storage: decode image: %w", err)
	}
	thumb := imaging.Resize(img, ThumbnailWidth, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return fmt.Errorf("storage: encode thumbnail: %w", err)
	}
	_, err = d.Put(key, &buf)
	return err
}
