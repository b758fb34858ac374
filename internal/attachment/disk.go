package attachment

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rpggio/teamwork/internal/domain/shared"
)

var knownExtensions = map[string]string{
	"image/jpeg":      ".jpeg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// DiskStore keeps blobs as flat files under one directory.
type DiskStore struct {
	root *os.Root
	dir  string
}

// NewDiskStore opens (creating if needed) the blob directory.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating attachment dir: %w", err)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("opening attachment dir: %w", err)
	}
	return &DiskStore{root: root, dir: dir}, nil
}

// Close releases the directory handle.
func (s *DiskStore) Close() error {
	return s.root.Close()
}

// Put writes data to a fresh handle. The write goes to a temporary name first
// so readers never observe a partial blob.
func (s *DiskStore) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	handle := uuid.NewString() + extensionFor(contentType)
	tmp := "." + handle + ".tmp"

	f, err := s.root.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", shared.Detail(ErrStoreFailed, "%v", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = s.root.Remove(tmp)
		return "", shared.Detail(ErrStoreFailed, "%v", err)
	}
	if err := f.Close(); err != nil {
		_ = s.root.Remove(tmp)
		return "", shared.Detail(ErrStoreFailed, "%v", err)
	}
	if err := s.root.Rename(tmp, handle); err != nil {
		_ = s.root.Remove(tmp)
		return "", shared.Detail(ErrStoreFailed, "%v", err)
	}
	return handle, nil
}

// Delete removes the blob named by handle.
func (s *DiskStore) Delete(ctx context.Context, handle string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !validHandle(handle) {
		return shared.Detail(ErrInvalidHandle, "%q", handle)
	}
	if err := s.root.Remove(handle); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return shared.Detail(ErrBlobNotFound, "%s", handle)
		}
		return shared.Detail(ErrStoreFailed, "%v", err)
	}
	return nil
}

// Path returns the on-disk location of handle.
func (s *DiskStore) Path(handle string) (string, error) {
	if !validHandle(handle) {
		return "", shared.Detail(ErrInvalidHandle, "%q", handle)
	}
	return filepath.Join(s.dir, handle), nil
}

func validHandle(handle string) bool {
	if handle == "" || handle == "." || handle == ".." || strings.HasPrefix(handle, ".") {
		return false
	}
	return !strings.ContainsAny(handle, `/\`) && filepath.Base(handle) == handle
}

func extensionFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	if ext, ok := knownExtensions[mediaType]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}
