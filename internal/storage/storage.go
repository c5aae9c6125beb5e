// Package storage keeps uploaded part images on an afero filesystem and maps
// them to public URLs.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"path"
	"strings"
	"time"

	"autoparts/internal/apperr"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const filePrefix = "image-"

// Allowed image types keyed by sniffed MIME type.
var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// LocalStore keeps images in a flat directory of an afero filesystem.
type LocalStore struct {
	fs         afero.Fs
	publicPath string
	maxBytes   int64
	log        *zap.Logger
	now        func() time.Time
}

// NewLocalStore returns a store writing to the root of fsys. Images are
// published under publicPath and limited to maxBytes.
func NewLocalStore(fsys afero.Fs, publicPath string, maxBytes int64, log *zap.Logger) *LocalStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &LocalStore{
		fs:         fsys,
		publicPath: "/" + strings.Trim(publicPath, "/"),
		maxBytes:   maxBytes,
		log:        log,
		now:        time.Now,
	}
}

// NewDiskFs returns an afero filesystem rooted at dir, creating dir if needed.
func NewDiskFs(dir string) (afero.Fs, error) {
	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", dir, err)
	}
	return afero.NewBasePathFs(osFs, dir), nil
}

// Fs returns the filesystem images are stored on.
func (s *LocalStore) Fs() afero.Fs { return s.fs }

// PublicPath returns the URL path images are served under.
func (s *LocalStore) PublicPath() string { return s.publicPath }

// Save validates and writes an image, returning its stored name. The content
// type is sniffed from the data; client supplied names and headers are ignored.
func (s *LocalStore) Save(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", apperr.Internal("Failed to read uploaded image", err)
	}
	if int64(len(data)) > s.maxBytes {
		return "", apperr.Validation("image", "Image exceeds maximum size")
	}

	mtype := mimetype.Detect(data)
	if !allowedTypes[mtype.String()] {
		return "", apperr.Validation("image", "Only image files are allowed")
	}

	name := fmt.Sprintf("%s%d-%s%s", filePrefix, s.now().UnixMilli(), uuid.NewString()[:8], mtype.Extension())
	if err := afero.WriteReader(s.fs, filePath(name), bytes.NewReader(data)); err != nil {
		return "", apperr.Internal("Failed to store uploaded image", err)
	}
	s.log.Debug("image stored", zap.String("file", name), zap.Int("bytes", len(data)), zap.String("type", mtype.String()))
	return name, nil
}

// Remove deletes a stored image. A missing file is not an error.
func (s *LocalStore) Remove(name string) error {
	if !validName(name) {
		return fmt.Errorf("refusing to remove %q", name)
	}
	if err := s.fs.Remove(filePath(name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Debug("image already removed", zap.String("file", name))
			return nil
		}
		return fmt.Errorf("failed to remove image %s: %w", name, err)
	}
	return nil
}

// Exists reports whether name is stored.
func (s *LocalStore) Exists(name string) bool {
	ok, err := afero.Exists(s.fs, filePath(name))
	return err == nil && ok
}

// URL returns the public URL of name for a server reachable at baseURL
// (scheme and host, e.g. "http://localhost:5000").
func (s *LocalStore) URL(baseURL, name string) string {
	return strings.TrimRight(baseURL, "/") + s.publicPath + "/" + name
}

// FilenameFromURL returns the stored name referenced by an image URL, or
// false when the URL does not point into this store.
func (s *LocalStore) FilenameFromURL(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	dir, name := path.Split(u.Path)
	if strings.TrimRight(dir, "/") != s.publicPath || !validName(name) {
		return "", false
	}
	return name, true
}

// Sweep removes every stored image whose name is not in referenced and
// returns the removed names.
func (s *LocalStore) Sweep(referenced map[string]bool) ([]string, error) {
	entries, err := afero.ReadDir(s.fs, "/")
	if err != nil {
		return nil, fmt.Errorf("failed to list upload directory: %w", err)
	}
	var removed []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !validName(name) || referenced[name] {
			continue
		}
		if err := s.Remove(name); err != nil {
			s.log.Warn("failed to remove orphaned image", zap.String("file", name), zap.Error(err))
			continue
		}
		removed = append(removed, name)
	}
	return removed, nil
}

// filePath anchors name at the filesystem root so every backend resolves it
// to the same entry.
func filePath(name string) string { return "/" + name }

func validName(name string) bool {
	return strings.HasPrefix(name, filePrefix) && !strings.ContainsAny(name, `/\`) && name != filePrefix
}
