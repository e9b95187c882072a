// Package filestore keeps SDS files on local disk and loads inbox folders.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/0xcro3dile/chemstock/internal/domain/entities"
)

// DiskStore implements ports.DocumentStore in a single directory.
type DiskStore struct {
	root string
}

// NewDiskStore creates a store rooted at dir, creating it if needed.
func NewDiskStore(dir string) (*DiskStore, error) {
	if dir == "" {
		dir = "./data/sds"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &DiskStore{root: dir}, nil
}

// Root returns the storage directory.
func (s *DiskStore) Root() string {
	return s.root
}

// Put writes data under name. A taken name gets a numeric suffix
// ("acetone-1.pdf"); the final name is returned.
func (s *DiskStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	base, err := cleanName(name)
	if err != nil {
		return "", err
	}
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	final := base
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		f, err := os.OpenFile(filepath.Join(s.root, final), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, fs.ErrExist) {
			final = fmt.Sprintf("%s-%d%s", stem, n, ext)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("creating %s: %w", final, err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(f.Name())
			return "", fmt.Errorf("writing %s: %w", final, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("closing %s: %w", final, err)
		}
		return final, nil
	}
}

// Open returns a reader for a stored file.
func (s *DiskStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	base, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.root, base))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("file %s: %w", name, entities.ErrNotFound)
	}
	return f, err
}

// Remove deletes a stored file. Missing files are ignored.
func (s *DiskStore) Remove(ctx context.Context, name string) error {
	base, err := cleanName(name)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.root, base))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// cleanName rejects names that would escape the storage directory.
func cleanName(name string) (string, error) {
	base := filepath.Base(name)
	if base != name || base == "." || base == ".." || base == string(filepath.Separator) {
		return "", fmt.Errorf("%w: invalid file name %q", entities.ErrValidation, name)
	}
	return base, nil
}

// PDFExtensions are the file extensions picked up from an inbox.
var PDFExtensions = []string{".pdf"}

// IsPDF reports whether path has a PDF extension, ignoring case.
func IsPDF(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range PDFExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// LoadDir reads every PDF directly inside dir, sorted by file name.
func LoadDir(ctx context.Context, dir string) ([]entities.Upload, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var uploads []entities.Upload
	for _, e := range entries {
		if e.IsDir() || !IsPDF(e.Name()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		uploads = append(uploads, entities.Upload{Name: e.Name(), Data: data})
	}
	return uploads, nil
}

// MoveInto moves the file at path into dir, keeping its base name. A taken
// name gets a numeric suffix; the new path is returned.
func MoveInto(dir, path string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	target := filepath.Join(dir, base)
	for n := 1; ; n++ {
		_, err := os.Lstat(target)
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		if err != nil {
			return "", err
		}
		target = filepath.Join(dir, fmt.Sprintf("%s-%d%s", stem, n, ext))
	}
	if err := os.Rename(path, target); err != nil {
		return "", fmt.Errorf("moving %s: %w", base, err)
	}
	return target, nil
}
