package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/0xcro3dile/chemstock/internal/domain/entities"
)

// Files is an in-memory ports.DocumentStore.
type Files struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewFiles creates an empty file store.
func NewFiles() *Files {
	return &Files{files: make(map[string][]byte)}
}

// Put stores data under name, adding a numeric suffix when name is taken.
func (f *Files) Put(ctx context.Context, name string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	final := name
	stem, ext := name, ""
	if i := strings.LastIndex(name, "."); i > 0 {
		stem, ext = name[:i], name[i:]
	}
	for n := 1; ; n++ {
		if _, taken := f.files[final]; !taken {
			break
		}
		final = fmt.Sprintf("%s-%d%s", stem, n, ext)
	}
	f.files[final] = append([]byte(nil), data...)
	return final, nil
}

// Open returns a reader over a stored file.
func (f *Files) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, ok := f.files[name]
	if !ok {
		return nil, fmt.Errorf("file %s: %w", name, entities.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Remove deletes a stored file.
func (f *Files) Remove(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.files, name)
	return nil
}

// Names returns the stored file names.
func (f *Files) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]string, 0, len(f.files))
	for name := range f.files {
		out = append(out, name)
	}
	return out
}
