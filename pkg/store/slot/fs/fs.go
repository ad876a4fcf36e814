// Package fs implements a snapshot slot stored as a single file.
//
// The file lives on an afero.Fs, which is the OS filesystem in production
// and an in-memory filesystem in tests.
package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/marmos91/dittodrive/pkg/store/slot"
)

// DefaultPath is where the snapshot is cached when no path is configured.
const DefaultPath = "./cache/drive.data"

// Config configures a filesystem slot.
type Config struct {
	// Path is the snapshot file. Its parent directory is created on demand.
	Path string `mapstructure:"path"`

	// Fs overrides the filesystem. Nil means the OS filesystem.
	Fs afero.Fs `mapstructure:"-"`
}

// FSSlot stores the snapshot in a single file.
//
// Thread Safety:
// Writes are serialized with a mutex. Each write goes to a temporary file in
// the same directory which is then renamed over the slot file, so readers
// see either the old or the new snapshot, never a partial one.
type FSSlot struct {
	mu   sync.Mutex
	fs   afero.Fs
	path string
}

// New creates a filesystem slot and makes sure its directory exists.
//
// Context Cancellation:
// This operation checks the context before touching the filesystem.
func New(ctx context.Context, cfg Config) (*FSSlot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := cfg.Path
	if path == "" {
		path = DefaultPath
	}
	fsys := cfg.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	if err := fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create slot directory: %w", err)
	}

	return &FSSlot{fs: fsys, path: path}, nil
}

// Path returns the slot file path.
func (s *FSSlot) Path() string {
	return s.path
}

// Write atomically replaces the slot file with data.
func (s *FSSlot) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := afero.TempFile(s.fs, filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp slot file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("failed to write temp slot file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("failed to sync temp slot file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("failed to close temp slot file: %w", err)
	}

	if err := s.fs.Rename(tmpName, s.path); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("failed to replace slot file: %w", err)
	}
	return nil
}

// Read returns the slot file content, or slot.ErrSlotEmpty if it does not
// exist yet.
func (s *FSSlot) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, slot.ErrSlotEmpty
		}
		return nil, fmt.Errorf("failed to read slot file: %w", err)
	}
	return data, nil
}

// Close is a no-op; the slot holds no open handles between calls.
func (s *FSSlot) Close() error {
	return nil
}
