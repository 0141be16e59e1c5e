package prompt

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/kart-io/logger"

	"github.com/tradementor/tradementor/pkg/jsonutil"
)

//go:embed default_prompt.json
var defaultLibraryJSON []byte

// DefaultLibrary parses the embedded section library.
func DefaultLibrary() (*Library, error) {
	var lib Library
	if err := jsonutil.Unmarshal(defaultLibraryJSON, &lib); err != nil {
		return nil, fmt.Errorf("parse embedded prompt library: %w", err)
	}
	if err := lib.Validate(); err != nil {
		return nil, err
	}
	return &lib, nil
}

// Manager serves an immutable library snapshot and swaps it when the
// override file changes. Readers never block on a reload.
type Manager struct {
	path     string
	snapshot atomic.Pointer[Library]
}

// NewManager loads the embedded library, then the override file at
// path when one is configured. An unreadable override file fails
// startup rather than silently serving the default.
func NewManager(path string) (*Manager, error) {
	lib, err := DefaultLibrary()
	if err != nil {
		return nil, err
	}

	m := &Manager{path: path}
	m.snapshot.Store(lib)

	if path != "" {
		if err := m.Reload(); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Snapshot returns the current library. The returned value must be
// treated as read-only.
func (m *Manager) Snapshot() *Library {
	return m.snapshot.Load()
}

// Reload re-reads the library and swaps the snapshot. With no override
// file configured it restores the embedded default.
func (m *Manager) Reload() error {
	if m.path == "" {
		lib, err := DefaultLibrary()
		if err != nil {
			return err
		}
		m.snapshot.Store(lib)
		return nil
	}

	data, err := os.ReadFile(m.path)
	if err != nil {
		return fmt.Errorf("read prompt library %s: %w", m.path, err)
	}
	var lib Library
	if err := jsonutil.Unmarshal(data, &lib); err != nil {
		return fmt.Errorf("parse prompt library %s: %w", m.path, err)
	}
	if err := lib.Validate(); err != nil {
		return err
	}

	m.snapshot.Store(&lib)
	return nil
}

// Watch reloads the library whenever the override file is written or
// replaced. Editors and atomic writers rename over the file, so the
// watch is on the parent directory. A failed reload keeps the previous
// snapshot. Watch returns immediately; the watcher stops with ctx.
func (m *Manager) Watch(ctx context.Context) error {
	if m.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create prompt watcher: %w", err)
	}
	dir := filepath.Dir(m.path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	target := filepath.Clean(m.path)
	go func() {
		defer func() { _ = watcher.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if err := m.Reload(); err != nil {
					logger.Errorw("prompt library reload failed, keeping previous snapshot",
						"path", m.path, "error", err)
					continue
				}
				logger.Infow("prompt library reloaded", "path", m.path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warnw("prompt watcher error", "error", err)
			}
		}
	}()
	return nil
}
