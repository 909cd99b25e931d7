// Package statefile persists a queue snapshot as a single JSON document.
//
// The file is owned by one process at a time (an adjacent ".lock" file is
// held with an advisory lock) and every Save rewrites it wholesale through a
// temp file and rename, so a crash leaves either the old or the new snapshot.
package statefile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dmitrijs2005/wristnote/internal/filex"
	"github.com/gofrs/flock"
)

// ErrLocked is returned by Open when another process holds the file.
var ErrLocked = errors.New("state file is locked by another process")

type File struct {
	mu   sync.Mutex
	path string
	lock *flock.Flock
}

// Open acquires exclusive ownership of path.
func Open(path string) (*File, error) {
	if _, err := filex.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, err
	}

	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrLocked)
	}

	return &File{path: path, lock: lock}, nil
}

func (f *File) Path() string { return f.path }

// Load decodes the snapshot into v. It reports false when no snapshot exists
// yet.
func (f *File) Load(v any) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read state: %w", err)
	}
	if len(b) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("decode state %s: %w", f.path, err)
	}
	return true, nil
}

// Save replaces the snapshot with v.
func (f *File) Save(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close state: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

// Close releases the lock.
func (f *File) Close() error {
	return f.lock.Unlock()
}
