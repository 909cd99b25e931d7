// Package artifacts keeps one audio file per note in a device-local
// directory. The file name is derived from the note id so a note always has a
// single canonical location.
package artifacts

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/wristnote/internal/filex"
	"github.com/google/uuid"
)

// Extension of stored audio files.
const Extension = ".m4a"

// ErrNotFound is returned when a note has no audio file.
var ErrNotFound = errors.New("artifact not found")

type Store struct {
	dir string
}

// New prepares dir and returns a Store rooted there.
func New(dir string) (*Store, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, fmt.Errorf("artifact dir: %w", err)
	}
	return &Store{dir: abs}, nil
}

func (s *Store) Dir() string { return s.dir }

// Path is the canonical location for id. The file may not exist.
func (s *Store) Path(id uuid.UUID) string {
	return filepath.Join(s.dir, id.String()+Extension)
}

func (s *Store) Exists(id uuid.UUID) bool {
	return filex.Exists(s.Path(id))
}

// Place moves src into the canonical location for id, replacing any earlier
// copy. src no longer exists afterwards.
func (s *Store) Place(id uuid.UUID, src string) (string, error) {
	dst := s.Path(id)
	if err := filex.MoveReplace(src, dst); err != nil {
		return "", fmt.Errorf("place %s: %w", id, err)
	}
	return dst, nil
}

// Import copies src into the canonical location for id, leaving src untouched.
func (s *Store) Import(id uuid.UUID, src string) (string, error) {
	if !filex.Exists(src) {
		return "", fmt.Errorf("import %s: %w", src, ErrNotFound)
	}
	dst := s.Path(id)
	if err := filex.CopyFile(src, dst); err != nil {
		return "", fmt.Errorf("import %s: %w", id, err)
	}
	return dst, nil
}

// Open returns the audio for id.
func (s *Store) Open(id uuid.UUID) (io.ReadCloser, error) {
	f, err := os.Open(s.Path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

// Remove deletes the audio for id. Removing a missing file is not an error.
func (s *Store) Remove(id uuid.UUID) error {
	return RemovePath(s.Path(id))
}

// RemovePath deletes path, ignoring a missing file.
func RemovePath(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}
