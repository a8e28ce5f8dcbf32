package lockfile

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danieljhkim/pkgstage/internal/clock"
	"github.com/danieljhkim/pkgstage/internal/fsops"
)

// FileStore reads and writes a lock file on disk.
type FileStore struct {
	fs    fsops.FS
	clock clock.Clock
	path  string
}

// NewFileStore creates a new FileStore for path.
func NewFileStore(fs fsops.FS, clk clock.Clock, path string) *FileStore {
	return &FileStore{fs: fs, clock: clk, path: path}
}

// Path returns the lock file location.
func (s *FileStore) Path() string { return s.path }

// Load reads the lock file. Returns os.ErrNotExist if there is none.
func (s *FileStore) Load() (*Lock, error) {
	data, err := s.fs.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, os.ErrNotExist
		}
		return nil, fmt.Errorf("failed to read lock file: %w", err)
	}

	var lock Lock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("failed to unmarshal lock file: %w", err)
	}
	if lock.Version != SchemaVersion {
		return nil, fmt.Errorf("unsupported lock file version %d (want %d)", lock.Version, SchemaVersion)
	}
	return &lock, nil
}

// Save writes the lock atomically.
func (s *FileStore) Save(lock *Lock) error {
	data, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal lock file: %w", err)
	}
	if err := s.fs.AtomicWrite(s.path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write lock file: %w", err)
	}
	return nil
}

// Record merges st into the lock file, creating the file if needed. An
// unreadable existing file is replaced.
func (s *FileStore) Record(installRoot string, st Stage) (*Lock, error) {
	lock, err := s.Load()
	if err != nil {
		lock = New(installRoot)
	}
	lock.InstallRoot = installRoot
	lock.GeneratedAt = s.clock.Now().UTC()
	lock.Upsert(st)

	if err := s.Save(lock); err != nil {
		return nil, err
	}
	return lock, nil
}
