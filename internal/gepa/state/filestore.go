package state

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gepa-run/gepa-engine/internal/domain"
)

// FileStore persists state to {dir}/{fileName} using a schema-versioned
// msgpack blob. Writes are atomic: the new blob is written to a sibling
// temp file and renamed over the target, so a crash mid-write never leaves
// a truncated state file behind.
type FileStore[ID comparable] struct {
	dir      string
	fileName string
}

// NewFileStore returns nil if dir is empty — persistence is optional per
// the run_dir configuration surface.
func NewFileStore[ID comparable](dir, fileName string) *FileStore[ID] {
	if dir == "" {
		return nil
	}
	if fileName == "" {
		fileName = "gepa_state.msgpack"
	}
	return &FileStore[ID]{dir: dir, fileName: fileName}
}

func (fs *FileStore[ID]) path() string {
	return filepath.Join(fs.dir, fs.fileName)
}

// Load returns (nil, false, nil) when no state file exists yet — the
// caller should fall back to constructing fresh state from the seed.
func (fs *FileStore[ID]) Load(_ context.Context) (*State[ID], bool, error) {
	data, err := os.ReadFile(fs.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, domain.NewGEPAError(domain.ErrPersistence, fmt.Sprintf("read state file %s: %v", fs.path(), err))
	}
	s, err := Load[ID](data)
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}

// Save writes s to disk, creating the run directory if needed.
func (fs *FileStore[ID]) Save(_ context.Context, s *State[ID]) error {
	if err := os.MkdirAll(fs.dir, 0o755); err != nil {
		return domain.NewGEPAError(domain.ErrPersistence, fmt.Sprintf("create run dir %s: %v", fs.dir, err))
	}
	data, err := s.Save()
	if err != nil {
		return err
	}
	tmp := fs.path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return domain.NewGEPAError(domain.ErrPersistence, fmt.Sprintf("write temp state file: %v", err))
	}
	if err := os.Rename(tmp, fs.path()); err != nil {
		return domain.NewGEPAError(domain.ErrPersistence, fmt.Sprintf("rename state file into place: %v", err))
	}
	return nil
}
