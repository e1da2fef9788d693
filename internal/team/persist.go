package team

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/Iron-Ham/agentteam/internal/errors"
	"github.com/Iron-Ham/agentteam/internal/ident"
	"github.com/Iron-Ham/agentteam/internal/taskgraph"
)

const (
	snapshotExt = ".json"
	lockExt     = ".lock"
	tmpExt      = ".tmp"

	// snapshotGlob matches snapshot files directly inside the persistence
	// directory. Temp and lock files do not match.
	snapshotGlob = "*" + snapshotExt
)

// SnapshotFileName returns the snapshot file name for a team name.
func SnapshotFileName(teamName string) (string, error) {
	sanitized, err := ident.SanitizeTeamName(teamName)
	if err != nil {
		return "", err
	}
	return sanitized + snapshotExt, nil
}

func lockPathFor(snapshotPath string) string {
	return strings.TrimSuffix(snapshotPath, snapshotExt) + lockExt
}

// writeSnapshot serializes the whole aggregate to path. The write goes to a
// temporary file that is renamed into place while holding the file lock.
func writeSnapshot(dir, path string, state *StateData) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewStorageError("create persistence directory", errors.ErrSnapshotIO, err).WithPath(dir)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.NewStorageError("encode snapshot", errors.ErrSnapshotCorrupted, err).WithPath(path)
	}

	fl := newFileLock(lockPathFor(path))
	if err := fl.lock(); err != nil {
		return errors.NewStorageError("acquire snapshot lock", errors.ErrSnapshotIO, err).WithPath(path)
	}
	defer func() { _ = fl.unlock() }()

	tmp := path + tmpExt
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.NewStorageError("write snapshot", errors.ErrSnapshotIO, err).WithPath(tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp) // best-effort cleanup
		return errors.NewStorageError("replace snapshot", errors.ErrSnapshotIO, err).WithPath(path)
	}
	return nil
}

// readSnapshot loads and validates a snapshot file.
func readSnapshot(path string) (*StateData, error) {
	fl := newFileLock(lockPathFor(path))
	if err := fl.lock(); err != nil {
		return nil, errors.NewStorageError("acquire snapshot lock", errors.ErrSnapshotIO, err).WithPath(path)
	}
	defer func() { _ = fl.unlock() }()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewStorageError("read snapshot", errors.ErrSnapshotIO, err).WithPath(path)
	}

	var state StateData
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, errors.NewStorageError("decode snapshot", errors.ErrSnapshotCorrupted, err).WithPath(path)
	}
	if _, err := ident.SanitizeTeamName(state.TeamName); err != nil {
		return nil, errors.NewStorageError("decode snapshot", errors.ErrSnapshotCorrupted, err).WithPath(path)
	}

	normalize(&state)
	return &state, nil
}

// removeSnapshot deletes the snapshot and its lock file. A missing snapshot
// is not an error.
func removeSnapshot(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.NewStorageError("remove snapshot", errors.ErrSnapshotIO, err).WithPath(path)
	}
	_ = os.Remove(lockPathFor(path)) // best-effort
	return nil
}

// discoverSnapshot returns the paths of the snapshot candidates in dir in
// lexical order. A missing directory holds none.
func discoverSnapshot(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.NewStorageError("scan persistence directory", errors.ErrSnapshotIO, err).WithPath(dir)
	}
	if !info.IsDir() {
		return nil, errors.NewStorageError("scan persistence directory", errors.ErrSnapshotIO, fs.ErrInvalid).WithPath(dir)
	}

	matches, err := doublestar.Glob(os.DirFS(dir), snapshotGlob, doublestar.WithFilesOnly())
	if err != nil {
		return nil, errors.NewStorageError("scan persistence directory", errors.ErrSnapshotIO, err).WithPath(dir)
	}
	sort.Strings(matches)
	paths := make([]string, len(matches))
	for i, m := range matches {
		paths[i] = filepath.Join(dir, m)
	}
	return paths, nil
}

// loadFirstSnapshot adopts the first candidate in dir that decodes as a team
// snapshot. Files that are not snapshots are skipped; I/O failures are not.
// It returns nil when no candidate qualifies.
func loadFirstSnapshot(dir string) (*StateData, error) {
	paths, err := discoverSnapshot(dir)
	if err != nil {
		return nil, err
	}
	for _, path := range paths {
		state, err := readSnapshot(path)
		if errors.Is(err, errors.ErrSnapshotCorrupted) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return state, nil
	}
	return nil, nil
}

// normalize replaces nil slices so callers and re-serialized snapshots see
// empty lists rather than null.
func normalize(state *StateData) {
	if state.Agents == nil {
		state.Agents = []Agent{}
	}
	if state.Messages == nil {
		state.Messages = []Message{}
	}
	if state.Tasks == nil {
		state.Tasks = []taskgraph.Task{}
	}
	for i := range state.Tasks {
		if state.Tasks[i].DependsOn == nil {
			state.Tasks[i].DependsOn = []string{}
		}
	}
}
