// Crash recovery on Open.
//
// A commit that died part way leaves a scratch directory beside the data
// directory. If it carries the .complete marker every record was staged,
// so the install step is run again to finish the swap. Without the marker
// the data directory was never touched and the scratch directory is simply
// removed. A transaction marker left by a dead process is removed as well;
// the store opens at its last committed state.
package shelf

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
)

func (db *DB) recover() error {
	parent := filepath.Dir(db.dir)
	entries, err := os.ReadDir(parent)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return &PersistenceError{Op: "recover", Path: parent, Err: err}
	}

	type leftover struct {
		path string
		mod  time.Time
	}
	var dirs []leftover
	prefix := db.scratchPrefix()
	for _, e := range entries {
		if !e.IsDir() || !isScratchName(e.Name(), prefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		dirs = append(dirs, leftover{path: filepath.Join(parent, e.Name()), mod: info.ModTime()})
	}
	slices.SortFunc(dirs, func(a, b leftover) int { return a.mod.Compare(b.mod) })

	for _, d := range dirs {
		if _, err := os.Stat(filepath.Join(d.path, completeMarker)); err == nil {
			db.log.Warn("finishing interrupted commit", zap.String("scratch", d.path))
			if err := db.install(d.path); err != nil {
				return err
			}
			continue
		}
		db.log.Warn("discarding incomplete commit", zap.String("scratch", d.path))
		if err := os.RemoveAll(d.path); err != nil {
			return &PersistenceError{Op: "recover", Path: d.path, Err: err}
		}
	}

	if _, err := os.Stat(db.markerPath()); err == nil {
		db.log.Warn("discarding stale transaction marker", zap.String("path", db.markerPath()))
		db.removeMarker()
	}
	return nil
}

// isScratchName reports whether name is prefix followed by the random
// digits os.MkdirTemp appends. A store named "a.commit-x" must not claim
// the scratch directories of store "a".
func isScratchName(name, prefix string) bool {
	rest, ok := strings.CutPrefix(name, prefix)
	if !ok || rest == "" {
		return false
	}
	for _, c := range rest {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
