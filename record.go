// Record files.
//
// Each record lives in its own file, <id><ext>, where the extension names
// the serialization format. Writes hold an exclusive lock on the file and
// reads a shared one, for that file only.
package shelf

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

func (db *DB) recordPath(id string) string {
	return filepath.Join(db.dir, id+db.codec.ext())
}

// recordFiles lists the record file names in dir, sorted.
func (db *DB) recordFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, &PersistenceError{Op: "list", Path: dir, Err: err}
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && db.isRecordName(e.Name()) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// isRecordName reports whether name is <id><ext> for this store's format.
func (db *DB) isRecordName(name string) bool {
	id, ok := strings.CutSuffix(name, db.codec.ext())
	return ok && id != "" && !strings.HasPrefix(name, ".") &&
		!strings.ContainsAny(name, `/\`)
}

// readRecord reads path under a shared lock.
func readRecord(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var data []byte
	err = withLock(f, LockShared, func() error {
		var rerr error
		data, rerr = io.ReadAll(f)
		return rerr
	})
	return data, err
}

// writeRecord creates path and writes data to it under an exclusive lock.
func (db *DB) writeRecord(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	err = withLock(f, LockExclusive, func() error {
		if _, err := f.Write(data); err != nil {
			return err
		}
		if db.config.SyncWrites {
			return f.Sync()
		}
		return nil
	})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
