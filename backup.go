// Backup and restore.
//
// A backup is a zstd-compressed tar stream of the record files exactly as
// they sit on disk; encrypted or compressed records stay that way. Restore
// stages the archive into a commit scratch directory and installs it with
// the same swap a commit uses, so an interrupted restore is finished or
// discarded on the next Open like any other commit.
package shelf

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/natefinch/atomic"
	"go.uber.org/zap"
)

// Backup commits pending changes and writes every record file to w. Like
// Restore it refuses to run inside a transaction, whose changes must not
// reach disk before End.
func (db *DB) Backup(w io.Writer) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}
	if db.inTx {
		return ErrTxOpen
	}
	if err := db.commit(); err != nil {
		return err
	}

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	tw := tar.NewWriter(zw)

	names, err := db.recordFiles(db.dir)
	if err != nil {
		zw.Close()
		return err
	}
	for _, name := range names {
		path := filepath.Join(db.dir, name)
		data, err := readRecord(path)
		if err != nil {
			zw.Close()
			return &PersistenceError{Op: "backup", Path: path, Err: err}
		}
		hdr := &tar.Header{
			Typeflag: tar.TypeReg,
			Name:     name,
			Mode:     0644,
			Size:     int64(len(data)),
			ModTime:  time.Now(),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			zw.Close()
			return err
		}
		if _, err := tw.Write(data); err != nil {
			zw.Close()
			return err
		}
	}
	if err := tw.Close(); err != nil {
		zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	db.log.Debug("backup written", zap.Int("records", len(names)))
	return nil
}

// Restore replaces every record with the contents of a backup read from r
// and reloads. It refuses to run inside a transaction. Entries that are
// not plain record files of this store's format fail with
// ErrUnsafeArchive before anything in the data directory changes.
func (db *DB) Restore(r io.Reader) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}
	if db.inTx {
		return ErrTxOpen
	}

	parent := filepath.Dir(db.dir)
	scratch, err := os.MkdirTemp(parent, db.scratchPrefix()+"*")
	if err != nil {
		return &PersistenceError{Op: "restore", Path: parent, Err: err}
	}
	n, err := db.unpack(r, scratch)
	if err == nil {
		err = atomic.WriteFile(filepath.Join(scratch, completeMarker), strings.NewReader(""))
	}
	if err != nil {
		os.RemoveAll(scratch)
		return err
	}
	if err := db.install(scratch); err != nil {
		return err
	}
	db.log.Info("restored from backup", zap.Int("records", n))
	return db.load()
}

func (db *DB) unpack(r io.Reader, dir string) (int, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return 0, err
	}
	defer zr.Close()

	tr := tar.NewReader(zr)
	var n int
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if errors.Is(err, tar.ErrInsecurePath) {
			return n, fmt.Errorf("%w: %q", ErrUnsafeArchive, hdr.Name)
		}
		if err != nil {
			return n, fmt.Errorf("read backup: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg || !fs.ValidPath(hdr.Name) ||
			filepath.Base(hdr.Name) != hdr.Name || !db.isRecordName(hdr.Name) {
			return n, fmt.Errorf("%w: %q", ErrUnsafeArchive, hdr.Name)
		}
		if hdr.Size < 0 || hdr.Size > maxRecordSize {
			return n, fmt.Errorf("%w: %q is %d bytes", ErrUnsafeArchive, hdr.Name, hdr.Size)
		}
		data, err := io.ReadAll(io.LimitReader(tr, hdr.Size))
		if err != nil {
			return n, fmt.Errorf("read backup: %s: %w", hdr.Name, err)
		}
		path := filepath.Join(dir, hdr.Name)
		if err := db.writeRecord(path, data); err != nil {
			return n, &PersistenceError{Op: "restore", Path: path, Err: err}
		}
		n++
	}
}
