package shelf

import (
	"archive/tar"
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zstd"
)

func TestBackupRestore(t *testing.T) {
	src := openTestDB(t, Config{EncryptionKey: "k", Indexes: []string{"g"}})
	var ids []string
	for i := range 5 {
		id, _ := src.Create(D("i", i, "g", i%2))
		ids = append(ids, id)
	}

	var buf bytes.Buffer
	if err := src.Backup(&buf); err != nil {
		t.Fatalf("Backup: %v", err)
	}

	dst := openTestDB(t, Config{EncryptionKey: "k", Indexes: []string{"g"}})
	dst.Create(D("replaced", true))
	if err := dst.Restore(&buf); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if diff := cmp.Diff(ids, recordIDs(t, dst)); diff != "" {
		t.Errorf("restored IDs (-want +got):\n%s", diff)
	}
	if got, _ := dst.Read(Where("g", 1), nil); len(got) != 2 {
		t.Errorf("index after restore finds %d, want 2", len(got))
	}
	if dirs := scratchDirs(t, dst); len(dirs) != 0 {
		t.Errorf("scratch left: %v", dirs)
	}
}

// Backup commits first so the archive matches memory.
func TestBackupCommitsPending(t *testing.T) {
	off := false
	db := openTestDB(t, Config{AutoCommit: &off})
	db.Create(D("a", 1))

	var buf bytes.Buffer
	if err := db.Backup(&buf); err != nil {
		t.Fatal(err)
	}
	if db.Dirty() {
		t.Error("store still dirty after Backup")
	}
	if names := archiveNames(t, buf.Bytes()); len(names) != 1 {
		t.Errorf("archive holds %v", names)
	}
}

func archiveNames(t *testing.T, data []byte) []string {
	t.Helper()
	zr, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()
	tr := tar.NewReader(zr)
	var names []string
	for {
		hdr, err := tr.Next()
		if err != nil {
			break
		}
		names = append(names, hdr.Name)
	}
	return names
}

func makeArchive(t *testing.T, entries map[string]string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	zw, _ := zstd.NewWriter(&buf)
	tw := tar.NewWriter(zw)
	for name, body := range entries {
		tw.WriteHeader(&tar.Header{Typeflag: tar.TypeReg, Name: name, Mode: 0644, Size: int64(len(body))})
		tw.Write([]byte(body))
	}
	tw.Close()
	zw.Close()
	return &buf
}

func TestRestoreRejectsUnsafeEntries(t *testing.T) {
	for _, name := range []string{
		"../escape.json",
		"sub/dir.json",
		"/abs.json",
		".hidden.json",
		"wrong.msgpack",
	} {
		t.Run(name, func(t *testing.T) {
			db := openTestDB(t, Config{})
			id, _ := db.Create(D("keep", true))

			err := db.Restore(makeArchive(t, map[string]string{name: "{}"}))
			if !errors.Is(err, ErrUnsafeArchive) {
				t.Fatalf("Restore = %v, want ErrUnsafeArchive", err)
			}
			if !db.Has(id) || len(recordFileNames(t, db)) != 1 {
				t.Error("rejected restore changed the store")
			}
			if dirs := scratchDirs(t, db); len(dirs) != 0 {
				t.Errorf("scratch left: %v", dirs)
			}
		})
	}
}

func TestRestoreInTransaction(t *testing.T) {
	db := openTestDB(t, Config{})
	db.Begin()
	if err := db.Restore(makeArchive(t, nil)); !errors.Is(err, ErrTxOpen) {
		t.Errorf("Restore in transaction = %v, want ErrTxOpen", err)
	}
}

// Pending transaction changes stay out of the archive and off disk, so
// Rollback still discards them.
func TestBackupInTransaction(t *testing.T) {
	db := openTestDB(t, Config{})
	db.Create(D("a", 1))
	db.Begin()
	db.Create(D("a", 2))

	var buf bytes.Buffer
	if err := db.Backup(&buf); !errors.Is(err, ErrTxOpen) {
		t.Errorf("Backup in transaction = %v, want ErrTxOpen", err)
	}
	if err := db.Rollback(); err != nil {
		t.Fatal(err)
	}
	if db.Count() != 1 {
		t.Errorf("Count after Rollback = %d, want 1", db.Count())
	}
	if names := recordFileNames(t, db); len(names) != 1 {
		t.Errorf("record files = %v, want 1", names)
	}
}

func TestRestoreEmptyArchiveClears(t *testing.T) {
	db := openTestDB(t, Config{})
	db.Create(D("a", 1))
	if err := db.Restore(makeArchive(t, nil)); err != nil {
		t.Fatal(err)
	}
	if db.Count() != 0 || len(recordFileNames(t, db)) != 0 {
		t.Error("empty archive should leave an empty store")
	}
}
