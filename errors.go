// Package shelf provides an embedded document store backed by a directory of
// record files. A store loads every record of a named collection into memory,
// answers equality queries (optionally through single-field indexes) and
// writes mutations back with an atomic directory-swap commit: all records are
// encoded into a scratch directory first, and the live directory is only
// touched once every encode and write has succeeded.
//
// Record files hold one document each, serialised as JSON or MessagePack,
// optionally compressed (zstd or lz4) and optionally encrypted with an
// authenticated stream cipher. The in-memory table is the source of truth for
// the lifetime of the process; the directory is the source of truth across
// processes.
package shelf

import (
	"errors"
	"strings"
)

// Sentinel errors for programmatic handling. Callers use errors.Is to
// distinguish them; the structured error types below wrap them where a
// document or file is involved.
var (
	ErrNotFound           = errors.New("document not found")
	ErrClosed             = errors.New("store is closed")
	ErrTxOpen             = errors.New("transaction already open")
	ErrNoTx               = errors.New("no transaction open")
	ErrAuthentication     = errors.New("authentication failure")
	ErrUnknownFormat      = errors.New("unknown serialization format")
	ErrUnknownCompression = errors.New("unknown compression algorithm")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrInvalidValue       = errors.New("unsupported value type")
	ErrUnsafeArchive      = errors.New("unsafe archive entry")
)

// ValidationError reports required fields missing from a document on
// create or update.
type ValidationError struct {
	ID      string   // record being written; empty on create
	Missing []string // required fields absent from the document
}

func (e *ValidationError) Error() string {
	msg := "missing required field"
	if len(e.Missing) > 1 {
		msg += "s"
	}
	msg += ": " + strings.Join(e.Missing, ", ")
	if e.ID != "" {
		msg += " (id=" + e.ID + ")"
	}
	return msg
}

// PersistenceError reports a failed file-system operation: a commit, a
// lock acquisition, a record write or delete.
type PersistenceError struct {
	Op   string // "commit", "write", "lock", "delete", "load", ...
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	if e.Path == "" {
		return e.Op + ": " + errString(e.Err)
	}
	return e.Op + " " + e.Path + ": " + errString(e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// CodecError reports a failure in one stage of the record pipeline. Stage
// is one of "serialize", "compress", "encrypt", "decrypt", "decompress" or
// "parse".
type CodecError struct {
	Stage string
	Path  string // record file, when decoding from disk
	Err   error
}

func (e *CodecError) Error() string {
	msg := "codec " + e.Stage + ": " + errString(e.Err)
	if e.Path != "" {
		msg += " (path=" + e.Path + ")"
	}
	return msg
}

func (e *CodecError) Unwrap() error { return e.Err }

func errString(err error) string {
	if err == nil {
		return "<nil>"
	}
	return err.Error()
}
