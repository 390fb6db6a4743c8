// Package logfile owns the single append-only file that backs a log: the
// byte-level read/write/truncate operations underneath the record framing
// in internal/record. It never interprets record contents — that is the
// caller's job — it only tracks where the live region of the file ends
// and lets callers append at that offset or decode starting from any
// previously returned offset.
package logfile

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"go.etcd.io/etcd/client/pkg/v3/fileutil"

	"github.com/shaj13/raftlog/internal/record"
)

// LogFile is a single open, advisory-locked file plus the offset marking
// the end of its live region. It performs no internal locking of its own:
// the owning RaftLog is responsible for ensuring at most one goroutine
// touches it at a time; the OS-level flock only guards against a second
// process opening the same path.
type LogFile struct {
	path string
	lock *fileutil.LockedFile
	end  int64
}

// Create opens path for a brand-new log. It fails if the file already
// exists and is non-empty; an existing empty file (e.g. left behind by a
// prior Create that crashed before writing the header) is reused.
func Create(path string) (*LogFile, error) {
	lock, err := fileutil.TryLockFile(path, os.O_RDWR|os.O_CREATE, fileutil.PrivateFileMode)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	fi, err := lock.Stat()
	if err != nil {
		lock.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if fi.Size() > 0 {
		lock.Close()
		return nil, fmt.Errorf("create %s: %w", path, os.ErrExist)
	}
	return &LogFile{path: path, lock: lock, end: 0}, nil
}

// Open opens an existing log file for reading and appending. The caller
// is responsible for running recovery before trusting End() as the
// logical end of well-formed records.
func Open(path string) (*LogFile, error) {
	if !fileutil.Exist(path) {
		return nil, fmt.Errorf("open %s: %w", path, os.ErrNotExist)
	}
	lock, err := fileutil.TryLockFile(path, os.O_RDWR, fileutil.PrivateFileMode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	fi, err := lock.Stat()
	if err != nil {
		lock.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return &LogFile{path: path, lock: lock, end: fi.Size()}, nil
}

// End reports the current end of the live region: the offset at which the
// next Append will write.
func (lf *LogFile) End() int64 { return lf.end }

// Append encodes rec at the current end of the file and advances End by
// the number of bytes written. It returns the offset the record was
// written at.
func (lf *LogFile) Append(rec record.Record) (offset int64, err error) {
	offset = lf.end
	var buf bytes.Buffer
	buf.Grow(int(record.Size(rec)))
	if _, err := record.Encode(&buf, rec); err != nil {
		return 0, err
	}
	if _, err := lf.lock.WriteAt(buf.Bytes(), offset); err != nil {
		return 0, fmt.Errorf("write %s at %d: %w", lf.path, offset, err)
	}
	lf.end = offset + int64(buf.Len())
	return offset, nil
}

// ReadAt decodes a single record starting at offset. It returns the
// decoded record and its encoded size.
func (lf *LogFile) ReadAt(offset int64) (record.Record, int64, error) {
	sr := io.NewSectionReader(lf.lock, offset, lf.end-offset)
	return record.Decode(bufio.NewReader(sr))
}

// Scan decodes records sequentially starting at from, invoking fn with
// each record's starting offset. Scanning stops at a clean end of file
// (returning the final offset and a nil error), or as soon as fn or the
// decoder itself returns an error (returning the offset of the record
// that triggered the stop and that error). Callers use the returned
// offset to decide how far to truncate the file.
func (lf *LogFile) Scan(from int64, fn func(offset int64, rec record.Record) error) (stopOffset int64, err error) {
	sr := io.NewSectionReader(lf.lock, from, lf.end-from)
	br := bufio.NewReader(sr)
	off := from
	for {
		rec, size, derr := record.Decode(br)
		if derr == io.EOF {
			return off, nil
		}
		if derr != nil {
			return off, derr
		}
		if cbErr := fn(off, rec); cbErr != nil {
			return off, cbErr
		}
		off += size
	}
}

// Truncate discards everything in the file at or after offset and resets
// End to offset.
func (lf *LogFile) Truncate(offset int64) error {
	if err := lf.lock.Truncate(offset); err != nil {
		return fmt.Errorf("truncate %s to %d: %w", lf.path, offset, err)
	}
	lf.end = offset
	return nil
}

// Sync flushes the file's contents and metadata to stable storage.
func (lf *LogFile) Sync() error {
	if err := lf.lock.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", lf.path, err)
	}
	return nil
}

// Close releases the advisory lock and closes the underlying file.
func (lf *LogFile) Close() error {
	if err := lf.lock.Close(); err != nil {
		return fmt.Errorf("close %s: %w", lf.path, err)
	}
	return nil
}

// Remove closes and deletes the file.
func (lf *LogFile) Remove() error {
	path := lf.path
	lf.lock.Close()
	return os.Remove(path)
}
