// Package logindex maintains the ".idx" sidecar: a flat array of the byte
// offset of each ENTRY record in the companion log file, one uint64 per
// entry in append order. The sidecar is a pure optimisation — it only
// exists so Get can seek straight to an entry instead of scanning — and
// is always rebuildable from the log file itself, so every write here is
// best-effort bookkeeping, never a source of truth.
package logindex

import (
	"encoding/binary"
	"fmt"
	"os"

	"go.etcd.io/etcd/client/pkg/v3/fileutil"
)

const offsetWidth = 8

// LogIndex holds the in-memory offset array and, when opened against a
// real path, keeps it mirrored to the sidecar file on every mutation.
type LogIndex struct {
	path    string
	offsets []int64
	f       *os.File
}

// Create truncates (or creates) the sidecar at path and returns an empty
// LogIndex backed by it.
func Create(path string) (*LogIndex, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return &LogIndex{path: path, f: f}, nil
}

// Open loads an existing sidecar file into memory. If the file does not
// exist, an empty LogIndex is returned with Existed=false so the caller
// knows a rebuild is needed.
func Open(path string) (idx *LogIndex, existed bool, err error) {
	existed = fileutil.Exist(path)
	flag := os.O_RDWR | os.O_CREATE
	f, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		return nil, false, fmt.Errorf("open %s: %w", path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, false, fmt.Errorf("stat %s: %w", path, err)
	}
	n := fi.Size() / offsetWidth
	buf := make([]byte, fi.Size()-fi.Size()%offsetWidth)
	if _, err := f.ReadAt(buf, 0); err != nil && len(buf) > 0 {
		f.Close()
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}
	offsets := make([]int64, 0, n)
	for i := int64(0); i < n; i++ {
		offsets = append(offsets, int64(binary.LittleEndian.Uint64(buf[i*offsetWidth:])))
	}
	return &LogIndex{path: path, offsets: offsets, f: f}, existed, nil
}

// Len returns the number of offsets currently tracked.
func (li *LogIndex) Len() int { return len(li.offsets) }

// Get returns the offset at position i (0-based, append order).
func (li *LogIndex) Get(i int) (int64, bool) {
	if i < 0 || i >= len(li.offsets) {
		return 0, false
	}
	return li.offsets[i], true
}

// Equal reports whether offsets matches this index's offsets exactly,
// element by element. Used on Open to decide whether a same-length
// sidecar can still be trusted or must be rebuilt.
func (li *LogIndex) Equal(offsets []int64) bool {
	if len(li.offsets) != len(offsets) {
		return false
	}
	for i, off := range li.offsets {
		if off != offsets[i] {
			return false
		}
	}
	return true
}

// Append records a new offset at the end of the array and persists it.
func (li *LogIndex) Append(offset int64) error {
	pos := int64(len(li.offsets)) * offsetWidth
	var buf [offsetWidth]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(offset))
	if li.f != nil {
		if _, err := li.f.WriteAt(buf[:], pos); err != nil {
			return fmt.Errorf("append sidecar %s: %w", li.path, err)
		}
	}
	li.offsets = append(li.offsets, offset)
	return nil
}

// Truncate drops every offset from position n onward, both in memory and
// in the sidecar file.
func (li *LogIndex) Truncate(n int) error {
	if n < 0 || n > len(li.offsets) {
		return fmt.Errorf("logindex: truncate out of range: %d", n)
	}
	li.offsets = li.offsets[:n]
	if li.f != nil {
		if err := li.f.Truncate(int64(n) * offsetWidth); err != nil {
			return fmt.Errorf("truncate sidecar %s: %w", li.path, err)
		}
	}
	return nil
}

// Reset empties the index entirely, used by RaftLog.Reset.
func (li *LogIndex) Reset() error { return li.Truncate(0) }

// Rebuild replaces the entire offset array and rewrites the sidecar file
// from scratch, used by Recovery when the sidecar disagrees with the log.
func (li *LogIndex) Rebuild(offsets []int64) error {
	if li.f != nil {
		if err := li.f.Truncate(0); err != nil {
			return fmt.Errorf("rebuild sidecar %s: %w", li.path, err)
		}
		buf := make([]byte, len(offsets)*offsetWidth)
		for i, off := range offsets {
			binary.LittleEndian.PutUint64(buf[i*offsetWidth:], uint64(off))
		}
		if _, err := li.f.WriteAt(buf, 0); err != nil {
			return fmt.Errorf("rebuild sidecar %s: %w", li.path, err)
		}
	}
	li.offsets = append([]int64(nil), offsets...)
	return nil
}

// Sync flushes the sidecar file to stable storage.
func (li *LogIndex) Sync() error {
	if li.f == nil {
		return nil
	}
	if err := li.f.Sync(); err != nil {
		return fmt.Errorf("sync sidecar %s: %w", li.path, err)
	}
	return nil
}

// Close closes the sidecar file handle.
func (li *LogIndex) Close() error {
	if li.f == nil {
		return nil
	}
	if err := li.f.Close(); err != nil {
		return fmt.Errorf("close sidecar %s: %w", li.path, err)
	}
	return nil
}
