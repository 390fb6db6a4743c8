// Package raftlog implements a durable, append-mostly replicated log
// backing a Raft-based state machine. It owns exactly one file (plus a
// rebuildable ".idx" sidecar) per log instance: writing entries and votes
// in a RESP-style multibulk framing, serving random-access reads through
// an in-memory ring-buffer cache, and replaying the file on Open to
// recover from a crash mid-write.
//
// A RaftLog is not safe for concurrent use: every exported method must be
// called from a single goroutine at a time, matching the single-writer,
// single-reader model the consensus engine that owns a log instance
// already provides.
package raftlog

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/shaj13/raftlog/internal/entrycache"
	"github.com/shaj13/raftlog/internal/logfile"
	"github.com/shaj13/raftlog/internal/logindex"
	"github.com/shaj13/raftlog/internal/metrics"
	"github.com/shaj13/raftlog/internal/record"
	"github.com/shaj13/raftlog/internal/recovery"
)

// NoVote is the sentinel vote value meaning "has not voted this term".
const NoVote int32 = -1

const initialCacheCapacity = 64

const sidecarSuffix = ".idx"

// RaftLog is the façade over LogFile, LogIndex, EntryCache and Recovery
// described by this package's design: one handle per on-disk log, valid
// for the lifetime between Create/Open and Close.
type RaftLog struct {
	path      string
	dbid      string
	nodeID    uint64
	headerEnd int64

	lf    *logfile.LogFile
	idx   *logindex.LogIndex
	cache *entrycache.Cache[*EntryRef]

	snapBaseIndex uint64
	snapBaseTerm  uint64
	count         uint64
	lastTerm      uint64

	currentTerm uint64
	vote        int32
}

func sidecarPath(path string) string { return path + sidecarSuffix }

// Create initializes a brand-new log file at path with the given
// identity and snapshot base, then durably persists its header. It fails
// if path already exists and is non-empty.
func Create(path, dbid string, nodeID, snapBaseIndex, snapBaseTerm uint64) (*RaftLog, error) {
	lf, err := logfile.Create(path)
	if err != nil {
		return nil, ioErr("Create", err)
	}

	r := &RaftLog{
		path:          path,
		dbid:          dbid,
		nodeID:        nodeID,
		lf:            lf,
		snapBaseIndex: snapBaseIndex,
		snapBaseTerm:  snapBaseTerm,
		lastTerm:      snapBaseTerm,
		vote:          NoVote,
		cache:         newCache(),
	}

	if err := r.writeHeader(); err != nil {
		lf.Close()
		return nil, err
	}
	if err := lf.Sync(); err != nil {
		lf.Close()
		return nil, ioErr("Create", err)
	}

	idx, err := logindex.Create(sidecarPath(path))
	if err != nil {
		lf.Close()
		return nil, ioErr("Create", err)
	}
	r.idx = idx

	glog.Infof("raftlog: created %s dbid=%s node=%d base=%d/%d", path, dbid, nodeID, snapBaseIndex, snapBaseTerm)
	return r, nil
}

// Open replays an existing log file, repairing a crash-truncated tail and
// rebuilding the sidecar if it is missing or its offsets differ from the
// recovered ones.
func Open(path string) (*RaftLog, error) {
	start := time.Now()

	lf, err := logfile.Open(path)
	if err != nil {
		return nil, ioErr("Open", err)
	}

	st, err := recovery.Run(lf)
	if err != nil {
		lf.Close()
		if errors.Is(err, recovery.ErrCorruptHeader) {
			return nil, corruptHeaderErr("Open", err)
		}
		return nil, ioErr("Open", err)
	}

	r := &RaftLog{
		path:          path,
		dbid:          st.DBID,
		nodeID:        st.NodeID,
		lf:            lf,
		headerEnd:     st.HeaderEnd,
		snapBaseIndex: st.SnapBaseIndex,
		snapBaseTerm:  st.SnapBaseTerm,
		lastTerm:      st.LastTerm,
		currentTerm:   st.CurrentTerm,
		vote:          st.Vote,
		count:         uint64(len(st.Offsets)),
		cache:         newCache(),
	}

	idx, existed, err := logindex.Open(sidecarPath(path))
	if err != nil {
		lf.Close()
		return nil, ioErr("Open", err)
	}
	if !existed || !idx.Equal(st.Offsets) {
		glog.Warningf("raftlog: rebuilding sidecar for %s (existed=%v, idx=%d, recovered=%d)", path, existed, idx.Len(), len(st.Offsets))
		if err := idx.Rebuild(st.Offsets); err != nil {
			lf.Close()
			return nil, ioErr("Open", err)
		}
		if err := idx.Sync(); err != nil {
			lf.Close()
			return nil, ioErr("Open", err)
		}
	}
	r.idx = idx

	metrics.RecoveriesTotal.WithLabelValues(r.dbid).Inc()
	metrics.RecoverySeconds.WithLabelValues(r.dbid).Observe(time.Since(start).Seconds())
	glog.Infof("raftlog: opened %s entries=%d term=%d in %s", path, r.count, r.currentTerm, time.Since(start))
	return r, nil
}

func newCache() *entrycache.Cache[*EntryRef] {
	return entrycache.New[*EntryRef](initialCacheCapacity, func(ref *EntryRef) { ref.Release() })
}

func (r *RaftLog) writeHeader() error {
	rec := record.NewHeader(r.dbid, r.nodeID, r.snapBaseIndex, r.snapBaseTerm)
	off, err := r.lf.Append(rec)
	if err != nil {
		return ioErr("writeHeader", err)
	}
	r.headerEnd = off + record.Size(rec)
	return nil
}

// DBID returns the database identifier recorded in the log's header.
func (r *RaftLog) DBID() string { return r.dbid }

// NodeID returns the node identifier recorded in the log's header.
func (r *RaftLog) NodeID() uint64 { return r.nodeID }

// SnapshotBase returns the logical index and term the log is framed
// relative to: index 0 means "no snapshot yet".
func (r *RaftLog) SnapshotBase() (index, term uint64) { return r.snapBaseIndex, r.snapBaseTerm }

// Term returns the currently persisted term (set by SetTerm).
func (r *RaftLog) Term() uint64 { return r.currentTerm }

// Vote returns the currently persisted vote, or NoVote.
func (r *RaftLog) Vote() int32 { return r.vote }

// Count returns the number of entries currently stored.
func (r *RaftLog) Count() uint64 { return r.count }

// FirstIndex returns the logical index one past the snapshot base: the
// smallest index Get can ever return a hit for.
func (r *RaftLog) FirstIndex() uint64 { return r.snapBaseIndex + 1 }

// LastIndex returns the logical index of the most recently appended
// entry, or the snapshot base index if the log is currently empty.
func (r *RaftLog) LastIndex() uint64 { return r.snapBaseIndex + r.count }

// Append adds entry to the end of the log. Append rejects a term lower
// than the term of the last appended entry (or the snapshot base term if
// the log is empty): terms must never regress within a single log file.
func (r *RaftLog) Append(e *Entry) error {
	if e.Term < r.lastTerm {
		return invariantErr("Append", fmt.Sprintf("term %d is behind last term %d", e.Term, r.lastTerm))
	}

	rec := record.NewEntry(e.Term, e.ID, int32(e.Type), e.Data)
	offset, err := r.lf.Append(rec)
	if err != nil {
		return ioErr("Append", err)
	}
	if err := r.idx.Append(offset); err != nil {
		return ioErr("Append", err)
	}

	r.count++
	r.lastTerm = e.Term
	index := r.snapBaseIndex + r.count

	ref := NewEntryRef(cloneEntry(e))
	if err := r.cache.Append(ref, index); err != nil {
		glog.Errorf("raftlog: cache append out of sequence at index %d: %v", index, err)
	}

	metrics.AppendsTotal.WithLabelValues(r.dbid).Inc()
	return nil
}

// Get returns a retained reference to the entry at index, or nil if index
// is outside [FirstIndex(), LastIndex()]. Callers must call Release on the
// returned EntryRef once done with it.
func (r *RaftLog) Get(index uint64) *EntryRef {
	if index <= r.snapBaseIndex || index > r.snapBaseIndex+r.count {
		return nil
	}

	if ref, ok := r.cache.Get(index); ok {
		metrics.CacheHitsTotal.WithLabelValues(r.dbid).Inc()
		return ref.Retain()
	}
	metrics.CacheMissesTotal.WithLabelValues(r.dbid).Inc()

	slot := int(index - r.snapBaseIndex - 1)
	offset, ok := r.idx.Get(slot)
	if !ok {
		glog.Errorf("raftlog: index slot %d missing for logical index %d", slot, index)
		return nil
	}
	rec, _, err := r.lf.ReadAt(offset)
	if err != nil {
		glog.Errorf("raftlog: decode entry at index %d offset %d: %v", index, offset, err)
		return nil
	}
	term, id, typ, payload, err := record.ParseEntry(rec)
	if err != nil {
		glog.Errorf("raftlog: parse entry at index %d: %v", index, err)
		return nil
	}
	return NewEntryRef(&Entry{Term: term, ID: id, Type: EntryType(typ), Data: payload})
}

// Delete removes every entry with logical index >= fromIndex, notifying
// notify (if non-nil) once per removed entry in ascending logical-index
// order before the removal is applied. It returns the number of entries
// removed.
func (r *RaftLog) Delete(fromIndex uint64, notify Deleter) (int, error) {
	if fromIndex == 0 {
		return 0, invalidArgErr("Delete", "from_index must not be zero")
	}
	if fromIndex < r.snapBaseIndex+1 {
		return 0, invalidArgErr("Delete", "from_index precedes the first index")
	}
	last := r.LastIndex()
	if fromIndex > last {
		return 0, nil
	}

	if notify != nil {
		for j := fromIndex; j <= last; j++ {
			ref := r.Get(j)
			if ref == nil {
				continue
			}
			notify.OnDeleted(ref.Entry(), j)
			ref.Release()
		}
	}

	keep := int(fromIndex - r.snapBaseIndex - 1)
	truncOffset := r.headerEnd
	if keep > 0 {
		off, ok := r.idx.Get(keep - 1)
		if !ok {
			return 0, ioErr("Delete", fmt.Errorf("missing index slot %d", keep-1))
		}
		_, size, err := r.lf.ReadAt(off)
		if err != nil {
			return 0, ioErr("Delete", err)
		}
		truncOffset = off + size
	}

	if err := r.lf.Truncate(truncOffset); err != nil {
		return 0, ioErr("Delete", err)
	}
	if err := r.idx.Truncate(keep); err != nil {
		return 0, ioErr("Delete", err)
	}
	if r.cache.DeleteTail(fromIndex) < 0 {
		// fromIndex lies outside the cached range: when the cache starts
		// after fromIndex every cached entry is being removed, so drop them
		// all rather than leave stale entries behind.
		r.cache.Free()
	}

	n := int(last - fromIndex + 1)
	r.count = uint64(keep)
	r.lastTerm = r.recomputeLastTerm()

	metrics.DeletesTotal.WithLabelValues(r.dbid).Add(float64(n))
	glog.Infof("raftlog: deleted %d entries from index %d", n, fromIndex)
	return n, nil
}

func (r *RaftLog) recomputeLastTerm() uint64 {
	if r.count == 0 {
		return r.snapBaseTerm
	}
	ref := r.Get(r.LastIndex())
	if ref == nil {
		return r.snapBaseTerm
	}
	defer ref.Release()
	return ref.Entry().Term
}

// Reset discards every entry in the log and reframes it at a new
// snapshot base, writing a fresh header. It is used after installing a
// snapshot that subsumes the entire log.
func (r *RaftLog) Reset(newBaseIndex, newBaseTerm uint64) error {
	r.cache.Free()
	if err := r.idx.Reset(); err != nil {
		return ioErr("Reset", err)
	}
	if err := r.lf.Truncate(0); err != nil {
		return ioErr("Reset", err)
	}

	r.snapBaseIndex = newBaseIndex
	r.snapBaseTerm = newBaseTerm
	r.count = 0
	r.lastTerm = newBaseTerm

	if err := r.writeHeader(); err != nil {
		return err
	}
	if err := r.lf.Sync(); err != nil {
		return ioErr("Reset", err)
	}

	glog.Infof("raftlog: reset %s to base %d/%d", r.path, newBaseIndex, newBaseTerm)
	return nil
}

// SetTerm persists the current term and vote. term must not regress
// behind the previously persisted term.
func (r *RaftLog) SetTerm(term uint64, vote int32) error {
	if term < r.currentTerm {
		return invariantErr("SetTerm", fmt.Sprintf("term %d is behind current term %d", term, r.currentTerm))
	}
	if _, err := r.lf.Append(record.NewVote(term, vote)); err != nil {
		return ioErr("SetTerm", err)
	}
	r.currentTerm = term
	r.vote = vote
	return nil
}

// Sync durably flushes both the log file and its sidecar index.
func (r *RaftLog) Sync() error {
	start := time.Now()
	if err := r.lf.Sync(); err != nil {
		return ioErr("Sync", err)
	}
	if err := r.idx.Sync(); err != nil {
		return ioErr("Sync", err)
	}
	metrics.SyncSeconds.WithLabelValues(r.dbid).Observe(time.Since(start).Seconds())
	return nil
}

// Close releases every resource held by the log: the cached entries, the
// sidecar file handle, and the main file handle and its advisory lock.
func (r *RaftLog) Close() error {
	r.cache.Free()
	if err := r.idx.Close(); err != nil {
		return ioErr("Close", err)
	}
	if err := r.lf.Close(); err != nil {
		return ioErr("Close", err)
	}
	return nil
}

// LoadEntries enumerates every entry currently in the log, in ascending
// logical-index order, calling load for each one and warming the entry
// cache as it goes. It returns the number of entries enumerated. A
// non-zero return from load.OnLoaded stops the scan early.
func (r *RaftLog) LoadEntries(load Loader) (int, error) {
	n := 0
	for j := r.FirstIndex(); j <= r.LastIndex(); j++ {
		ref := r.Get(j)
		if ref == nil {
			return n, ioErr("LoadEntries", fmt.Errorf("missing entry at index %d", j))
		}
		if _, cached := r.cache.Get(j); !cached {
			if err := r.cache.Append(ref.Retain(), j); err != nil {
				glog.Warningf("raftlog: could not warm cache at index %d: %v", j, err)
			}
		}

		n++
		if load != nil {
			rc := load.OnLoaded(ref.Entry(), j)
			ref.Release()
			if rc != 0 {
				return n, nil
			}
			continue
		}
		ref.Release()
	}
	return n, nil
}

// Path reports the filesystem path this log was created or opened from.
func (r *RaftLog) Path() string { return r.path }

// SidecarPath reports the path of the ".idx" sidecar companion file.
func (r *RaftLog) SidecarPath() string { return sidecarPath(r.path) }
