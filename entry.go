package raftlog

import "sync/atomic"

// EntryType distinguishes the kind of command carried by an Entry.
type EntryType int32

const (
	// EntryNormal is a regular, application-visible command.
	EntryNormal EntryType = iota
	// EntryNoOp is appended by a new leader to commit across a term
	// boundary; it carries no application payload.
	EntryNoOp
	// EntryConfig describes a cluster membership change.
	EntryConfig
	// EntrySession describes client session bookkeeping (dedup ids,
	// linearizable-read markers, and the like).
	EntrySession
)

func (t EntryType) String() string {
	switch t {
	case EntryNormal:
		return "normal"
	case EntryNoOp:
		return "noop"
	case EntryConfig:
		return "config"
	case EntrySession:
		return "session"
	default:
		return "unknown"
	}
}

// Entry is a single, immutable log record. Once appended its fields are
// never mutated; Data must not be modified by callers after Append returns.
type Entry struct {
	Term uint64
	Type EntryType
	ID   uint32
	Data []byte
}

func cloneEntry(e *Entry) *Entry {
	data := make([]byte, len(e.Data))
	copy(data, e.Data)
	return &Entry{Term: e.Term, Type: e.Type, ID: e.ID, Data: data}
}

// EntryRef is a reference-counted handle to an Entry. The log, its cache,
// and any number of callers may hold a live EntryRef simultaneously; the
// payload is only eligible for release once every holder has called
// Release. EntryRef never references its owning RaftLog, so there are no
// ownership cycles.
type EntryRef struct {
	e    *Entry
	refs int32
}

// NewEntryRef wraps e in a new EntryRef with a single reference.
func NewEntryRef(e *Entry) *EntryRef {
	return &EntryRef{e: e, refs: 1}
}

// Retain increments the reference count and returns the receiver, so that
// callers can write ref = ref.Retain() when handing out a second handle to
// the same entry.
func (r *EntryRef) Retain() *EntryRef {
	atomic.AddInt32(&r.refs, 1)
	return r
}

// Release decrements the reference count. Once it reaches zero the
// underlying Entry is dropped; further calls to Entry return nil.
func (r *EntryRef) Release() {
	if r == nil {
		return
	}
	if atomic.AddInt32(&r.refs, -1) <= 0 {
		r.e = nil
	}
}

// Entry returns the wrapped Entry, or nil if every reference has already
// been released.
func (r *EntryRef) Entry() *Entry {
	if r == nil {
		return nil
	}
	return r.e
}
