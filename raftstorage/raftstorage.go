// Package raftstorage adapts a *raftlog.RaftLog to go.etcd.io/raft/v3's
// Storage interface, the same role internal/storage/raftwal/storage.go
// plays in the teacher repository, just over this module's own log
// instead of a multi-file WAL. Everything upstream of this interface — the
// consensus engine, leader election, snapshot generation — is out of
// scope; this package only speaks the interface, nothing more.
package raftstorage

import (
	"fmt"

	"go.etcd.io/raft/v3"
	"go.etcd.io/raft/v3/raftpb"

	"github.com/shaj13/raftlog"
)

// Storage implements raft.Storage over a *raftlog.RaftLog. It does not
// implement snapshotting itself: that is the job of a separate,
// out-of-scope collaborator that calls RaftLog.Reset once a snapshot has
// been installed.
type Storage struct {
	log       *raftlog.RaftLog
	confState raftpb.ConfState
}

var _ raft.Storage = (*Storage)(nil)

// New wraps log, reporting confState as part of InitialState until a
// membership change updates it via SetConfState.
func New(log *raftlog.RaftLog, confState raftpb.ConfState) *Storage {
	return &Storage{log: log, confState: confState}
}

// SetConfState updates the ConfState returned by InitialState, called by
// the driver applying a membership-change entry.
func (s *Storage) SetConfState(cs raftpb.ConfState) { s.confState = cs }

// InitialState implements raft.Storage.
func (s *Storage) InitialState() (raftpb.HardState, raftpb.ConfState, error) {
	vote := uint64(0)
	if v := s.log.Vote(); v >= 0 {
		vote = uint64(v)
	}
	hs := raftpb.HardState{Term: s.log.Term(), Vote: vote}
	return hs, s.confState, nil
}

// Entries implements raft.Storage, returning entries in [lo, hi) bounded
// by maxSize bytes (always returning at least one entry if any exist).
func (s *Storage) Entries(lo, hi, maxSize uint64) ([]raftpb.Entry, error) {
	if lo < s.log.FirstIndex() {
		return nil, raft.ErrCompacted
	}
	if hi > s.log.LastIndex()+1 {
		return nil, raft.ErrUnavailable
	}

	var ents []raftpb.Entry
	var size uint64
	for i := lo; i < hi; i++ {
		ref := s.log.Get(i)
		if ref == nil {
			break
		}
		e := ref.Entry()
		pe := raftpb.Entry{Term: e.Term, Index: i, Type: toRaftEntryType(e.Type), Data: e.Data}
		ref.Release()

		size += uint64(pe.Size())
		if len(ents) > 0 && size > maxSize {
			break
		}
		ents = append(ents, pe)
	}
	return ents, nil
}

// Term implements raft.Storage.
func (s *Storage) Term(index uint64) (uint64, error) {
	base, baseTerm := s.log.SnapshotBase()
	if index == base {
		return baseTerm, nil
	}
	if index < base {
		return 0, raft.ErrCompacted
	}
	ref := s.log.Get(index)
	if ref == nil {
		return 0, raft.ErrUnavailable
	}
	defer ref.Release()
	return ref.Entry().Term, nil
}

// LastIndex implements raft.Storage.
func (s *Storage) LastIndex() (uint64, error) { return s.log.LastIndex(), nil }

// FirstIndex implements raft.Storage.
func (s *Storage) FirstIndex() (uint64, error) { return s.log.FirstIndex(), nil }

// Snapshot implements raft.Storage. Snapshot generation is owned entirely
// by an external collaborator and this adapter keeps no snapshot of its
// own, so it always reports the snapshot as temporarily unavailable, also
// after that collaborator has called RaftLog.Reset.
func (s *Storage) Snapshot() (raftpb.Snapshot, error) {
	return raftpb.Snapshot{}, raft.ErrSnapshotTemporarilyUnavailable
}

// Append persists a batch of entries delivered by the consensus engine
// (typically from a raft.Ready), truncating any conflicting suffix first,
// then durably syncs the log.
func (s *Storage) Append(entries []raftpb.Entry) error {
	for _, e := range entries {
		if e.Index <= s.log.LastIndex() {
			if _, err := s.log.Delete(e.Index, nil); err != nil {
				return fmt.Errorf("raftstorage: truncate conflicting suffix at %d: %w", e.Index, err)
			}
		}
		entry := &raftlog.Entry{Term: e.Term, Type: fromRaftEntryType(e.Type), Data: e.Data}
		if err := s.log.Append(entry); err != nil {
			return fmt.Errorf("raftstorage: append entry %d: %w", e.Index, err)
		}
	}
	if err := s.log.Sync(); err != nil {
		return fmt.Errorf("raftstorage: sync after append: %w", err)
	}
	return nil
}

// SaveHardState persists the term and vote from a raft.Ready.
func (s *Storage) SaveHardState(hs raftpb.HardState) error {
	if err := s.log.SetTerm(hs.Term, int32(hs.Vote)); err != nil {
		return fmt.Errorf("raftstorage: save hard state: %w", err)
	}
	return s.log.Sync()
}

func toRaftEntryType(t raftlog.EntryType) raftpb.EntryType {
	if t == raftlog.EntryConfig {
		return raftpb.EntryConfChange
	}
	return raftpb.EntryNormal
}

func fromRaftEntryType(t raftpb.EntryType) raftlog.EntryType {
	switch t {
	case raftpb.EntryConfChange, raftpb.EntryConfChangeV2:
		return raftlog.EntryConfig
	default:
		return raftlog.EntryNormal
	}
}

