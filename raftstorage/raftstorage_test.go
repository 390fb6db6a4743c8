package raftstorage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.etcd.io/raft/v3"
	"go.etcd.io/raft/v3/raftpb"

	"github.com/shaj13/raftlog"
)

func newStorage(t *testing.T) *Storage {
	t.Helper()
	path := filepath.Join(t.TempDir(), "log")
	log, err := raftlog.Create(path, "db-1", 1, 0, 0)
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })
	return New(log, raftpb.ConfState{})
}

func TestAppendThenEntries(t *testing.T) {
	s := newStorage(t)
	require.NoError(t, s.Append([]raftpb.Entry{
		{Index: 1, Term: 1, Data: []byte("a")},
		{Index: 2, Term: 1, Data: []byte("b")},
	}))

	ents, err := s.Entries(1, 3, 1<<20)
	require.NoError(t, err)
	require.Len(t, ents, 2)
	require.Equal(t, []byte("a"), ents[0].Data)

	last, err := s.LastIndex()
	require.NoError(t, err)
	require.EqualValues(t, 2, last)

	first, err := s.FirstIndex()
	require.NoError(t, err)
	require.EqualValues(t, 1, first)
}

func TestEntriesOutOfRange(t *testing.T) {
	s := newStorage(t)
	require.NoError(t, s.Append([]raftpb.Entry{{Index: 1, Term: 1, Data: []byte("a")}}))

	_, err := s.Entries(0, 2, 1<<20)
	require.ErrorIs(t, err, raft.ErrCompacted)

	_, err = s.Entries(1, 5, 1<<20)
	require.ErrorIs(t, err, raft.ErrUnavailable)
}

func TestAppendTruncatesConflictingSuffix(t *testing.T) {
	s := newStorage(t)
	require.NoError(t, s.Append([]raftpb.Entry{
		{Index: 1, Term: 1, Data: []byte("a")},
		{Index: 2, Term: 1, Data: []byte("b")},
	}))
	require.NoError(t, s.Append([]raftpb.Entry{
		{Index: 2, Term: 2, Data: []byte("b2")},
	}))

	ents, err := s.Entries(1, 3, 1<<20)
	require.NoError(t, err)
	require.Len(t, ents, 2)
	require.Equal(t, []byte("b2"), ents[1].Data)
	require.EqualValues(t, 2, ents[1].Term)
}

func TestSaveHardStateReflectedInInitialState(t *testing.T) {
	s := newStorage(t)
	require.NoError(t, s.SaveHardState(raftpb.HardState{Term: 7, Vote: 3}))

	hs, _, err := s.InitialState()
	require.NoError(t, err)
	require.EqualValues(t, 7, hs.Term)
	require.EqualValues(t, 3, hs.Vote)
}

func TestSnapshotAlwaysTemporarilyUnavailable(t *testing.T) {
	s := newStorage(t)
	_, err := s.Snapshot()
	require.ErrorIs(t, err, raft.ErrSnapshotTemporarilyUnavailable)
}
