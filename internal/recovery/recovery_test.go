package recovery

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shaj13/raftlog/internal/logfile"
	"github.com/shaj13/raftlog/internal/record"
)

func newLog(t *testing.T) *logfile.LogFile {
	t.Helper()
	lf, err := logfile.Create(filepath.Join(t.TempDir(), "log"))
	require.NoError(t, err)
	t.Cleanup(func() { lf.Close() })
	return lf
}

func writeHeader(t *testing.T, lf *logfile.LogFile, base, term uint64) {
	t.Helper()
	_, err := lf.Append(record.NewHeader("db", 1, base, term))
	require.NoError(t, err)
}

func TestRecoversCleanFile(t *testing.T) {
	lf := newLog(t)
	writeHeader(t, lf, 0, 0)
	_, err := lf.Append(record.NewEntry(1, 1, 0, []byte("a")))
	require.NoError(t, err)
	_, err = lf.Append(record.NewEntry(1, 2, 0, []byte("b")))
	require.NoError(t, err)

	st, err := Run(lf)
	require.NoError(t, err)
	require.Len(t, st.Offsets, 2)
	require.EqualValues(t, -1, st.Vote)
}

func TestCorruptHeaderFails(t *testing.T) {
	lf := newLog(t)
	_, err := lf.Append(record.NewEntry(1, 1, 0, []byte("not a header")))
	require.NoError(t, err)

	_, err = Run(lf)
	require.ErrorIs(t, err, ErrCorruptHeader)
}

func TestTruncatesPartialTrailingRecord(t *testing.T) {
	lf := newLog(t)
	writeHeader(t, lf, 0, 0)
	_, err := lf.Append(record.NewEntry(1, 1, 0, []byte("a")))
	require.NoError(t, err)
	goodEnd := lf.End()

	bad, err := lf.Append(record.NewEntry(1, 2, 0, []byte("bbbb")))
	require.NoError(t, err)
	require.NoError(t, lf.Truncate(bad+2))

	st, err := Run(lf)
	require.NoError(t, err)
	require.Len(t, st.Offsets, 1)
	require.Equal(t, goodEnd, lf.End())
}

func TestTruncatesPastEndSentinel(t *testing.T) {
	lf := newLog(t)
	writeHeader(t, lf, 0, 0)
	_, err := lf.Append(record.NewEntry(1, 1, 0, []byte("a")))
	require.NoError(t, err)
	endOffset := lf.End()
	_, err = lf.Append(record.NewEnd())
	require.NoError(t, err)
	// bytes written after END must never survive recovery.
	_, err = lf.Append(record.NewEntry(1, 99, 0, []byte("ghost")))
	require.NoError(t, err)

	st, err := Run(lf)
	require.NoError(t, err)
	require.Len(t, st.Offsets, 1)
	require.Equal(t, endOffset, lf.End())
}

func TestTermRegressionTruncates(t *testing.T) {
	lf := newLog(t)
	writeHeader(t, lf, 0, 0)
	_, err := lf.Append(record.NewEntry(5, 1, 0, []byte("a")))
	require.NoError(t, err)
	goodEnd := lf.End()
	_, err = lf.Append(record.NewEntry(1, 2, 0, []byte("b")))
	require.NoError(t, err)

	st, err := Run(lf)
	require.NoError(t, err)
	require.Len(t, st.Offsets, 1)
	require.Equal(t, goodEnd, lf.End())
}

func TestRecoversVoteRecord(t *testing.T) {
	lf := newLog(t)
	writeHeader(t, lf, 0, 0)
	_, err := lf.Append(record.NewVote(9, 42))
	require.NoError(t, err)

	st, err := Run(lf)
	require.NoError(t, err)
	require.EqualValues(t, 9, st.CurrentTerm)
	require.EqualValues(t, 42, st.Vote)
}
