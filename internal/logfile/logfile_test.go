package logfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shaj13/raftlog/internal/record"
)

func tempPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "log")
}

func TestCreateFailsOnNonEmptyExisting(t *testing.T) {
	path := tempPath(t)
	require.NoError(t, os.WriteFile(path, []byte("junk"), 0644))

	_, err := Create(path)
	require.Error(t, err)
}

func TestCreateThenOpenRoundTrip(t *testing.T) {
	path := tempPath(t)

	lf, err := Create(path)
	require.NoError(t, err)
	off, err := lf.Append(record.NewEntry(1, 1, 0, []byte("a")))
	require.NoError(t, err)
	require.Zero(t, off)
	require.NoError(t, lf.Sync())
	require.NoError(t, lf.Close())

	lf2, err := Open(path)
	require.NoError(t, err)
	defer lf2.Close()
	require.Equal(t, lf.End(), lf2.End())

	rec, _, err := lf2.ReadAt(0)
	require.NoError(t, err)
	require.Equal(t, record.OpEntry, rec.Opcode)
}

func TestAppendThenScan(t *testing.T) {
	lf, err := Create(tempPath(t))
	require.NoError(t, err)
	defer lf.Close()

	var offsets []int64
	for i := uint32(0); i < 5; i++ {
		off, err := lf.Append(record.NewEntry(1, i, 0, []byte{byte(i)}))
		require.NoError(t, err)
		offsets = append(offsets, off)
	}

	var seen []int64
	stop, err := lf.Scan(0, func(offset int64, rec record.Record) error {
		seen = append(seen, offset)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, lf.End(), stop)
	require.Equal(t, offsets, seen)
}

func TestScanStopsAtTruncatedTail(t *testing.T) {
	lf, err := Create(tempPath(t))
	require.NoError(t, err)
	defer lf.Close()

	off, err := lf.Append(record.NewEntry(1, 1, 0, []byte("ok")))
	require.NoError(t, err)
	goodEnd := lf.End()

	bad, err := lf.Append(record.NewEntry(1, 2, 0, []byte("bad")))
	require.NoError(t, err)
	require.NoError(t, lf.Truncate(bad+3))

	stop, err := lf.Scan(0, func(offset int64, rec record.Record) error { return nil })
	require.Error(t, err)
	require.True(t, errors.Is(err, record.ErrTruncated))
	require.Equal(t, goodEnd, stop)
	_ = off
}

func TestTruncateShrinksEnd(t *testing.T) {
	lf, err := Create(tempPath(t))
	require.NoError(t, err)
	defer lf.Close()

	off, err := lf.Append(record.NewEntry(1, 1, 0, []byte("x")))
	require.NoError(t, err)
	require.NoError(t, lf.Truncate(off))
	require.Equal(t, off, lf.End())
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(tempPath(t))
	require.Error(t, err)
}
