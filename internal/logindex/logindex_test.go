package logindex

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func tempPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "log.idx")
}

func TestCreateAppendOpenRoundTrip(t *testing.T) {
	path := tempPath(t)

	li, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, li.Append(0))
	require.NoError(t, li.Append(37))
	require.NoError(t, li.Append(91))
	require.NoError(t, li.Sync())
	require.NoError(t, li.Close())

	li2, existed, err := Open(path)
	require.NoError(t, err)
	require.True(t, existed)
	require.Equal(t, 3, li2.Len())
	off, ok := li2.Get(1)
	require.True(t, ok)
	require.EqualValues(t, 37, off)
}

func TestOpenMissingReportsNotExisted(t *testing.T) {
	_, existed, err := Open(tempPath(t))
	require.NoError(t, err)
	require.False(t, existed)
}

func TestTruncateAndReset(t *testing.T) {
	li, err := Create(tempPath(t))
	require.NoError(t, err)
	for _, o := range []int64{1, 2, 3, 4} {
		require.NoError(t, li.Append(o))
	}
	require.NoError(t, li.Truncate(2))
	require.Equal(t, 2, li.Len())
	_, ok := li.Get(2)
	require.False(t, ok)

	require.NoError(t, li.Reset())
	require.Zero(t, li.Len())
}

func TestEqualDetectsSameLengthDivergence(t *testing.T) {
	li, err := Create(tempPath(t))
	require.NoError(t, err)
	require.NoError(t, li.Append(1))
	require.NoError(t, li.Append(2))

	require.True(t, li.Equal([]int64{1, 2}))
	require.False(t, li.Equal([]int64{1, 3}))
	require.False(t, li.Equal([]int64{1}))
	require.False(t, li.Equal([]int64{1, 2, 3}))
}

func TestRebuildReplacesContent(t *testing.T) {
	path := tempPath(t)
	li, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, li.Append(1))

	require.NoError(t, li.Rebuild([]int64{5, 10, 15}))
	require.Equal(t, 3, li.Len())
	require.NoError(t, li.Close())

	li2, _, err := Open(path)
	require.NoError(t, err)
	off, ok := li2.Get(2)
	require.True(t, ok)
	require.EqualValues(t, 15, off)
}
