package vector

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenOrCreateSegmentWinnerThenLoser(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	winner, won, err := openOrCreateSegment(dir, "winner-loser", 8, 4)
	require.NoError(t, err)
	require.True(t, won)

	defer func() { _ = winner.close() }()

	loser, won2, err := openOrCreateSegment(dir, "winner-loser", 8, 4)
	require.NoError(t, err)
	require.False(t, won2)

	defer func() { _ = loser.close() }()

	require.Equal(t, uint64(4), *fieldPtr(loser.data, offCapacity))
	require.Equal(t, uint64(8), *fieldPtr(loser.data, offESize))
}

func TestSegmentUnlinkIsIdempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	seg, _, err := openOrCreateSegment(dir, "unlink-twice", 8, 4)
	require.NoError(t, err)

	defer func() { _ = seg.close() }()

	require.NoError(t, seg.unlink())
	require.NoError(t, seg.unlink())
}

func TestSegmentSizeMatchesHeaderPlusRegions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	seg, _, err := openOrCreateSegment(dir, "sized", 16, 10)
	require.NoError(t, err)

	defer func() { _ = seg.close() }()

	want := segmentSize(10, 16)
	require.Equal(t, int(want), len(seg.data))

	path := filepath.Join(dir, "sized")
	require.FileExists(t, path)
}
