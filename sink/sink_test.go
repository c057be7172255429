package sink

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ogzhanolguncu/product-stats/logger"
	"github.com/ogzhanolguncu/product-stats/map_reduce"
)

func testManifest() Manifest {
	started := time.Date(2026, 10, 19, 8, 30, 0, 125000000, time.UTC)
	return Manifest{
		Started:    started,
		Finished:   started.Add(1500 * time.Millisecond),
		JobID:      "4d1c6e9a-0000-4000-8000-000000000001",
		Nodes:      4,
		Reducers:   2,
		Splits:     4,
		Keys:       2,
		Records:    3,
		InputBytes: 14,
	}
}

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewWriterSink(&buf)

	require.NoError(t, s.Commit([]string{"a", "b"}, testManifest()))
	require.Equal(t, "a\nb\n", buf.String())
}

func TestDirSinkPrepareClearsOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	stale := filepath.Join(dir, "part-r-00003")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))

	s := NewDirSink(dir, logger.Discard())
	require.NoError(t, s.Prepare(0))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestDirSinkPrepareReplacesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	s := NewDirSink(path, logger.Discard())
	require.NoError(t, s.Prepare(0))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestDirSinkCommit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	s := NewDirSink(dir, logger.Discard())
	require.NoError(t, s.Prepare(0))

	lines := []string{
		"Product 1: \tCount: 2, Average: 15.0, Min: 10, Max: 20",
		"Product 2: \tCount: 1, Average: 5.0, Min: 5, Max: 5",
	}
	m := testManifest()
	require.NoError(t, s.Commit(lines, m))

	got, err := os.ReadFile(filepath.Join(dir, PartFile))
	require.NoError(t, err)
	require.Equal(t, lines[0]+"\n"+lines[1]+"\n", string(got))

	read, err := ReadManifest(dir)
	require.NoError(t, err)
	require.Equal(t, m.JobID, read.JobID)
	require.Equal(t, m.Records, read.Records)
	require.Equal(t, m.Reducers, read.Reducers)
	require.True(t, m.Started.Equal(read.Started))
	require.True(t, m.Finished.Equal(read.Finished))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2, "temp files must not be left behind")
}

func TestReadManifestMissing(t *testing.T) {
	_, err := ReadManifest(t.TempDir())
	require.ErrorIs(t, err, map_reduce.ErrIO)
}

func TestDirSinkPrepareRejectsFullDisk(t *testing.T) {
	base := t.TempDir()
	if _, ok, err := availableBytes(base); err != nil || !ok {
		t.Skip("free space not reported on this platform")
	}

	s := NewDirSink(filepath.Join(base, "out"), logger.Discard())
	err := s.Prepare(1 << 62)
	require.ErrorIs(t, err, map_reduce.ErrIO)
}

func TestDirSinkCommitIsAllOrNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	s := NewDirSink(dir, logger.Discard())
	require.NoError(t, s.Prepare(0))

	// A non-empty directory in the marker's place makes its rename fail.
	blocker := filepath.Join(dir, SuccessFile)
	require.NoError(t, os.MkdirAll(filepath.Join(blocker, "keep"), 0o755))

	err := s.Commit([]string{"Product 1: \tCount: 1, Average: 5.0, Min: 5, Max: 5"}, testManifest())
	require.ErrorIs(t, err, map_reduce.ErrIO)

	_, err = os.Stat(filepath.Join(dir, PartFile))
	require.True(t, os.IsNotExist(err), "part file must not survive a failed commit")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "only the blocking directory should remain")
	require.Equal(t, SuccessFile, entries[0].Name())
}
