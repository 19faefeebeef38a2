package leafio

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleLeaves() []Leaf {
	return []Leaf{
		{X: 0, Y: 0, Z: 0, Depth: 8, Prob: 0.7},
		{X: 1, Y: 2, Z: 3, Depth: 4, Prob: 0.0},
		{X: 10, Y: 20, Z: 30, Depth: 12, Prob: 1.0},
	}
}

func TestWriteThenRead_RoundTripsMultiset(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter().Write(sampleLeaves(), &buf))

	got, err := Read(&buf)
	require.NoError(t, err)
	assert.ElementsMatch(t, sampleLeaves(), got)
}

func TestWrite_NoHeaderLine(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter().Write(sampleLeaves(), &buf))
	assert.NotContains(t, buf.String(), "x,y,z,depth,prob")
}

func TestRead_RejectsMalformedLine(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte("1,2,3\n")))
	assert.Error(t, err)
}

func TestGzipWriter_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "leaves.csv.gz")
	require.NoError(t, NewGzipWriter().WriteToFile(sampleLeaves(), path))

	got, err := ReadGzipFile(path)
	require.NoError(t, err)
	assert.ElementsMatch(t, sampleLeaves(), got)
}

func TestZstdWriter_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "leaves.csv.zst")
	require.NoError(t, NewZstdWriter().WriteToFile(sampleLeaves(), path))

	got, err := ReadZstdFile(path)
	require.NoError(t, err)
	assert.ElementsMatch(t, sampleLeaves(), got)
}

func TestWriteToFileThenReadFile_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "leaves.csv")
	require.NoError(t, NewWriter().WriteToFile(sampleLeaves(), path))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.ElementsMatch(t, sampleLeaves(), got)
}
