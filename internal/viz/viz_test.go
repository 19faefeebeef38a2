package viz

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/octoweave/octoweave/internal/leafio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_WritesPGMHeaderAndPixels(t *testing.T) {
	dir := t.TempDir()
	pgmPath := filepath.Join(dir, "slice.pgm")

	leaves := []leafio.Leaf{
		{X: 0, Y: 0, Z: 0, Depth: 1, Prob: 1.0},
		{X: 1, Y: 1, Z: 0, Depth: 1, Prob: 0.0},
		{X: 0, Y: 0, Z: 1, Depth: 1, Prob: 1.0}, // different slice, excluded
	}

	err := Render(leaves, Params{SliceZ: 0, Depth: 1, OutPGM: pgmPath})
	require.NoError(t, err)

	data, err := os.ReadFile(pgmPath)
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.HasPrefix(content, "P5\n2 2\n255\n"))
}

func TestRender_WritesHistogramSVGWithDepthComments(t *testing.T) {
	dir := t.TempDir()
	pgmPath := filepath.Join(dir, "slice.pgm")
	svgPath := filepath.Join(dir, "hist.svg")

	leaves := []leafio.Leaf{
		{X: 0, Y: 0, Z: 0, Depth: 1, Prob: 0.5},
		{X: 1, Y: 0, Z: 0, Depth: 1, Prob: 0.5},
		{X: 0, Y: 0, Z: 0, Depth: 2, Prob: 0.9},
	}

	err := Render(leaves, Params{SliceZ: 0, Depth: 1, OutPGM: pgmPath, OutSVG: svgPath})
	require.NoError(t, err)

	data, err := os.ReadFile(svgPath)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "depth 1: count 2")
	assert.Contains(t, content, "depth 2: count 1")
}

func TestRender_RequiresOutPGM(t *testing.T) {
	err := Render(nil, Params{Depth: 1})
	assert.Error(t, err)
}
