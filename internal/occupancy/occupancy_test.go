package occupancy

import (
	"testing"

	"github.com/octoweave/octoweave/internal/chunkgrid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitBox() chunkgrid.AABB {
	return chunkgrid.AABB{Min: [3]float64{0, 0, 0}, Max: [3]float64{1, 1, 1}}
}

func TestEmit_SingleVoxelSingleChunk(t *testing.T) {
	out, err := Emit([]Point3{{X: 0.2, Y: 0.2, Z: 0.2}}, Config{Box: unitBox()})
	require.NoError(t, err)

	require.Len(t, out.Ptd, 1)
	p, ok := out.Ptd[chunkgrid.Key{X: 0, Y: 0, Z: 0}]
	require.True(t, ok)
	assert.InDelta(t, 0.7, p, 1e-12)
}

func TestEmit_TwoCoincidentPointsSameVoxel(t *testing.T) {
	out, err := Emit([]Point3{
		{X: 0.2, Y: 0.2, Z: 0.2},
		{X: 0.25, Y: 0.2, Z: 0.2},
	}, Config{Box: unitBox()})
	require.NoError(t, err)

	p := out.Ptd[chunkgrid.Key{X: 0, Y: 0, Z: 0}]
	assert.InDelta(t, 0.91, p, 1e-12)
}

func TestEmit_Deterministic(t *testing.T) {
	points := []Point3{{X: 0.1, Y: 0.2, Z: 0.3}, {X: 0.6, Y: 0.6, Z: 0.6}, {X: 0.9, Y: 0.1, Z: 0.4}}
	cfg := Config{Box: chunkgrid.AABB{Min: [3]float64{0, 0, 0}, Max: [3]float64{8, 8, 8}}, Res: 1.0}

	a, err := Emit(points, cfg)
	require.NoError(t, err)
	b, err := Emit(points, cfg)
	require.NoError(t, err)

	assert.Equal(t, a.TD, b.TD)
	assert.Equal(t, a.Ptd, b.Ptd)
}

func TestEmit_CoarserEmitResDownsamplesOneDepth(t *testing.T) {
	points := []Point3{{X: 0.1, Y: 0.1, Z: 0.1}, {X: 0.9, Y: 0.9, Z: 0.9}, {X: 0.4, Y: 0.1, Z: 0.6}}
	box := chunkgrid.AABB{Min: [3]float64{0, 0, 0}, Max: [3]float64{1, 1, 1}}

	fine, err := Emit(points, Config{Box: box, Res: 0.125})
	require.NoError(t, err)

	coarse, err := Emit(points, Config{Box: box, Res: 0.125, EmitRes: 0.25})
	require.NoError(t, err)

	assert.Equal(t, fine.TD-1, coarse.TD)
	assert.LessOrEqual(t, len(coarse.Ptd), len(fine.Ptd))
}

func TestEmit_RejectsInvalidClampRange(t *testing.T) {
	_, err := Emit(nil, Config{Box: unitBox(), ClampMin: 0.9, ClampMax: 0.1})
	assert.Error(t, err)
}

func TestEmit_EmptyPointsYieldsEmptyMap(t *testing.T) {
	out, err := Emit(nil, Config{Box: unitBox()})
	require.NoError(t, err)
	assert.Empty(t, out.Ptd)
}

func TestEmit_MaxDepthCapClampsTD(t *testing.T) {
	box := chunkgrid.AABB{Min: [3]float64{0, 0, 0}, Max: [3]float64{256, 256, 256}}
	out, err := Emit([]Point3{{X: 1, Y: 1, Z: 1}}, Config{Box: box, Res: 1.0, MaxDepthCap: 3})
	require.NoError(t, err)
	assert.LessOrEqual(t, int(out.TD), 3)
}
