package hierarchy

import (
	"testing"

	"github.com/octoweave/octoweave/internal/chunkgrid"
	"github.com/octoweave/octoweave/internal/occupancy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_RejectsBaseDepthAboveTD(t *testing.T) {
	outputs := []occupancy.Output{
		{TD: 1, Ptd: map[chunkgrid.Key]float64{{X: 0, Y: 0, Z: 0}: 0.9}},
	}
	_, err := Build(outputs, BuildConfig{BaseDepth: 2, Tau: 0.5})
	assert.Error(t, err)
}

func TestBuild_SingleWorkerSingleNodeIsLeaf(t *testing.T) {
	outputs := []occupancy.Output{
		{TD: 0, Ptd: map[chunkgrid.Key]float64{{X: 0, Y: 0, Z: 0}: 0.9}},
	}
	h, err := Build(outputs, BuildConfig{Tau: 0.5, PUnknown: 0.5})
	require.NoError(t, err)
	assert.Equal(t, uint8(0), h.TD)

	n, ok := h.Nodes[NDKey{Key: chunkgrid.Key{X: 0, Y: 0, Z: 0}, Depth: 0}]
	require.True(t, ok)
	assert.True(t, n.IsLeaf)
	assert.InDelta(t, 0.9, n.Probability, 1e-12)
}

func TestBuild_RefinementGateRequiresEvidenceAndThreshold(t *testing.T) {
	// A depth-0 root rolled up from 8 children at depth 1, all present.
	// The root has full child evidence but stays below tau, so it must be
	// emitted as a leaf and its children must not be materialized.
	children := map[chunkgrid.Key]float64{}
	for i := 0; i < 8; i++ {
		x := uint32(i & 1)
		y := uint32((i >> 1) & 1)
		z := uint32((i >> 2) & 1)
		children[chunkgrid.Key{X: x, Y: y, Z: z}] = 0.1
	}
	outputs := []occupancy.Output{{TD: 1, Ptd: children}}

	// Rolled-up root probability is 1-(0.9)^8 ~= 0.5695, below tau: the
	// refinement gate must suppress the split despite full child evidence.
	h, err := Build(outputs, BuildConfig{Tau: 0.9, PUnknown: 0.2})
	require.NoError(t, err)
	require.Equal(t, uint8(1), h.TD)

	root, ok := h.Nodes[NDKey{Key: chunkgrid.Key{X: 0, Y: 0, Z: 0}, Depth: 0}]
	require.True(t, ok)
	assert.True(t, root.IsLeaf, "root probability under tau must emit as a leaf despite having children")

	for i := 0; i < 8; i++ {
		x := uint32(i & 1)
		y := uint32((i >> 1) & 1)
		z := uint32((i >> 2) & 1)
		k := chunkgrid.Key{X: x, Y: y, Z: z}
		_, ok := h.Nodes[NDKey{Key: k, Depth: 1}]
		assert.False(t, ok, "children of a leaf node are not emitted")
	}
	assert.Len(t, h.Nodes, 1)
}

func TestBuild_InternalNodeRefinesWhenAboveTauWithEvidence(t *testing.T) {
	children := map[chunkgrid.Key]float64{}
	for i := 0; i < 8; i++ {
		x := uint32(i & 1)
		y := uint32((i >> 1) & 1)
		z := uint32((i >> 2) & 1)
		children[chunkgrid.Key{X: x, Y: y, Z: z}] = 0.95
	}
	outputs := []occupancy.Output{{TD: 1, Ptd: children}}

	h, err := Build(outputs, BuildConfig{Tau: 0.5, PUnknown: 0.2})
	require.NoError(t, err)

	root, ok := h.Nodes[NDKey{Key: chunkgrid.Key{X: 0, Y: 0, Z: 0}, Depth: 0}]
	require.True(t, ok)
	assert.False(t, root.IsLeaf)

	for i := 0; i < 8; i++ {
		x := uint32(i & 1)
		y := uint32((i >> 1) & 1)
		z := uint32((i >> 2) & 1)
		_, ok := h.Nodes[NDKey{Key: chunkgrid.Key{X: x, Y: y, Z: z}, Depth: 1}]
		assert.True(t, ok)
	}
}

func TestBuild_MissingChildRollupUsesPUnknown(t *testing.T) {
	// Scenario: one occupied child at p=0 out of eight, the rest unknown.
	children := map[chunkgrid.Key]float64{
		{X: 0, Y: 0, Z: 0}: 0.0,
	}
	outputs := []occupancy.Output{{TD: 1, Ptd: children}}

	h, err := Build(outputs, BuildConfig{Tau: 0, PUnknown: 0.25})
	require.NoError(t, err)

	root, ok := h.Nodes[NDKey{Key: chunkgrid.Key{X: 0, Y: 0, Z: 0}, Depth: 0}]
	require.True(t, ok)
	assert.InDelta(t, 0.86651611328125, root.Probability, 1e-9)
}

func TestBuild_MergesTwoWorkersAtSameDepthViaUnionTwo(t *testing.T) {
	k := chunkgrid.Key{X: 2, Y: 2, Z: 2}
	outputs := []occupancy.Output{
		{TD: 2, Ptd: map[chunkgrid.Key]float64{k: 0.7}},
		{TD: 2, Ptd: map[chunkgrid.Key]float64{k: 0.7}},
	}
	h, err := Build(outputs, BuildConfig{BaseDepth: 2, Tau: 0.5, PUnknown: 0.2})
	require.NoError(t, err)

	n, ok := h.Nodes[NDKey{Key: k, Depth: 2}]
	require.True(t, ok)
	assert.InDelta(t, 0.91, n.Probability, 1e-12)
}

func TestBuild_LogOddsThreshold(t *testing.T) {
	children := map[chunkgrid.Key]float64{}
	for i := 0; i < 8; i++ {
		x := uint32(i & 1)
		y := uint32((i >> 1) & 1)
		z := uint32((i >> 2) & 1)
		children[chunkgrid.Key{X: x, Y: y, Z: z}] = 0.9
	}
	outputs := []occupancy.Output{{TD: 1, Ptd: children}}

	h, err := Build(outputs, BuildConfig{Tau: 0, UseLogOdds: true, PUnknown: 0.2})
	require.NoError(t, err)

	root := h.Nodes[NDKey{Key: chunkgrid.Key{X: 0, Y: 0, Z: 0}, Depth: 0}]
	assert.False(t, root.IsLeaf)
}

func TestBuild_Scenario4RefinementGateLiteral(t *testing.T) {
	children := map[chunkgrid.Key]float64{
		{X: 0, Y: 0, Z: 0}: 0.6,
		{X: 1, Y: 0, Z: 0}: 0.6,
		{X: 0, Y: 1, Z: 0}: 0.6,
		{X: 1, Y: 1, Z: 0}: 0.6,
	}
	outputs := []occupancy.Output{{TD: 2, Ptd: children}}

	h, err := Build(outputs, BuildConfig{Tau: 0.55, BaseDepth: 1, PUnknown: 0.5})
	require.NoError(t, err)

	parent, ok := h.Nodes[NDKey{Key: chunkgrid.Key{X: 0, Y: 0, Z: 0}, Depth: 1}]
	require.True(t, ok)
	assert.False(t, parent.IsLeaf)

	for k := range children {
		n, ok := h.Nodes[NDKey{Key: k, Depth: 2}]
		require.True(t, ok)
		assert.True(t, n.IsLeaf)
	}
}

func TestBuild_NoOutputsYieldsEmptyHierarchy(t *testing.T) {
	h, err := Build(nil, BuildConfig{Tau: 0.5})
	require.NoError(t, err)
	assert.Equal(t, uint8(0), h.TD)
	assert.Empty(t, h.Nodes)
}
