package union

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEight_AllZeros(t *testing.T) {
	var p [8]float64
	assert.InDelta(t, 0.0, Eight(p, 0.5), 1e-12)
}

func TestEight_AllOnes(t *testing.T) {
	p := [8]float64{1, 1, 1, 1, 1, 1, 1, 1}
	assert.InDelta(t, 1.0, Eight(p, 0.5), 1e-12)
}

func TestEight_SymmetricUnderPermutation(t *testing.T) {
	p := [8]float64{0.1, 0.9, 0.3, 0.05, 0.99, 0.5, 0.2, 0.77}
	want := Eight(p, 0.5)

	perm := [8]float64{0.9, 0.1, 0.77, 0.2, 0.5, 0.05, 0.99, 0.3}
	got := Eight(perm, 0.5)

	assert.InDelta(t, want, got, 1e-12)
}

func TestEight_MatchesClosedForm(t *testing.T) {
	p := [8]float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8}
	got := Eight(p, 0.0)

	prod := 1.0
	for _, v := range p {
		prod *= 1 - v
	}
	want := 1 - prod

	assert.InDelta(t, want, got, 1e-9)
}

func TestEight_ReplacesOutOfRangeAndNaN(t *testing.T) {
	p := [8]float64{math.NaN(), -1, 2, math.Inf(1), 0.25, 0.25, 0.25, 0.25}
	got := Eight(p, 0.25)

	want := Eight([8]float64{0.25, 0.25, 0.25, 0.25, 0.25, 0.25, 0.25, 0.25}, 0.25)
	assert.InDelta(t, want, got, 1e-12)
}

func TestTwo_MatchesClosedForm(t *testing.T) {
	got := Two(0.7, 0.7, 0.0)
	assert.InDelta(t, 0.91, got, 1e-12)
}

func TestTwo_ReplacesSentinels(t *testing.T) {
	got := Two(math.NaN(), 0.4, 0.5)
	want := Two(0.5, 0.4, 0.5)
	assert.InDelta(t, want, got, 1e-12)
}

func TestN_SevenUnknownSlotsMissingChildRollup(t *testing.T) {
	// Scenario 3: parent with one real child at 0.0 and seven p_unknown=0.25 slots.
	ps := []float64{0.0, 0.25, 0.25, 0.25, 0.25, 0.25, 0.25, 0.25}
	got := N(ps, 0.25)
	assert.InDelta(t, 0.86651611328125, got, 1e-9)
}
