package expression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findPreset(exprs []Expression, p Preset) (Expression, bool) {
	for _, e := range exprs {
		if e.Preset == p {
			return e, true
		}
	}
	return Expression{}, false
}

func TestNewClampsWeight(t *testing.T) {
	t.Parallel()

	assert.Equal(t, float32(1.0), New(PresetHappy, 1.5).Weight)
	assert.Equal(t, float32(0.0), New(PresetSad, -0.5).Weight)
	assert.Equal(t, float32(0.42), New(PresetAa, 0.42).Weight)
}

func TestARKitMapper_Blink(t *testing.T) {
	t.Parallel()

	exprs := ARKitMapper{}.ToExpressions(map[string]float32{
		"eyeBlinkLeft":  0.8,
		"eyeBlinkRight": 0.9,
	})

	left, ok := findPreset(exprs, PresetBlinkLeft)
	require.True(t, ok)
	assert.InDelta(t, 0.8, left.Weight, 1e-6)

	right, ok := findPreset(exprs, PresetBlinkRight)
	require.True(t, ok)
	assert.InDelta(t, 0.9, right.Weight, 1e-6)

	both, ok := findPreset(exprs, PresetBlink)
	require.True(t, ok)
	assert.InDelta(t, 0.85, both.Weight, 1e-6)
}

func TestARKitMapper_EmptyInput(t *testing.T) {
	t.Parallel()

	assert.Empty(t, ARKitMapper{}.ToExpressions(nil))
	assert.Empty(t, ARKitMapper{}.ToExpressions(map[string]float32{}))
}

func TestARKitMapper_UnknownNamesIgnored(t *testing.T) {
	t.Parallel()

	exprs := ARKitMapper{}.ToExpressions(map[string]float32{
		"cheekPuff":     0.9,
		"tongueOut":     1.0,
		"notABlendname": 0.5,
	})
	assert.Empty(t, exprs)
}

func TestARKitMapper_Gaze(t *testing.T) {
	t.Parallel()

	exprs := ARKitMapper{}.ToExpressions(map[string]float32{
		"eyeLookUpLeft":   0.6,
		"eyeLookUpRight":  0.4,
		"eyeLookInLeft":   0.2,
		"eyeLookOutRight": 0.4,
	})

	up, ok := findPreset(exprs, PresetLookUp)
	require.True(t, ok)
	assert.InDelta(t, 0.5, up.Weight, 1e-6)

	left, ok := findPreset(exprs, PresetLookLeft)
	require.True(t, ok)
	assert.InDelta(t, 0.3, left.Weight, 1e-6)

	_, ok = findPreset(exprs, PresetLookDown)
	assert.False(t, ok)
}

func TestARKitMapper_SmileCutoff(t *testing.T) {
	t.Parallel()

	t.Run("above cutoff emits raw average", func(t *testing.T) {
		t.Parallel()
		exprs := ARKitMapper{}.ToExpressions(map[string]float32{
			"mouthSmileLeft":  0.7,
			"mouthSmileRight": 0.7,
		})
		happy, ok := findPreset(exprs, PresetHappy)
		require.True(t, ok)
		assert.InDelta(t, 0.7, happy.Weight, 1e-6)
	})

	t.Run("weak smile below cutoff is not emitted", func(t *testing.T) {
		t.Parallel()
		exprs := ARKitMapper{}.ToExpressions(map[string]float32{
			"mouthSmileLeft":  0.2,
			"mouthSmileRight": 0.2,
		})
		_, ok := findPreset(exprs, PresetHappy)
		assert.False(t, ok)
	})

	t.Run("one-sided smile still averages", func(t *testing.T) {
		t.Parallel()
		exprs := ARKitMapper{}.ToExpressions(map[string]float32{
			"mouthSmileLeft": 0.8,
		})
		happy, ok := findPreset(exprs, PresetHappy)
		require.True(t, ok)
		assert.InDelta(t, 0.4, happy.Weight, 1e-6)
	})
}

func TestARKitMapper_FrownToSad(t *testing.T) {
	t.Parallel()

	exprs := ARKitMapper{}.ToExpressions(map[string]float32{
		"mouthFrownLeft":  0.5,
		"mouthFrownRight": 0.5,
	})
	sad, ok := findPreset(exprs, PresetSad)
	require.True(t, ok)
	assert.InDelta(t, 0.5, sad.Weight, 1e-6)
}

func TestARKitMapper_LipSync(t *testing.T) {
	t.Parallel()

	exprs := ARKitMapper{}.ToExpressions(map[string]float32{
		"jawOpen":     0.8,
		"mouthPucker": 0.6,
		"mouthFunnel": 0.4, // below threshold
	})

	aa, ok := findPreset(exprs, PresetAa)
	require.True(t, ok)
	assert.InDelta(t, 0.8, aa.Weight, 1e-6)

	ou, ok := findPreset(exprs, PresetOu)
	require.True(t, ok)
	assert.InDelta(t, 0.6, ou.Weight, 1e-6)

	_, ok = findPreset(exprs, PresetOh)
	assert.False(t, ok)
}

// Clamping must hold for arbitrary input ranges, including the producer
// misbehaving with negative or >1 values.
func TestARKitMapper_OutputAlwaysInRange(t *testing.T) {
	t.Parallel()

	inputs := []map[string]float32{
		{"eyeBlinkLeft": 5.0, "eyeBlinkRight": 3.0},
		{"eyeBlinkLeft": -2.0, "eyeBlinkRight": 4.0},
		{"mouthSmileLeft": 9.0, "mouthSmileRight": 9.0},
		{"jawOpen": 100.0, "mouthPucker": -1.0, "mouthFunnel": 2.0},
		{"eyeLookUpLeft": -3.0, "eyeLookUpRight": 7.0},
	}
	for _, in := range inputs {
		for _, e := range (ARKitMapper{}).ToExpressions(in) {
			assert.GreaterOrEqual(t, e.Weight, float32(0), "preset %s", e.Preset)
			assert.LessOrEqual(t, e.Weight, float32(1), "preset %s", e.Preset)
		}
	}
}

func TestPresetsVocabulary(t *testing.T) {
	t.Parallel()

	ps := Presets()
	assert.Len(t, ps, 18)
	seen := make(map[Preset]bool, len(ps))
	for _, p := range ps {
		assert.False(t, seen[p], "duplicate preset %s", p)
		seen[p] = true
	}
	assert.True(t, seen[PresetNeutral])
}

func TestLiveWeights(t *testing.T) {
	t.Parallel()

	lw := NewLiveWeights()

	lw.Set("happy", 0.5)
	assert.Equal(t, float32(0.5), lw.Get("happy"))

	lw.Set("angry", 1.5)
	assert.Equal(t, float32(1.0), lw.Get("angry"))

	lw.Set("sad", -1)
	assert.Equal(t, float32(0.0), lw.Get("sad"))

	assert.Equal(t, float32(0.0), lw.Get("never-set"))

	lw.Clear()
	assert.Equal(t, float32(0.0), lw.Get("happy"))
	assert.Zero(t, lw.Len())
}

func TestLiveWeightsUpdate(t *testing.T) {
	t.Parallel()

	lw := NewLiveWeights()
	lw.Set("stale", 0.9)

	lw.Update([]Expression{
		New(PresetHappy, 0.8),
		New(PresetBlink, 0.3),
	})

	assert.Equal(t, float32(0.8), lw.Get("happy"))
	assert.Equal(t, float32(0.3), lw.Get("blink"))
	assert.Equal(t, float32(0.0), lw.Get("stale"))
	assert.Equal(t, 2, lw.Len())
}
