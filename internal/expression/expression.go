// Package expression maps raw tracker blendshape weights onto the VRM 1.0
// expression preset vocabulary. Adapters are total functions: they never
// fail, treat missing inputs as zero, ignore unknown inputs, and clamp every
// output weight to [0,1].
package expression

// Preset is one of the fixed VRM 1.0 expression preset names.
type Preset string

const (
	// Emotions
	PresetHappy     Preset = "happy"
	PresetAngry     Preset = "angry"
	PresetSad       Preset = "sad"
	PresetRelaxed   Preset = "relaxed"
	PresetSurprised Preset = "surprised"

	// Lip sync
	PresetAa Preset = "aa"
	PresetIh Preset = "ih"
	PresetOu Preset = "ou"
	PresetEe Preset = "ee"
	PresetOh Preset = "oh"

	// Blink
	PresetBlink      Preset = "blink"
	PresetBlinkLeft  Preset = "blinkLeft"
	PresetBlinkRight Preset = "blinkRight"

	// Gaze
	PresetLookUp    Preset = "lookUp"
	PresetLookDown  Preset = "lookDown"
	PresetLookLeft  Preset = "lookLeft"
	PresetLookRight Preset = "lookRight"

	PresetNeutral Preset = "neutral"
)

// Presets lists the full preset vocabulary in declaration order.
func Presets() []Preset {
	return []Preset{
		PresetHappy, PresetAngry, PresetSad, PresetRelaxed, PresetSurprised,
		PresetAa, PresetIh, PresetOu, PresetEe, PresetOh,
		PresetBlink, PresetBlinkLeft, PresetBlinkRight,
		PresetLookUp, PresetLookDown, PresetLookLeft, PresetLookRight,
		PresetNeutral,
	}
}

// Expression is a preset with its activation weight, always in [0,1].
type Expression struct {
	Preset Preset
	Weight float32
}

// New builds an Expression with the weight clamped to [0,1].
func New(preset Preset, weight float32) Expression {
	if weight < 0 {
		weight = 0
	} else if weight > 1 {
		weight = 1
	}
	return Expression{Preset: preset, Weight: weight}
}

// Mapper converts one tracker's named facial weights into VRM expressions.
// Implementations must be stateless and safe for concurrent use.
type Mapper interface {
	ToExpressions(weights map[string]float32) []Expression
}

// Compatibility constants for the default ARKit table. Downstream consumers
// depend on the exact curve; do not re-derive these.
const (
	smileCutoff      = 0.3
	frownCutoff      = 0.3
	lipSyncThreshold = 0.5
)

// ARKitMapper is the default mapping from the 52 ARKit-style blendshapes to
// VRM presets:
//
//   - blinkLeft/blinkRight pass through eyeBlinkLeft/eyeBlinkRight; blink is
//     their average. Each is emitted when positive.
//   - Gaze presets average the left/right eye values, mirroring In/Out so
//     both eyes vote on the same screen direction.
//   - happy and sad average the paired mouthSmile/mouthFrown inputs and are
//     emitted only when the average exceeds the 0.3 cutoff. The emitted
//     weight is the raw average; the cutoff controls emission only.
//   - aa/ou/oh follow jawOpen/mouthPucker/mouthFunnel past 0.5. ih, ee and
//     the remaining emotion presets have no default rule.
type ARKitMapper struct{}

var _ Mapper = ARKitMapper{}

func (ARKitMapper) ToExpressions(weights map[string]float32) []Expression {
	get := func(name string) float32 { return weights[name] }

	out := make([]Expression, 0, 8)
	emit := func(p Preset, w float32) { out = append(out, New(p, w)) }

	blinkLeft := get("eyeBlinkLeft")
	blinkRight := get("eyeBlinkRight")
	if blinkLeft > 0 {
		emit(PresetBlinkLeft, blinkLeft)
	}
	if blinkRight > 0 {
		emit(PresetBlinkRight, blinkRight)
	}
	if blink := (blinkLeft + blinkRight) / 2; blink > 0 {
		emit(PresetBlink, blink)
	}

	if lookUp := (get("eyeLookUpLeft") + get("eyeLookUpRight")) / 2; lookUp > 0 {
		emit(PresetLookUp, lookUp)
	}
	if lookDown := (get("eyeLookDownLeft") + get("eyeLookDownRight")) / 2; lookDown > 0 {
		emit(PresetLookDown, lookDown)
	}
	if lookLeft := (get("eyeLookInLeft") + get("eyeLookOutRight")) / 2; lookLeft > 0 {
		emit(PresetLookLeft, lookLeft)
	}
	if lookRight := (get("eyeLookOutLeft") + get("eyeLookInRight")) / 2; lookRight > 0 {
		emit(PresetLookRight, lookRight)
	}

	if smile := (get("mouthSmileLeft") + get("mouthSmileRight")) / 2; smile > smileCutoff {
		emit(PresetHappy, smile)
	}
	if frown := (get("mouthFrownLeft") + get("mouthFrownRight")) / 2; frown > frownCutoff {
		emit(PresetSad, frown)
	}

	if jawOpen := get("jawOpen"); jawOpen > lipSyncThreshold {
		emit(PresetAa, jawOpen)
	}
	if pucker := get("mouthPucker"); pucker > lipSyncThreshold {
		emit(PresetOu, pucker)
	}
	if funnel := get("mouthFunnel"); funnel > lipSyncThreshold {
		emit(PresetOh, funnel)
	}

	return out
}
