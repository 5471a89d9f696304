// Package pose maps MediaPipe's 33-point world landmarks onto upper-body VRM
// humanoid bone rotations. The adapter is a pure per-frame function: no
// kinematic chain state is carried between frames, and a bone is emitted
// only when every landmark it depends on is confidently visible.
package pose

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/vrmlive/retarget/internal/tracker"
)

// MediaPipe pose landmark indices. Slice position is the contract: the
// producer always emits all 33 points in this order.
const (
	Nose           = 0
	LeftEyeInner   = 1
	LeftEye        = 2
	LeftEyeOuter   = 3
	RightEyeInner  = 4
	RightEye       = 5
	RightEyeOuter  = 6
	LeftEar        = 7
	RightEar       = 8
	MouthLeft      = 9
	MouthRight     = 10
	LeftShoulder   = 11
	RightShoulder  = 12
	LeftElbow      = 13
	RightElbow     = 14
	LeftWrist      = 15
	RightWrist     = 16
	LeftPinky      = 17
	RightPinky     = 18
	LeftIndex      = 19
	RightIndex     = 20
	LeftThumb      = 21
	RightThumb     = 22
	LeftHip        = 23
	RightHip       = 24
	LeftKnee       = 25
	RightKnee      = 26
	LeftAnkle      = 27
	RightAnkle     = 28
	LeftHeel       = 29
	RightHeel      = 30
	LeftFootIndex  = 31
	RightFootIndex = 32

	// LandmarkCount is the fixed topology size.
	LandmarkCount = 33
)

// Bone names the upper-body humanoid bones this adapter can drive, a subset
// of the full VRM bone vocabulary.
type Bone string

const (
	BoneLeftUpperArm  Bone = "leftUpperArm"
	BoneLeftLowerArm  Bone = "leftLowerArm"
	BoneRightUpperArm Bone = "rightUpperArm"
	BoneRightLowerArm Bone = "rightLowerArm"
	BoneChest         Bone = "chest"
)

// visibilityThreshold gates bone emission: both defining landmarks must
// exceed it or the bone is omitted for that frame. The consumer decides what
// an omitted bone means (hold last pose or snap to rest).
const visibilityThreshold = 0.5

// BoneRotation is a unit-quaternion rotation for one humanoid bone, with the
// mean landmark visibility as its confidence.
type BoneRotation struct {
	Bone       Bone
	Rotation   mgl32.Quat
	Confidence float32
}

// Mapper converts world-space landmarks into bone rotations. Implementations
// must be stateless and safe for concurrent use.
type Mapper interface {
	ToBoneRotations(world []tracker.Landmark) []BoneRotation
}

// boneSpec ties a bone to its defining landmark pair and its rest direction
// in the avatar's T-pose bind convention. The rest direction doubles as the
// landmark-to-bone-local axis remap: MediaPipe world space and the VRM
// T-pose agree on handedness for these bones, so the shortest arc from rest
// to the observed proximal→distal direction is the full retarget.
type boneSpec struct {
	bone     Bone
	proximal int
	distal   int
	rest     mgl32.Vec3
}

var boneSpecs = []boneSpec{
	// Left arm chain points toward -X in T-pose, right arm toward +X.
	{BoneLeftUpperArm, LeftShoulder, LeftElbow, mgl32.Vec3{-1, 0, 0}},
	{BoneLeftLowerArm, LeftElbow, LeftWrist, mgl32.Vec3{-1, 0, 0}},
	{BoneRightUpperArm, RightShoulder, RightElbow, mgl32.Vec3{1, 0, 0}},
	{BoneRightLowerArm, RightElbow, RightWrist, mgl32.Vec3{1, 0, 0}},
	// Chest follows the left→right shoulder line, +X in T-pose. Computed
	// from raw landmarks each frame, independent of the arm rotations.
	{BoneChest, LeftShoulder, RightShoulder, mgl32.Vec3{1, 0, 0}},
}

// MediaPipeMapper is the default landmark-to-bone adapter.
type MediaPipeMapper struct{}

var _ Mapper = MediaPipeMapper{}

// ToBoneRotations converts 33 world landmarks (meters, hip-relative) into
// upper-body bone rotations. Returns nil when fewer than 33 landmarks are
// supplied. Every returned quaternion is unit-norm.
func (MediaPipeMapper) ToBoneRotations(world []tracker.Landmark) []BoneRotation {
	if len(world) < LandmarkCount {
		return nil
	}

	out := make([]BoneRotation, 0, len(boneSpecs))
	for _, spec := range boneSpecs {
		proximal := world[spec.proximal]
		distal := world[spec.distal]
		if proximal.Visibility <= visibilityThreshold || distal.Visibility <= visibilityThreshold {
			continue
		}

		dir := vec3(distal).Sub(vec3(proximal))
		if dir.Len() == 0 {
			// coincident landmarks give no direction; treat as untrackable
			continue
		}

		confidence := (proximal.Visibility + distal.Visibility) / 2
		if confidence > 1 {
			confidence = 1
		}
		out = append(out, BoneRotation{
			Bone:       spec.bone,
			Rotation:   shortestArc(spec.rest, dir.Normalize()),
			Confidence: confidence,
		})
	}
	return out
}

// shortestArc returns the minimal rotation taking the unit vector from onto
// the unit vector to.
func shortestArc(from, to mgl32.Vec3) mgl32.Quat {
	dot := from.Dot(to)

	if dot > 0.9999 {
		// already aligned
		return mgl32.QuatIdent()
	}
	if dot < -0.9999 {
		// anti-parallel: rotate half a turn around any perpendicular axis
		axis := mgl32.Vec3{1, 0, 0}
		if math.Abs(float64(from.X())) > 0.9 {
			axis = mgl32.Vec3{0, 1, 0}
		}
		return mgl32.QuatRotate(math.Pi, axis)
	}

	axis := from.Cross(to).Normalize()
	angle := float32(math.Acos(float64(dot)))
	return mgl32.QuatRotate(angle, axis)
}

func vec3(l tracker.Landmark) mgl32.Vec3 {
	return mgl32.Vec3{l.X, l.Y, l.Z}
}
