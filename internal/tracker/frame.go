package tracker

import (
	"encoding/json"
	"fmt"
)

// Landmark is one tracked 3D body point. For image-space landmarks X and Y
// are normalized to [0,1]; for world-space landmarks the coordinates are
// meters relative to the hip midpoint. Visibility and Presence are confidence
// scores in [0,1].
type Landmark struct {
	X          float32 `json:"x"`
	Y          float32 `json:"y"`
	Z          float32 `json:"z"`
	Visibility float32 `json:"visibility"`
	Presence   float32 `json:"presence"`
}

// TrackingFrame is one timestamped bundle of observations from the capture
// process. The landmark slices follow the fixed 33-point MediaPipe topology;
// slice order is load-bearing (index 11 is always the left shoulder). Both
// slices are empty when pose tracking is disabled on the producer side.
type TrackingFrame struct {
	TS             float64            `json:"ts"`
	Blendshapes    map[string]float32 `json:"blendshapes"`
	ImageLandmarks []Landmark         `json:"pose_landmarks,omitempty"`
	WorldLandmarks []Landmark         `json:"pose_world_landmarks,omitempty"`
}

// Encode renders the frame in the line protocol (one JSON object, no
// trailing newline). Used by the simulator and round-trip tests.
func (f TrackingFrame) Encode() ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("tracker: encode frame: %w", err)
	}
	return data, nil
}

// DecodeLine decodes one line of tracker stdout. A producer-reported error
// line ({"error": "..."}) is returned through trackerErr instead of a frame;
// any other well-formed object is treated as a frame. Unknown fields are
// ignored so newer producers keep working.
func DecodeLine(line []byte) (frame TrackingFrame, trackerErr string, err error) {
	var raw struct {
		TrackingFrame
		Error string `json:"error"`
	}
	if err := json.Unmarshal(line, &raw); err != nil {
		return TrackingFrame{}, "", fmt.Errorf("tracker: decode line: %w", err)
	}
	if raw.Error != "" {
		return TrackingFrame{}, raw.Error, nil
	}
	return raw.TrackingFrame, "", nil
}
