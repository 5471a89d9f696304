// Command tracker-sim emits synthetic tracking frames in the line protocol
// at a fixed rate, standing in for the real camera-driven capture process.
// Point the retarget pipeline at it to exercise the full transport path
// without a camera:
//
//	retarget -tracker tracker-sim -script ""
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/vrmlive/retarget/internal/pose"
	"github.com/vrmlive/retarget/internal/tracker"
)

var (
	rate       = flag.Float64("rate", 10, "Frames per second")
	count      = flag.Int("count", 0, "Number of frames to emit (0 = until killed)")
	withPose   = flag.Bool("pose", false, "Include synthetic 33-point pose landmarks")
	errorEvery = flag.Int("error-every", 0, "Emit a tracker error line every N frames (0 = never)")
)

func main() {
	flag.Parse()
	// positional args are tolerated so the pipeline can pass a script path
	if *rate <= 0 {
		log.Fatal("rate must be positive")
	}

	interval := time.Duration(float64(time.Second) / *rate)
	for i := 0; *count == 0 || i < *count; i++ {
		if *errorEvery > 0 && i > 0 && i%*errorEvery == 0 {
			fmt.Println(`{"error":"simulated camera stall"}`)
		} else {
			emitFrame(i)
		}
		time.Sleep(interval)
	}
}

func emitFrame(i int) {
	frame := tracker.TrackingFrame{
		TS: float64(time.Now().UnixNano()) / 1e9,
		Blendshapes: map[string]float32{
			"eyeBlinkLeft":    float32(i%100) / 100.0,
			"eyeBlinkRight":   float32(i%80) / 80.0,
			"jawOpen":         0.3,
			"mouthSmileLeft":  0.5 + 0.5*float32(math.Sin(float64(i)/20)),
			"mouthSmileRight": 0.5 + 0.5*float32(math.Sin(float64(i)/20)),
		},
	}
	if *withPose {
		frame.ImageLandmarks = syntheticLandmarks(i, false)
		frame.WorldLandmarks = syntheticLandmarks(i, true)
	}

	line, err := frame.Encode()
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode failed: %v\n", err)
		return
	}
	fmt.Println(string(line))
}

// syntheticLandmarks produces a T-pose with the arms swinging slowly so the
// pose adapter has something to chew on.
func syntheticLandmarks(i int, world bool) []tracker.Landmark {
	lm := make([]tracker.Landmark, pose.LandmarkCount)
	for j := range lm {
		lm[j] = tracker.Landmark{Visibility: 0.9, Presence: 0.9}
	}
	swing := float32(math.Sin(float64(i) / 15))

	set := func(idx int, x, y, z float32) {
		if !world {
			// crude image-space projection into [0,1]
			x, y = x/2+0.5, y/2+0.5
		}
		lm[idx].X, lm[idx].Y, lm[idx].Z = x, y, z
	}
	set(pose.LeftShoulder, -0.2, 0.5, 0)
	set(pose.LeftElbow, -0.5, 0.5-0.2*swing, 0)
	set(pose.LeftWrist, -0.8, 0.5-0.4*swing, 0)
	set(pose.RightShoulder, 0.2, 0.5, 0)
	set(pose.RightElbow, 0.5, 0.5+0.2*swing, 0)
	set(pose.RightWrist, 0.8, 0.5+0.4*swing, 0)
	set(pose.LeftHip, -0.15, 0, 0)
	set(pose.RightHip, 0.15, 0, 0)
	return lm
}
