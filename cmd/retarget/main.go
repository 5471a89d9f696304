// Command retarget runs the live retargeting pipeline: it spawns the capture
// process, converts each tracking frame into VRM expression weights and
// upper-body bone rotations, and reports them. Applying the output to a
// rendered scene is the embedding host's job; this binary is the reference
// consumer loop.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/vrmlive/retarget/internal/config"
	"github.com/vrmlive/retarget/internal/expression"
	"github.com/vrmlive/retarget/internal/pose"
	"github.com/vrmlive/retarget/internal/tracker"
	"github.com/vrmlive/retarget/internal/vrm"
)

var (
	configPath  = flag.String("config", "", "Config file path (default: the per-user config location)")
	modelPath   = flag.String("model", "", "Avatar model file (default: the configured model directory and filename)")
	trackerBin  = flag.String("tracker", "", "Capture process executable (overrides config)")
	trackerArgs = flag.String("script", "", "Tracker script path (overrides config)")
	tickEvery   = flag.Duration("tick", 33*time.Millisecond, "Consumer tick interval")
	statsEvery  = flag.Duration("stats", 10*time.Second, "Transport stats report interval (0 disables)")
	verbose     = flag.Bool("verbose", false, "Log every applied frame instead of a periodic summary")
)

func main() {
	flag.Parse()

	path := *configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			log.Printf("config path unavailable, using defaults: %v", err)
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.EnsureModelDir(); err != nil {
		log.Printf("model directory unavailable: %v", err)
	}

	avatar := loadAvatar(cfg)

	executable := cfg.GetTrackerExecutable()
	if *trackerBin != "" {
		executable = *trackerBin
	}
	script := cfg.GetTrackerScript()
	if *trackerArgs != "" {
		script = *trackerArgs
	}

	var args []string
	if script != "" {
		args = append(args, script)
	}

	session, err := tracker.Start(tracker.Config{
		Executable: executable,
		Args:       args,
		QueueSize:  cfg.GetQueueSize(),
		Grace:      cfg.GetShutdownGrace(),
	})
	if err != nil {
		log.Fatalf("failed to start capture process: %v", err)
	}
	defer session.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go watchEvents(session)

	run(ctx, session, avatar)
}

// loadAvatar loads the configured model. A missing file or a container
// without VRM rigging is a warning, not a fatal error: the pipeline still
// runs, just without avatar-side filtering.
func loadAvatar(cfg *config.Config) *vrm.Avatar {
	path := *modelPath
	if path == "" {
		path = filepath.Join(cfg.GetModelDir(), cfg.GetDefaultModel())
	}

	avatar, err := vrm.Load(path)
	switch {
	case errors.Is(err, vrm.ErrNotAnAvatarFile):
		log.Printf("%s has no VRM rigging, continuing without an avatar", path)
		return nil
	case errors.Is(err, os.ErrNotExist):
		log.Printf("no avatar model at %s, continuing without one", path)
		return nil
	case err != nil:
		log.Printf("failed to load avatar %s: %v", path, err)
		return nil
	}
	log.Printf("loaded avatar %q (%d bones, %d expressions)",
		avatar.Meta.Name, len(avatar.Bones), len(avatar.Expressions))
	return avatar
}

// watchEvents logs session events until the event channel drains away with
// the session.
func watchEvents(session *tracker.Session) {
	for ev := range session.Events() {
		switch ev.Kind {
		case tracker.EventTrackerError:
			log.Printf("tracker reported: %s", ev.Message)
		case tracker.EventProcessExited:
			log.Printf("capture process exited (code %d); press Ctrl-C to quit", ev.ExitCode)
		}
	}
}

// run is the consumer loop: one adapter pass per tick, latest frame wins.
func run(ctx context.Context, session *tracker.Session, avatar *vrm.Avatar) {
	exprMapper := expression.ARKitMapper{}
	poseMapper := pose.MediaPipeMapper{}
	live := expression.NewLiveWeights()

	tick := time.NewTicker(*tickEvery)
	defer tick.Stop()

	var statsC <-chan time.Time
	if *statsEvery > 0 {
		statsTick := time.NewTicker(*statsEvery)
		defer statsTick.Stop()
		statsC = statsTick.C
	}

	applied := 0
	for {
		select {
		case <-ctx.Done():
			log.Printf("shutting down after %d applied frames", applied)
			return

		case <-statsC:
			s := session.Stats()
			log.Printf("transport: %d frames (%d dropped, %d decode errors), interval %.1fms ±%.1fms",
				s.FramesReceived, s.FramesDropped, s.DecodeErrors,
				s.IntervalMean*1000, s.IntervalStdDev*1000)

		case <-tick.C:
			frame, err := session.Next(0)
			if errors.Is(err, tracker.ErrClosed) {
				log.Printf("frame stream ended after %d applied frames", applied)
				return
			}
			if err != nil {
				continue
			}

			exprs := exprMapper.ToExpressions(frame.Blendshapes)
			rotations := poseMapper.ToBoneRotations(frame.WorldLandmarks)
			if avatar != nil {
				exprs = filterExpressions(exprs, avatar)
				rotations = filterRotations(rotations, avatar)
			}
			live.Update(exprs)
			applied++

			if *verbose || applied%100 == 1 {
				log.Printf("ts=%.3f %s", frame.TS, describe(exprs, rotations))
			}
		}
	}
}

// filterExpressions keeps only expressions the loaded avatar defines.
func filterExpressions(exprs []expression.Expression, avatar *vrm.Avatar) []expression.Expression {
	kept := exprs[:0]
	for _, e := range exprs {
		if _, ok := avatar.Expressions[string(e.Preset)]; ok {
			kept = append(kept, e)
		}
	}
	return kept
}

// filterRotations keeps only rotations whose bone resolved in the avatar.
func filterRotations(rotations []pose.BoneRotation, avatar *vrm.Avatar) []pose.BoneRotation {
	kept := rotations[:0]
	for _, r := range rotations {
		if _, ok := avatar.Bones[string(r.Bone)]; ok {
			kept = append(kept, r)
		}
	}
	return kept
}

func describe(exprs []expression.Expression, rotations []pose.BoneRotation) string {
	parts := make([]string, 0, len(exprs)+1)
	for _, e := range exprs {
		parts = append(parts, fmt.Sprintf("%s=%.2f", e.Preset, e.Weight))
	}
	bones := make([]string, 0, len(rotations))
	for _, r := range rotations {
		bones = append(bones, string(r.Bone))
	}
	out := "expressions=[" + strings.Join(parts, " ") + "]"
	if len(bones) > 0 {
		out += " bones=[" + strings.Join(bones, " ") + "]"
	}
	return out
}
