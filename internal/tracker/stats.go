package tracker

import (
	"sync"

	"gonum.org/v1/gonum/stat"
)

// rateWindow caps how many inter-frame intervals are retained for the rate
// statistics. 300 intervals is ten seconds at a nominal 30 fps.
const rateWindow = 300

// rateStats tracks the spacing of producer timestamps over a sliding window.
// Only the reader goroutine observes; Stats snapshots may come from anywhere.
type rateStats struct {
	mu        sync.Mutex
	intervals []float64
	lastTS    float64
	haveLast  bool
}

func (r *rateStats) observe(ts float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.haveLast && ts > r.lastTS {
		r.intervals = append(r.intervals, ts-r.lastTS)
		if len(r.intervals) > rateWindow {
			r.intervals = r.intervals[len(r.intervals)-rateWindow:]
		}
	}
	r.lastTS = ts
	r.haveLast = true
}

func (r *rateStats) snapshot() (mean, stddev float64, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch len(r.intervals) {
	case 0:
		return 0, 0, 0
	case 1:
		// sample stddev is undefined for a single interval
		return r.intervals[0], 0, 1
	}
	mean, stddev = stat.MeanStdDev(r.intervals, nil)
	return mean, stddev, len(r.intervals)
}

// Stats is a point-in-time snapshot of session counters.
type Stats struct {
	FramesReceived uint64
	FramesDropped  uint64
	DecodeErrors   uint64

	// Inter-frame producer timestamp spacing over the recent window.
	IntervalMean   float64
	IntervalStdDev float64
	IntervalCount  int
}

// Stats returns the current session counters and rate statistics.
func (s *Session) Stats() Stats {
	mean, stddev, n := s.rate.snapshot()
	return Stats{
		FramesReceived: s.framesReceived.Load(),
		FramesDropped:  s.framesDropped.Load(),
		DecodeErrors:   s.decodeErrors.Load(),
		IntervalMean:   mean,
		IntervalStdDev: stddev,
		IntervalCount:  n,
	}
}
