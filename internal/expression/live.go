package expression

// LiveWeights stages the most recent per-expression weights for a loaded
// avatar. The consumer overwrites it once per received frame and reads it
// once per render tick; it is not safe for concurrent use across goroutines.
type LiveWeights struct {
	weights map[string]float32
}

// NewLiveWeights returns an empty weight board.
func NewLiveWeights() *LiveWeights {
	return &LiveWeights{weights: make(map[string]float32)}
}

// Set stores the weight for an expression name, clamped to [0,1].
func (l *LiveWeights) Set(name string, weight float32) {
	if weight < 0 {
		weight = 0
	} else if weight > 1 {
		weight = 1
	}
	l.weights[name] = weight
}

// Get returns the weight for an expression name, zero when unset.
func (l *LiveWeights) Get(name string) float32 {
	return l.weights[name]
}

// Clear drops all weights.
func (l *LiveWeights) Clear() {
	clear(l.weights)
}

// Update replaces the board's contents with an adapter result. Expressions
// not present in the result read as zero afterwards.
func (l *LiveWeights) Update(exprs []Expression) {
	l.Clear()
	for _, e := range exprs {
		l.Set(string(e.Preset), e.Weight)
	}
}

// Len reports how many expressions currently hold a weight.
func (l *LiveWeights) Len() int {
	return len(l.weights)
}
