package probabilistic

import (
	"fmt"
	"sort"
)

// KeyFreq is one entry in a TopK's ranked output.
type KeyFreq struct {
	Key  string
	Freq uint32
}

// TopK tracks the K most frequent keys seen, backed by a
// CountMinSketch for frequency estimation and a candidate set rebuilt
// after every merge.
type TopK struct {
	k         int
	sketch    *CountMinSketch
	candidate map[string]struct{}
}

// NewTopK returns a tracker for the k most frequent keys, sized by the
// given CountMinSketch error parameters.
func NewTopK(k int, epsilon, delta float64) *TopK {
	return &TopK{k: k, sketch: NewCountMinSketch(epsilon, delta), candidate: make(map[string]struct{})}
}

// K reports the configured result size.
func (t *TopK) K() int { return t.k }

// Add records one occurrence of key.
func (t *TopK) Add(key string) {
	t.sketch.Add([]byte(key), 1)
	t.candidate[key] = struct{}{}
}

// Items returns the k highest-estimated-frequency keys, descending.
func (t *TopK) Items() []KeyFreq {
	out := make([]KeyFreq, 0, len(t.candidate))
	for key := range t.candidate {
		out = append(out, KeyFreq{Key: key, Freq: t.sketch.Estimate([]byte(key))})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Freq != out[j].Freq {
			return out[i].Freq > out[j].Freq
		}
		return out[i].Key < out[j].Key
	})
	if len(out) > t.k {
		out = out[:t.k]
	}
	return out
}

// Merge unions both trackers' candidate keys and sums their
// underlying sketches, then rebuilds the ranked view. Both trackers
// must share k and sketch dimensions.
func (t *TopK) Merge(other *TopK) (*TopK, error) {
	if t.k != other.k {
		return nil, fmt.Errorf("%w: topk result size differs (%d vs %d)", ErrParamMismatch, t.k, other.k)
	}
	mergedSketch, err := t.sketch.Merge(other.sketch)
	if err != nil {
		return nil, err
	}
	out := &TopK{k: t.k, sketch: mergedSketch, candidate: make(map[string]struct{}, len(t.candidate)+len(other.candidate))}
	for key := range t.candidate {
		out.candidate[key] = struct{}{}
	}
	for key := range other.candidate {
		out.candidate[key] = struct{}{}
	}
	return out, nil
}
