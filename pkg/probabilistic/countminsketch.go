package probabilistic

import (
	"fmt"
	"math"

	"github.com/spaolacci/murmur3"
)

// CountMinSketch estimates per-key frequency in width*depth counters.
type CountMinSketch struct {
	width int
	depth int
	table [][]uint32
}

// NewCountMinSketch sizes a sketch for the given error bound epsilon
// and failure probability delta.
func NewCountMinSketch(epsilon, delta float64) *CountMinSketch {
	width := int(math.Ceil(math.E / epsilon))
	depth := int(math.Ceil(math.Log(1.0 / delta)))
	table := make([][]uint32, depth)
	for i := range table {
		table[i] = make([]uint32, width)
	}
	return &CountMinSketch{width: width, depth: depth, table: table}
}

// Width reports the sketch's counter width.
func (cm *CountMinSketch) Width() int { return cm.width }

// Depth reports the sketch's number of hash rows.
func (cm *CountMinSketch) Depth() int { return cm.depth }

func (cm *CountMinSketch) rowIndex(row int, data []byte) int {
	hash := murmur3.Sum64WithSeed(data, uint32(row)*0x9E3779B9)
	return int(hash % uint64(cm.width))
}

// Add increments key's estimated count by delta.
func (cm *CountMinSketch) Add(key []byte, delta uint32) {
	for row := 0; row < cm.depth; row++ {
		idx := cm.rowIndex(row, key)
		cm.table[row][idx] += delta
	}
}

// Estimate returns key's estimated frequency (never an undercount).
func (cm *CountMinSketch) Estimate(key []byte) uint32 {
	min := uint32(math.MaxUint32)
	for row := 0; row < cm.depth; row++ {
		idx := cm.rowIndex(row, key)
		if cm.table[row][idx] < min {
			min = cm.table[row][idx]
		}
	}
	return min
}

// Merge sums counters cell-by-cell, requiring identical dimensions.
func (cm *CountMinSketch) Merge(other *CountMinSketch) (*CountMinSketch, error) {
	if cm.width != other.width || cm.depth != other.depth {
		return nil, fmt.Errorf("%w: count-min sketch dimensions differ (%dx%d vs %dx%d)",
			ErrParamMismatch, cm.depth, cm.width, other.depth, other.width)
	}
	out := &CountMinSketch{width: cm.width, depth: cm.depth, table: make([][]uint32, cm.depth)}
	for i := range out.table {
		out.table[i] = make([]uint32, cm.width)
		for j := range out.table[i] {
			out.table[i][j] = cm.table[i][j] + other.table[i][j]
		}
	}
	return out, nil
}
