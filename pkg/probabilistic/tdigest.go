package probabilistic

import (
	"fmt"
	"sort"
)

// centroid is one cluster of nearby observations: its mean and the
// number of observations folded into it.
type centroid struct {
	Mean   float64
	Weight float64
}

// TDigest approximates the quantiles of a data stream using a sorted,
// weight-bounded set of centroids. No library in the reference corpus
// implements rank-based quantile sketches, so this is original domain
// code following the same sorted-array-merge idiom as GSet/ORSet:
// centroids are kept sorted by mean, and merge is a concatenate +
// re-sort + re-compress pass.
type TDigest struct {
	compression float64
	centroids   []centroid
}

// NewTDigest returns an empty digest. compression bounds how
// aggressively nearby centroids are folded together: higher values
// keep more centroids (more accuracy, more memory).
func NewTDigest(compression float64) *TDigest {
	return &TDigest{compression: compression}
}

// Compression reports the digest's compression parameter.
func (d *TDigest) Compression() float64 { return d.compression }

// Add records one observation.
func (d *TDigest) Add(value float64) {
	d.centroids = append(d.centroids, centroid{Mean: value, Weight: 1})
	d.sortAndCompress()
}

func (d *TDigest) totalWeight() float64 {
	var total float64
	for _, c := range d.centroids {
		total += c.Weight
	}
	return total
}

func (d *TDigest) sortAndCompress() {
	sort.Slice(d.centroids, func(i, j int) bool { return d.centroids[i].Mean < d.centroids[j].Mean })

	total := d.totalWeight()
	if total == 0 || float64(len(d.centroids)) <= d.compression {
		return
	}

	maxClusterWeight := total / d.compression
	out := make([]centroid, 0, len(d.centroids))
	cur := d.centroids[0]
	for _, c := range d.centroids[1:] {
		if cur.Weight+c.Weight <= maxClusterWeight {
			combinedWeight := cur.Weight + c.Weight
			cur.Mean = (cur.Mean*cur.Weight + c.Mean*c.Weight) / combinedWeight
			cur.Weight = combinedWeight
		} else {
			out = append(out, cur)
			cur = c
		}
	}
	out = append(out, cur)
	d.centroids = out
}

// Quantile returns the estimated value at rank q (0 <= q <= 1).
func (d *TDigest) Quantile(q float64) float64 {
	if len(d.centroids) == 0 {
		return 0
	}
	total := d.totalWeight()
	target := q * total

	var cumulative float64
	for i, c := range d.centroids {
		cumulative += c.Weight
		if cumulative >= target || i == len(d.centroids)-1 {
			return c.Mean
		}
	}
	return d.centroids[len(d.centroids)-1].Mean
}

// Merge combines two digests' observations, requiring identical
// compression parameters so the resulting error bound is well
// defined.
func (d *TDigest) Merge(other *TDigest) (*TDigest, error) {
	if d.compression != other.compression {
		return nil, fmt.Errorf("%w: tdigest compression differs (%v vs %v)", ErrParamMismatch, d.compression, other.compression)
	}
	out := &TDigest{compression: d.compression}
	out.centroids = make([]centroid, 0, len(d.centroids)+len(other.centroids))
	out.centroids = append(out.centroids, d.centroids...)
	out.centroids = append(out.centroids, other.centroids...)
	out.sortAndCompress()
	return out, nil
}
