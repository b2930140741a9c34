package phash

// Differ remembers the fingerprint of the last analyzed frame. It is owned by a single
// sampling loop and is not safe for concurrent use.
type Differ struct {
	threshold float64
	prev      uint64
	hasPrev   bool
}

// NewDiffer creates a Differ that skips frames whose similarity to the previous analyzed
// frame is at least threshold.
func NewDiffer(threshold float64) *Differ {
	return &Differ{threshold: threshold}
}

// Check decides whether the frame with the given hash is skipped. The first frame is
// never skipped. When the frame is not skipped its hash becomes the new reference.
func (d *Differ) Check(hash uint64) (skip bool, similarity float64) {
	if d.hasPrev {
		similarity = Similarity(d.prev, hash)
		if similarity >= d.threshold {
			return true, similarity
		}
	}

	d.prev = hash
	d.hasPrev = true
	return false, similarity
}

// Reset forgets the reference frame.
func (d *Differ) Reset() {
	d.prev = 0
	d.hasPrev = false
}
