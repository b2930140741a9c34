// Package phash computes a coarse 64-bit perceptual hash of a frame and decides whether
// a new frame is different enough from the previous one to be worth analyzing.
package phash

import (
	"image"
	"math/bits"

	"golang.org/x/image/draw"
)

const (
	gridSize = 8
	hashBits = gridSize * gridSize
)

// Hash downsizes img to an 8x8 grayscale grid with nearest-neighbor sampling and sets bit
// i when sample i (row-major) is brighter than the mean of all samples.
func Hash(img image.Image) uint64 {
	gray := image.NewGray(image.Rect(0, 0, gridSize, gridSize))
	if img == nil || img.Bounds().Empty() {
		return 0
	}
	draw.NearestNeighbor.Scale(gray, gray.Bounds(), img, img.Bounds(), draw.Src, nil)

	var sum uint64
	for _, p := range gray.Pix[:hashBits] {
		sum += uint64(p)
	}
	avg := sum / hashBits

	var hash uint64
	for i, p := range gray.Pix[:hashBits] {
		if uint64(p) > avg {
			hash |= 1 << uint(i)
		}
	}
	return hash
}

// Similarity returns 1 - hamming(a, b)/64, a value in [0, 1].
func Similarity(a, b uint64) float64 {
	diff := bits.OnesCount64(a ^ b)
	return 1.0 - float64(diff)/float64(hashBits)
}
