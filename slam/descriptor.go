package slam

import (
	"encoding/binary"
	"math/bits"
	"sort"
)

const (
	// DescriptorSize is length of binary descriptor in bytes (ORB uses 256 bits)
	DescriptorSize = 32
	// MaxHammingDistance is the largest possible distance between two descriptors
	MaxHammingDistance = DescriptorSize * 8
)

// Descriptor is a fixed-length binary signature of keypoint appearance.
type Descriptor [DescriptorSize]byte

// HammingDistance returns number of differing bits
func HammingDistance(d1, d2 Descriptor) int {
	dist := 0
	for i := 0; i < DescriptorSize; i += 8 {
		a := binary.LittleEndian.Uint64(d1[i : i+8])
		b := binary.LittleEndian.Uint64(d2[i : i+8])
		dist += bits.OnesCount64(a ^ b)
	}
	return dist
}

// DistanceTo is shorthand for HammingDistance(d, other)
func (d Descriptor) DistanceTo(other Descriptor) int {
	return HammingDistance(d, other)
}

// MedianDescriptorIndex selects descriptor which is the most representative for the given set:
// the one whose lower-median distance to all descriptors (itself included) is the smallest.
// Ties are resolved in favour of the first occurrence.
//
// Cost is O(n^2), which is fine for the observations of a single landmark.
func MedianDescriptorIndex(descriptors []Descriptor) (int, error) {
	numDescs := len(descriptors)
	if numDescs == 0 {
		return 0, ErrNoDescriptors
	}

	hammDists := make([][]int, numDescs)
	for i := range hammDists {
		hammDists[i] = make([]int, numDescs)
	}
	for i := 0; i < numDescs; i++ {
		for j := i + 1; j < numDescs; j++ {
			dist := HammingDistance(descriptors[i], descriptors[j])
			hammDists[i][j] = dist
			hammDists[j][i] = dist
		}
	}

	medianPos := int(0.5 * float64(numDescs-1))
	bestMedianDist := MaxHammingDistance + 1
	bestIdx := 0
	sorted := make([]int, numDescs)
	for idx := 0; idx < numDescs; idx++ {
		copy(sorted, hammDists[idx])
		sort.Ints(sorted)
		if sorted[medianPos] < bestMedianDist {
			bestMedianDist = sorted[medianPos]
			bestIdx = idx
		}
	}
	return bestIdx, nil
}
