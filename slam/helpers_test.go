package slam

import (
	"math/rand"
	"testing"
)

const (
	eps = 0.00001
)

// descriptorWithBits returns descriptor with bits [from, to) set
func descriptorWithBits(from, to int) Descriptor {
	var d Descriptor
	for bit := from; bit < to; bit++ {
		d[bit/8] |= 1 << (bit % 8)
	}
	return d
}

// flipBits returns copy of d with bits [from, to) inverted
func flipBits(d Descriptor, from, to int) Descriptor {
	for bit := from; bit < to; bit++ {
		d[bit/8] ^= 1 << (bit % 8)
	}
	return d
}

func randomDescriptor(rng *rand.Rand) Descriptor {
	var d Descriptor
	rng.Read(d[:])
	return d
}

func mustMatcher(t *testing.T, cfg Config) *GuidedMatcher {
	t.Helper()
	matcher, err := NewGuidedMatcher(cfg)
	if err != nil {
		t.Fatalf("Can't create matcher: %v", err)
	}
	return matcher
}

func positionsOf(keypoints []Keypoint) []Point {
	positions := make([]Point, len(keypoints))
	for i, kpt := range keypoints {
		positions[i] = kpt.Pt
	}
	return positions
}

func checkBijective(t *testing.T, matches MatchList) {
	t.Helper()
	seen1 := make(map[int]struct{})
	seen2 := make(map[int]struct{})
	for _, match := range matches {
		if _, ok := seen1[match.Index1]; ok {
			t.Errorf("Index %d of the first set is matched twice", match.Index1)
		}
		if _, ok := seen2[match.Index2]; ok {
			t.Errorf("Index %d of the second set is matched twice", match.Index2)
		}
		seen1[match.Index1] = struct{}{}
		seen2[match.Index2] = struct{}{}
	}
}
