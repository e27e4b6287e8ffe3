package slam

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testGridParameters(t *testing.T) GridParameters {
	t.Helper()
	params, err := NewGridParameters(64, 48, 0, 0, 640, 480)
	if err != nil {
		t.Fatal(err)
	}
	return params
}

func TestNewGridParameters(t *testing.T) {
	params := testGridParameters(t)
	if math.Abs(params.InvCellWidth-0.1) > eps || math.Abs(params.InvCellHeight-0.1) > eps {
		t.Errorf("Expected inverse cell size 0.1, got %f x %f", params.InvCellWidth, params.InvCellHeight)
	}
	if _, err := NewGridParameters(0, 48, 0, 0, 640, 480); err == nil {
		t.Error("Expected error for zero columns")
	}
	if _, err := NewGridParameters(64, 48, 640, 0, 640, 480); err == nil {
		t.Error("Expected error for empty bounds")
	}
}

func TestGridInGrid(t *testing.T) {
	params := testGridParameters(t)
	cases := []struct {
		pt       Point
		expected bool
	}{
		{Point{X: 0, Y: 0}, true},
		{Point{X: 639.9, Y: 479.9}, true},
		{Point{X: 640, Y: 100}, false},
		{Point{X: -0.1, Y: 100}, false},
		{Point{X: 100, Y: 480}, false},
	}
	for _, tc := range cases {
		if got := params.InGrid(tc.pt); got != tc.expected {
			t.Errorf("InGrid(%v) = %v, expected %v", tc.pt, got, tc.expected)
		}
	}
}

func TestBuildGridIndexCoverage(t *testing.T) {
	params := testGridParameters(t)
	rng := rand.New(rand.NewSource(42))
	keypoints := make([]Keypoint, 500)
	for i := range keypoints {
		// Some keypoints fall outside of the image on purpose
		keypoints[i] = NewKeypoint(rng.Float64()*700-30, rng.Float64()*540-30, rng.Intn(8), 0)
	}
	index := BuildGridIndex(keypoints, params)

	occurrences := make(map[int]int)
	for cellX := range index {
		for cellY := range index[cellX] {
			for _, idx := range index[cellX][cellY] {
				occurrences[idx]++
				expectedX, expectedY, ok := params.Cell(keypoints[idx].Pt)
				if !ok || expectedX != cellX || expectedY != cellY {
					t.Errorf("Keypoint %d is in cell (%d, %d), expected (%d, %d, %v)", idx, cellX, cellY, expectedX, expectedY, ok)
				}
			}
		}
	}
	for idx, kpt := range keypoints {
		_, _, inside := params.Cell(kpt.Pt)
		switch {
		case inside && occurrences[idx] != 1:
			t.Errorf("Keypoint %d at %v appears %d times, expected once", idx, kpt.Pt, occurrences[idx])
		case !inside && occurrences[idx] != 0:
			t.Errorf("Keypoint %d at %v is outside, but appears %d times", idx, kpt.Pt, occurrences[idx])
		}
	}
}

func TestGridCellRounding(t *testing.T) {
	params := testGridParameters(t)
	x, y, ok := params.Cell(Point{X: 14.9, Y: 15.1})
	if !ok || x != 1 || y != 2 {
		t.Errorf("Expected cell (1, 2), got (%d, %d, %v)", x, y, ok)
	}
	// Rounds up beyond the last column
	if _, _, ok := params.Cell(Point{X: 636, Y: 10}); ok {
		t.Error("Expected point rounding to column 64 to be outside of the grid")
	}
}

func TestGridQuery(t *testing.T) {
	params := testGridParameters(t)
	keypoints := []Keypoint{
		NewKeypoint(100, 100, 0, 0),
		NewKeypoint(105, 97, 1, 0),
		NewKeypoint(109.9, 100, 2, 0),
		NewKeypoint(110, 100, 0, 0),
		NewKeypoint(100, 130, 0, 0),
		NewKeypoint(93, 108, 3, 0),
	}
	index := BuildGridIndex(keypoints, params)

	cases := []struct {
		name     string
		x, y     float64
		margin   float64
		minLevel int
		maxLevel int
		expected []int
	}{
		{"no level filter", 100, 100, 10, -1, -1, []int{0, 1, 2, 5}},
		{"exact level", 100, 100, 10, 0, 0, []int{0}},
		{"level range", 100, 100, 10, 1, 2, []int{1, 2}},
		{"lower bound only", 100, 100, 10, 2, -1, []int{2, 5}},
		{"zero min level is no-op", 100, 100, 10, 0, -1, []int{0, 1, 2, 5}},
		{"tiny window", 100, 100, 0.5, -1, -1, []int{0}},
		{"square window corner", 100, 100, 10, 3, 3, []int{5}},
		{"outside left", -50, 100, 10, -1, -1, []int{}},
		{"outside right", 700, 100, 10, -1, -1, []int{}},
		{"outside bottom", 100, 600, 10, -1, -1, []int{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := index.Query(keypoints, params, tc.x, tc.y, tc.margin, tc.minLevel, tc.maxLevel)
			sort.Ints(got)
			if diff := cmp.Diff(tc.expected, got); diff != "" {
				t.Errorf("Query mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGridQueryEmptyIndex(t *testing.T) {
	params := testGridParameters(t)
	if got := GridIndex(nil).Query(nil, params, 100, 100, 10, -1, -1); len(got) != 0 {
		t.Errorf("Expected empty result, got %v", got)
	}
}

func TestGridQueryCompleteness(t *testing.T) {
	params := testGridParameters(t)
	rng := rand.New(rand.NewSource(3))
	keypoints := make([]Keypoint, 300)
	for i := range keypoints {
		keypoints[i] = NewKeypoint(rng.Float64()*640, rng.Float64()*480, 0, 0)
	}
	index := BuildGridIndex(keypoints, params)
	for trial := 0; trial < 50; trial++ {
		x := rng.Float64() * 640
		y := rng.Float64() * 480
		margin := 5 + rng.Float64()*30
		got := make(map[int]struct{})
		for _, idx := range index.Query(keypoints, params, x, y, margin, -1, -1) {
			got[idx] = struct{}{}
		}
		for idx, kpt := range keypoints {
			if _, _, ok := params.Cell(kpt.Pt); !ok {
				continue
			}
			_, found := got[idx]
			inside := math.Abs(kpt.Pt.X-x) < margin && math.Abs(kpt.Pt.Y-y) < margin
			if inside != found {
				t.Fatalf("Keypoint %d at %v: inside window (%f, %f, %f) = %v, returned = %v", idx, kpt.Pt, x, y, margin, inside, found)
			}
		}
	}
}

func TestGridIndexHasShape(t *testing.T) {
	params := testGridParameters(t)
	index := BuildGridIndex([]Keypoint{NewKeypoint(10, 10, 0, 0)}, params)
	if !index.HasShape(params) {
		t.Error("Expected index to match its own parameters")
	}
	short, err := NewGridParameters(64, 10, 0, 0, 640, 480)
	if err != nil {
		t.Fatal(err)
	}
	if BuildGridIndex(nil, short).HasShape(params) {
		t.Error("Expected index with 10 rows to mismatch 48 row parameters")
	}
	if index[:63].HasShape(params) {
		t.Error("Expected index with 63 columns to mismatch 64 column parameters")
	}
}
