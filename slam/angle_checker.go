package slam

import (
	"math"
	"sort"
)

const (
	// DefaultHistogramLength is default number of orientation bins (12 degrees each)
	DefaultHistogramLength = 30
	// DefaultNumBinsThreshold is default number of most populated bins considered valid
	DefaultNumBinsThreshold = 3
	// DefaultMinBinRatio is default minimal population of a secondary bin relative to the most populated one
	DefaultMinBinRatio = 0.1
)

// AngleChecker accumulates orientation differences of accepted matches into a circular histogram
// and reports the matches which do not fall into the dominant bins.
// It is scoped to a single matching call and must not be shared.
type AngleChecker[T comparable] struct {
	histogramLength int
	numBinsThr      int
	minBinRatio     float64
	invBinWidth     float64
	histogram       [][]T
}

// NewAngleChecker creates checker with histogramLength bins, keeping up to numBinsThr most populated ones.
// Every kept bin but the first must hold at least minBinRatio of the first bin's matches.
// Non-positive bin counts and negative ratio fall back to defaults
func NewAngleChecker[T comparable](histogramLength, numBinsThr int, minBinRatio float64) *AngleChecker[T] {
	if histogramLength <= 0 {
		histogramLength = DefaultHistogramLength
	}
	if numBinsThr <= 0 {
		numBinsThr = DefaultNumBinsThreshold
	}
	if numBinsThr > histogramLength {
		numBinsThr = histogramLength
	}
	if minBinRatio < 0 {
		minBinRatio = DefaultMinBinRatio
	}
	return &AngleChecker[T]{
		histogramLength: histogramLength,
		numBinsThr:      numBinsThr,
		minBinRatio:     minBinRatio,
		invBinWidth:     float64(histogramLength) / 360.0,
		histogram:       make([][]T, histogramLength),
	}
}

// AppendDelta puts match into the bin of its orientation difference (degrees)
func (checker *AngleChecker[T]) AppendDelta(deltaAngle float64, match T) {
	deltaAngle = math.Mod(deltaAngle, 360.0)
	if deltaAngle < 0 {
		deltaAngle += 360.0
	}
	bin := int(math.Round(deltaAngle*checker.invBinWidth)) % checker.histogramLength
	checker.histogram[bin] = append(checker.histogram[bin], match)
}

// validBins returns indices of the most populated bins. Ties are resolved by lower bin index.
// Bins after the first are cut once their population drops below minBinRatio of the first one
func (checker *AngleChecker[T]) validBins() []int {
	bins := make([]int, checker.histogramLength)
	for i := range bins {
		bins[i] = i
	}
	sort.SliceStable(bins, func(i, j int) bool {
		return len(checker.histogram[bins[i]]) > len(checker.histogram[bins[j]])
	})
	minCount := checker.minBinRatio * float64(len(checker.histogram[bins[0]]))
	for i := 1; i < checker.numBinsThr; i++ {
		if float64(len(checker.histogram[bins[i]])) < minCount {
			return bins[:i]
		}
	}
	return bins[:checker.numBinsThr]
}

// InvalidMatches returns matches outside of the dominant bins, in bin order
func (checker *AngleChecker[T]) InvalidMatches() []T {
	valid := make([]bool, checker.histogramLength)
	for _, bin := range checker.validBins() {
		valid[bin] = true
	}
	invalid := make([]T, 0)
	for bin, matches := range checker.histogram {
		if valid[bin] {
			continue
		}
		invalid = append(invalid, matches...)
	}
	return invalid
}

// ValidMatches returns matches inside the dominant bins, in bin order
func (checker *AngleChecker[T]) ValidMatches() []T {
	validMatches := make([]T, 0)
	bins := checker.validBins()
	sort.Ints(bins)
	for _, bin := range bins {
		validMatches = append(validMatches, checker.histogram[bin]...)
	}
	return validMatches
}
