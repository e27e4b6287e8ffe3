package slam

import (
	"math"

	"github.com/pkg/errors"
)

// ScalePyramid holds per-level scale factors of the feature extractor.
type ScalePyramid struct {
	factors        []float64
	logScaleFactor float64
}

// NewScalePyramid creates pyramid with numLevels levels growing geometrically by scaleFactor
func NewScalePyramid(numLevels int, scaleFactor float64) (ScalePyramid, error) {
	if numLevels <= 0 {
		return ScalePyramid{}, errors.Wrapf(ErrInvalidConfig, "number of scale levels must be positive, got %d", numLevels)
	}
	if scaleFactor <= 1.0 {
		return ScalePyramid{}, errors.Wrapf(ErrInvalidConfig, "scale factor must be greater than 1, got %f", scaleFactor)
	}
	factors := make([]float64, numLevels)
	factors[0] = 1.0
	for level := 1; level < numLevels; level++ {
		factors[level] = factors[level-1] * scaleFactor
	}
	return ScalePyramid{
		factors:        factors,
		logScaleFactor: math.Log(scaleFactor),
	}, nil
}

// NewScalePyramidFromFactors creates pyramid from explicit table. Table must be strictly increasing
func NewScalePyramidFromFactors(factors []float64) (ScalePyramid, error) {
	if len(factors) == 0 {
		return ScalePyramid{}, errors.Wrap(ErrInvalidConfig, "empty scale factors table")
	}
	for level := 1; level < len(factors); level++ {
		if factors[level] <= factors[level-1] {
			return ScalePyramid{}, errors.Wrapf(ErrInvalidConfig, "scale factors must increase, level %d has %f after %f", level, factors[level], factors[level-1])
		}
	}
	logScaleFactor := 0.0
	if len(factors) > 1 {
		logScaleFactor = math.Log(factors[1] / factors[0])
	}
	cp := make([]float64, len(factors))
	copy(cp, factors)
	return ScalePyramid{
		factors:        cp,
		logScaleFactor: logScaleFactor,
	}, nil
}

// NumLevels returns number of pyramid levels
func (pyramid ScalePyramid) NumLevels() int {
	return len(pyramid.factors)
}

// Factor returns scale factor at the level. Levels outside of the table are clamped
func (pyramid ScalePyramid) Factor(level int) float64 {
	return pyramid.factors[clampInt(level, 0, len(pyramid.factors)-1)]
}

// Factors returns copy of the table
func (pyramid ScalePyramid) Factors() []float64 {
	cp := make([]float64, len(pyramid.factors))
	copy(cp, pyramid.factors)
	return cp
}

// PredictScaleLevel predicts pyramid level for landmark seen at currentDistance.
// Nearer observations predict finer levels; result is clamped to [0, NumLevels-1]
func (pyramid ScalePyramid) PredictScaleLevel(maxValidDistance, currentDistance float64) int {
	numLevels := len(pyramid.factors)
	if numLevels <= 1 || pyramid.logScaleFactor <= 0 {
		return 0
	}
	if currentDistance <= 0 {
		return numLevels - 1
	}
	ratio := maxValidDistance / currentDistance
	predicted := math.Ceil(math.Log(ratio) / pyramid.logScaleFactor)
	if predicted < 0 || math.IsNaN(predicted) {
		return 0
	}
	if predicted >= float64(numLevels) {
		return numLevels - 1
	}
	return int(predicted)
}
