package slam

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/spatial/r3"
)

// NoMatch is returned when there is no acceptable candidate
const NoMatch = -1

// Match is a pair of corresponding indices in the first and the second set
type Match struct {
	Index1 int
	Index2 int
}

// MatchList is a bijective partial matching ordered by Index1
type MatchList []Match

// Observation is a predicted landmark appearance in a shot
type Observation struct {
	Reprojection Point
	ScaleLevel   int
	Distance     float64
}

// GuidedMatcher restricts descriptor matching to spatial and scale windows predicted from geometry.
// It holds read-only configuration only and is safe for concurrent use on independent shots.
type GuidedMatcher struct {
	cfg        Config
	gridParams GridParameters
	pyramid    ScalePyramid
	logger     zerolog.Logger
}

// MatcherOption customizes GuidedMatcher
type MatcherOption func(*GuidedMatcher)

// WithLogger sets logger for debug output. Default is no-op logger
func WithLogger(logger zerolog.Logger) MatcherOption {
	return func(matcher *GuidedMatcher) {
		matcher.logger = logger.With().Str("component", "guided_matcher").Logger()
	}
}

// NewGuidedMatcher creates matcher from validated configuration
func NewGuidedMatcher(cfg Config, opts ...MatcherOption) (*GuidedMatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "Can't create guided matcher")
	}
	gridParams, err := cfg.GridParameters()
	if err != nil {
		return nil, err
	}
	pyramid, err := cfg.ScalePyramid()
	if err != nil {
		return nil, err
	}
	matcher := &GuidedMatcher{
		cfg:        cfg,
		gridParams: gridParams,
		pyramid:    pyramid,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(matcher)
	}
	return matcher, nil
}

// Config returns matcher's configuration
func (matcher *GuidedMatcher) Config() Config {
	return matcher.cfg
}

// GridParameters returns grid the matcher builds indices with
func (matcher *GuidedMatcher) GridParameters() GridParameters {
	return matcher.gridParams
}

// ScalePyramid returns scale factors table
func (matcher *GuidedMatcher) ScalePyramid() ScalePyramid {
	return matcher.pyramid
}

// DistributeKeypointsToGrid builds grid index using matcher's grid parameters
func (matcher *GuidedMatcher) DistributeKeypointsToGrid(keypoints []Keypoint) GridIndex {
	return BuildGridIndex(keypoints, matcher.gridParams)
}

// KeypointsInCell queries grid index built with matcher's grid parameters
func (matcher *GuidedMatcher) KeypointsInCell(keypoints []Keypoint, grid GridIndex, refX, refY, margin float64, minLevel, maxLevel int) []int {
	return grid.Query(keypoints, matcher.gridParams, refX, refY, margin, minLevel, maxLevel)
}

// NewShot creates shot with matcher's grid parameters
func (matcher *GuidedMatcher) NewShot(name string, camera Camera, pose Pose, keypoints []Keypoint, descriptors []Descriptor) (*Shot, error) {
	return NewShot(name, camera, pose, keypoints, descriptors, matcher.gridParams)
}

// MatchKeypointsToKeypoints matches keypoints of the first set to keypoints of the second set.
// Candidates for keypoint i are searched in grid2 around predicted[i] within margin on the same pyramid level.
// Grid2 must be built from keypoints2 with matcher's grid parameters.
func (matcher *GuidedMatcher) MatchKeypointsToKeypoints(keypoints1 []Keypoint, descriptors1 []Descriptor, keypoints2 []Keypoint, descriptors2 []Descriptor, grid2 GridIndex, predicted []Point, margin float64) (MatchList, error) {
	if len(keypoints1) == 0 || len(keypoints2) == 0 || grid2.Empty() {
		return MatchList{}, nil
	}
	if len(keypoints1) != len(descriptors1) {
		return nil, errors.Wrapf(ErrLengthMismatch, "first set has %d keypoints and %d descriptors", len(keypoints1), len(descriptors1))
	}
	if len(keypoints2) != len(descriptors2) {
		return nil, errors.Wrapf(ErrLengthMismatch, "second set has %d keypoints and %d descriptors", len(keypoints2), len(descriptors2))
	}
	if len(predicted) != len(keypoints1) {
		return nil, errors.Wrapf(ErrLengthMismatch, "first set has %d keypoints and %d predicted positions", len(keypoints1), len(predicted))
	}
	if !grid2.HasShape(matcher.gridParams) {
		return nil, errors.Wrapf(ErrLengthMismatch, "grid index shape does not match %dx%d grid", matcher.gridParams.Cols, matcher.gridParams.Rows)
	}

	switch matcher.cfg.Algorithm {
	case MatchingAlgorithmHungarian:
		return matcher.matchHungarian(keypoints1, descriptors1, keypoints2, descriptors2, grid2, predicted, margin), nil
	default:
		return matcher.matchGreedy(keypoints1, descriptors1, keypoints2, descriptors2, grid2, predicted, margin), nil
	}
}

func (matcher *GuidedMatcher) matchGreedy(keypoints1 []Keypoint, descriptors1 []Descriptor, keypoints2 []Keypoint, descriptors2 []Descriptor, grid2 GridIndex, predicted []Point, margin float64) MatchList {
	numPts1 := len(keypoints1)
	numPts2 := len(keypoints2)

	matchedDistsIn2 := make([]int, numPts2)
	matchedIndices1In2 := make([]int, numPts2)
	for i := range matchedDistsIn2 {
		matchedDistsIn2[i] = MaxHammingDistance
		matchedIndices1In2[i] = NoMatch
	}
	matchedIndices2In1 := make([]int, numPts1)
	for i := range matchedIndices2In1 {
		matchedIndices2In1[i] = NoMatch
	}

	checker := NewAngleChecker[int](matcher.cfg.OrientationBins, matcher.cfg.OrientationKeptBins, matcher.cfg.OrientationMinBinRatio)
	for idx1, kpt1 := range keypoints1 {
		level := kpt1.Octave
		if level < 0 {
			continue
		}
		indices := matcher.KeypointsInCell(keypoints2, grid2, predicted[idx1].X, predicted[idx1].Y, margin, level, level)
		if len(indices) == 0 {
			continue
		}

		bestDist := MaxHammingDistance
		secondBestDist := MaxHammingDistance
		bestIdx2 := NoMatch
		for _, idx2 := range indices {
			dist := HammingDistance(descriptors1[idx1], descriptors2[idx2])
			// Keypoint is already claimed by closer one
			if matchedDistsIn2[idx2] <= dist {
				continue
			}
			if dist < bestDist {
				secondBestDist = bestDist
				bestDist = dist
				bestIdx2 = idx2
			} else if dist < secondBestDist {
				secondBestDist = dist
			}
		}
		if !matcher.acceptable(bestIdx2, bestDist, secondBestDist) {
			continue
		}

		if prevIdx1 := matchedIndices1In2[bestIdx2]; prevIdx1 >= 0 {
			matchedIndices2In1[prevIdx1] = NoMatch
		}
		matchedIndices2In1[idx1] = bestIdx2
		matchedIndices1In2[bestIdx2] = idx1
		matchedDistsIn2[bestIdx2] = bestDist

		if matcher.cfg.CheckOrientation {
			checker.AppendDelta(kpt1.Angle-keypoints2[bestIdx2].Angle, idx1)
		}
	}

	if matcher.cfg.CheckOrientation {
		for _, invalidIdx1 := range checker.InvalidMatches() {
			matchedIndices2In1[invalidIdx1] = NoMatch
		}
	}

	matches := make(MatchList, 0, numPts1)
	for idx1, idx2 := range matchedIndices2In1 {
		if idx2 >= 0 {
			matches = append(matches, Match{Index1: idx1, Index2: idx2})
		}
	}
	matcher.logger.Debug().
		Int("num_pts_1", numPts1).
		Int("num_pts_2", numPts2).
		Int("num_matches", len(matches)).
		Msg("matched keypoints")
	return matches
}

// acceptable applies absolute threshold and ratio test
func (matcher *GuidedMatcher) acceptable(bestIdx, bestDist, secondBestDist int) bool {
	if bestIdx < 0 {
		return false
	}
	if bestDist > matcher.cfg.HammingThresholdLow {
		return false
	}
	if float64(secondBestDist)*matcher.cfg.LoweRatio < float64(bestDist) {
		return false
	}
	return true
}

// FindBestMatchForLandmark searches target shot around (reprojX, reprojY) for the keypoint most similar to landmark.
// Only keypoints which hold no observed landmark are considered. NoMatch is returned if nothing passes high threshold
func (matcher *GuidedMatcher) FindBestMatchForLandmark(lm *Landmark, target *Shot, reprojX, reprojY float64, sourceLevel int, scaledMargin float64) int {
	indices := target.KeypointsInWindow(reprojX, reprojY, scaledMargin, sourceLevel-1, sourceLevel+1)
	if len(indices) == 0 {
		return NoMatch
	}
	lmDesc := lm.Descriptor()
	bestDist := MaxHammingDistance + 1
	bestIdx := NoMatch
	for _, idx := range indices {
		current := target.Landmark(idx)
		if current != nil && current.HasObservations() {
			continue
		}
		dist := HammingDistance(lmDesc, target.Descriptor(idx))
		if dist < bestDist {
			bestDist = dist
			bestIdx = idx
		}
	}
	if bestIdx < 0 || bestDist > matcher.cfg.HammingThresholdHigh {
		return NoMatch
	}
	return bestIdx
}

// AssignLandmarksFromShot tracks landmarks observed in source shot into target shot.
// Every landmark is reprojected with target pose and matched within margin scaled by the source keypoint level.
// Landmarks already observed by target are left where they are.
// Returns number of landmarks attached to target
func (matcher *GuidedMatcher) AssignLandmarksFromShot(source, target *Shot, margin float64) (int, error) {
	numMatches := 0
	checker := NewAngleChecker[int](matcher.cfg.OrientationBins, matcher.cfg.OrientationKeptBins, matcher.cfg.OrientationMinBinRatio)

	pose := target.Pose()
	rotCW := pose.RotationWorldToCamera()
	transCW := pose.TranslationWorldToCamera()
	camera := target.Camera()
	targetGrid := target.GridParameters()

	notInGrid := 0
	for idxSource := 0; idxSource < source.NumKeypoints(); idxSource++ {
		lm := source.Landmark(idxSource)
		if lm == nil {
			continue
		}
		if _, observed := lm.Observation(target.GetID()); observed {
			continue
		}
		pt, ok := camera.ReprojectToImage(rotCW, transCW, lm.Position())
		if !ok {
			continue
		}
		if !targetGrid.InGrid(pt) {
			notInGrid++
			continue
		}
		sourceKpt := source.Keypoint(idxSource)
		if sourceKpt.Octave < 0 {
			continue
		}
		scaledMargin := margin * matcher.pyramid.Factor(sourceKpt.Octave)
		bestIdx := matcher.FindBestMatchForLandmark(lm, target, pt.X, pt.Y, sourceKpt.Octave, scaledMargin)
		if bestIdx == NoMatch {
			continue
		}
		if err := target.AddLandmarkObservation(lm.GetID(), bestIdx); err != nil {
			return numMatches, errors.Wrapf(err, "Can't attach landmark %d to shot %s", lm.GetID(), target.Name())
		}
		numMatches++
		if matcher.cfg.CheckOrientation {
			checker.AppendDelta(sourceKpt.Angle-target.Keypoint(bestIdx).Angle, bestIdx)
		}
	}

	rejected := 0
	if matcher.cfg.CheckOrientation {
		for _, invalidIdx := range checker.InvalidMatches() {
			if err := target.RemoveLandmarkObservation(invalidIdx); err != nil {
				return numMatches, errors.Wrapf(err, "Can't detach landmark from shot %s", target.Name())
			}
			numMatches--
			rejected++
		}
	}
	matcher.logger.Debug().
		Str("source", source.Name()).
		Str("target", target.Name()).
		Int("not_in_grid", notInGrid).
		Int("orientation_rejected", rejected).
		Int("num_matches", numMatches).
		Msg("assigned landmarks")
	return numMatches, nil
}

// IsObservable checks whether landmark should be visible in shot: it must reproject inside the grid,
// lie within its valid distance range and be seen at angle whose cosine to the mean viewing direction exceeds rayCosThreshold.
// On success predicted pyramid level is returned along with reprojection
func (matcher *GuidedMatcher) IsObservable(lm *Landmark, shot *Shot, rayCosThreshold float64) (Observation, bool) {
	pose := shot.Pose()
	posW := lm.Position()
	reproj, ok := shot.Camera().ReprojectToImage(pose.RotationWorldToCamera(), pose.TranslationWorldToCamera(), posW)
	if !ok {
		return Observation{}, false
	}
	if !shot.GridParameters().InGrid(reproj) {
		return Observation{}, false
	}
	camToLm := r3.Sub(posW, pose.Origin())
	dist := r3.Norm(camToLm)
	if dist < lm.MinValidDistance() || dist > lm.MaxValidDistance() {
		return Observation{}, false
	}
	rayCos := r3.Dot(camToLm, lm.MeanNormal()) / dist
	if rayCos <= rayCosThreshold {
		return Observation{}, false
	}
	return Observation{
		Reprojection: reproj,
		ScaleLevel:   matcher.PredictScaleLevel(lm.MaxValidDistance(), dist),
		Distance:     dist,
	}, true
}

// PredictScaleLevel predicts pyramid level of landmark seen from currentDistance, see ScalePyramid.PredictScaleLevel
func (matcher *GuidedMatcher) PredictScaleLevel(maxValidDistance, currentDistance float64) int {
	return matcher.pyramid.PredictScaleLevel(maxValidDistance, currentDistance)
}
