package slam

import (
	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// FeatureTrack is a keypoint followed across consecutive frames.
// Its image position is smoothed by 2D Kalman filter which also predicts where the keypoint will appear next.
type FeatureTrack struct {
	id                    uuid.UUID
	keypoint              Keypoint
	descriptor            Descriptor
	predictedNextPosition Point
	track                 []Point
	maxTrackLen           int
	noMatchTimes          int
	tracker               *kalman_filter.Kalman2D
}

// NewFeatureTrackWithTime creates track starting at keypoint with specified time step.
func NewFeatureTrackWithTime(keypoint Keypoint, descriptor Descriptor, dt float64) *FeatureTrack {
	/* Kalman filter props. No control input: keypoints drift with camera motion only */
	ux := 0.0
	uy := 0.0
	stdDevA := 2.0
	stdDevMx := 0.1
	stdDevMy := 0.1
	kf := kalman_filter.NewKalman2D(dt, ux, uy, stdDevA, stdDevMx, stdDevMy, kalman_filter.WithState2D(keypoint.Pt.X, keypoint.Pt.Y))
	ft := FeatureTrack{
		id:                    uuid.New(),
		keypoint:              keypoint,
		descriptor:            descriptor,
		predictedNextPosition: keypoint.Pt,
		track:                 make([]Point, 0, 32),
		maxTrackLen:           32,
		noMatchTimes:          0,
		tracker:               kf,
	}
	ft.track = append(ft.track, keypoint.Pt)
	return &ft
}

// NewFeatureTrack creates track with default time step of 1.0.
func NewFeatureTrack(keypoint Keypoint, descriptor Descriptor) *FeatureTrack {
	return NewFeatureTrackWithTime(keypoint, descriptor, 1.0)
}

// GetID returns track's identifier
func (ft *FeatureTrack) GetID() uuid.UUID {
	return ft.id
}

// Keypoint returns last matched keypoint with smoothed position
func (ft *FeatureTrack) Keypoint() Keypoint {
	return ft.keypoint
}

// Descriptor returns descriptor of last matched keypoint
func (ft *FeatureTrack) Descriptor() Descriptor {
	return ft.descriptor
}

// GetPredictedPosition returns position estimated by the last PredictNextPosition call
func (ft *FeatureTrack) GetPredictedPosition() Point {
	return ft.predictedNextPosition
}

// GetTrack returns track's history. Be careful: this is not copy of track, but reference to it
func (ft *FeatureTrack) GetTrack() []Point {
	return ft.track
}

// GetMaxTrackLen returns track's max history length
func (ft *FeatureTrack) GetMaxTrackLen() int {
	return ft.maxTrackLen
}

// SetMaxTrackLen sets track's max history length
func (ft *FeatureTrack) SetMaxTrackLen(newMaxTrackLen int) {
	ft.maxTrackLen = newMaxTrackLen
}

// GetNoMatchTimes returns number of consecutive frames the track was not matched
func (ft *FeatureTrack) GetNoMatchTimes() int {
	return ft.noMatchTimes
}

// IncNoMatch increases track's no match times
func (ft *FeatureTrack) IncNoMatch() {
	ft.noMatchTimes++
}

// DistanceToPredicted returns distance from predicted position to the point
func (ft *FeatureTrack) DistanceToPredicted(pt Point) float64 {
	return euclideanDistance(ft.predictedNextPosition, pt)
}

// PredictNextPosition execute Kalman filter's first step but without re-evaluating state vector based on Kalman gain
func (ft *FeatureTrack) PredictNextPosition() Point {
	ft.tracker.Predict()
	stateX, stateY := ft.tracker.GetState()
	ft.predictedNextPosition = Point{X: stateX, Y: stateY}
	return ft.predictedNextPosition
}

// Update feeds matched keypoint to Kalman filter (second step) and appends smoothed position to history
func (ft *FeatureTrack) Update(keypoint Keypoint, descriptor Descriptor) error {
	err := ft.tracker.Update(keypoint.Pt.X, keypoint.Pt.Y)
	if err != nil {
		return errors.Wrap(err, "Can't update feature tracker")
	}
	stateX, stateY := ft.tracker.GetState()
	ft.keypoint = keypoint
	ft.keypoint.Pt = Point{X: stateX, Y: stateY}
	ft.descriptor = descriptor
	ft.noMatchTimes = 0
	ft.track = append(ft.track, ft.keypoint.Pt)
	if len(ft.track) > ft.maxTrackLen {
		ft.track = ft.track[1:]
	}
	return nil
}
