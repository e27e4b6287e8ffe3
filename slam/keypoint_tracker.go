package slam

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// TrackingResult describes keypoints of a single frame
type TrackingResult struct {
	// Track ID of every keypoint of the frame
	TrackIDs []uuid.UUID
	// Number of keypoints which continued existing tracks
	Matched int
	// Number of keypoints which started new tracks
	Registered int
}

// KeypointTracker follows keypoints between consecutive frames.
// Kalman-predicted positions of alive tracks guide the matching of every new frame.
type KeypointTracker struct {
	matcher *GuidedMatcher
	// Main storage
	Tracks map[uuid.UUID]*FeatureTrack
	// Creation order of tracks. Matching visits tracks in this order
	order []uuid.UUID
	// Search window half-width in pixels
	margin float64
	// Max no match (max number of frames when track could not be found again)
	maxNoMatch int
	// Kalman filter time step
	dt float64
}

// NewKeypointTrackerDefault creates tracker with matcher's default margin, 5 frames of patience and unit time step
func NewKeypointTrackerDefault(matcher *GuidedMatcher) *KeypointTracker {
	return NewKeypointTracker(matcher, matcher.Config().DefaultMargin, 5, 1.0)
}

// NewKeypointTracker creates new instance of KeypointTracker
func NewKeypointTracker(matcher *GuidedMatcher, margin float64, maxNoMatch int, dt float64) *KeypointTracker {
	return &KeypointTracker{
		matcher:    matcher,
		Tracks:     make(map[uuid.UUID]*FeatureTrack),
		order:      make([]uuid.UUID, 0),
		margin:     margin,
		maxNoMatch: maxNoMatch,
		dt:         dt,
	}
}

// Track matches keypoints of the next frame against alive tracks.
// Matched keypoints continue their tracks, the rest start new ones, tracks unseen for too long are removed
func (tracker *KeypointTracker) Track(keypoints []Keypoint, descriptors []Descriptor) (TrackingResult, error) {
	if len(keypoints) != len(descriptors) {
		return TrackingResult{}, errors.Wrapf(ErrLengthMismatch, "frame has %d keypoints and %d descriptors", len(keypoints), len(descriptors))
	}
	numTracks := len(tracker.order)
	trackKeypoints := make([]Keypoint, numTracks)
	trackDescriptors := make([]Descriptor, numTracks)
	predicted := make([]Point, numTracks)
	for i, trackID := range tracker.order {
		ft := tracker.Tracks[trackID]
		trackKeypoints[i] = ft.Keypoint()
		trackDescriptors[i] = ft.Descriptor()
		predicted[i] = ft.PredictNextPosition()
	}

	grid := tracker.matcher.DistributeKeypointsToGrid(keypoints)
	matches, err := tracker.matcher.MatchKeypointsToKeypoints(trackKeypoints, trackDescriptors, keypoints, descriptors, grid, predicted, tracker.margin)
	if err != nil {
		return TrackingResult{}, errors.Wrap(err, "Can't match frame against tracks")
	}

	result := TrackingResult{
		TrackIDs: make([]uuid.UUID, len(keypoints)),
	}
	updated := make(map[uuid.UUID]struct{}, len(matches))
	for _, match := range matches {
		trackID := tracker.order[match.Index1]
		err := tracker.Tracks[trackID].Update(keypoints[match.Index2], descriptors[match.Index2])
		if err != nil {
			return TrackingResult{}, errors.Wrapf(err, "Can't update track with id %s", trackID.String())
		}
		updated[trackID] = struct{}{}
		result.TrackIDs[match.Index2] = trackID
		result.Matched++
	}

	// Clean up tracks which were not found for a long time
	alive := make([]uuid.UUID, 0, len(tracker.order)+len(keypoints))
	for _, trackID := range tracker.order {
		if _, ok := updated[trackID]; !ok {
			tracker.Tracks[trackID].IncNoMatch()
			if tracker.Tracks[trackID].GetNoMatchTimes() > tracker.maxNoMatch {
				delete(tracker.Tracks, trackID)
				continue
			}
		}
		alive = append(alive, trackID)
	}
	tracker.order = alive

	// Register unmatched keypoints as new tracks
	for idx, trackID := range result.TrackIDs {
		if trackID != uuid.Nil {
			continue
		}
		if keypoints[idx].Octave < 0 {
			continue
		}
		ft := NewFeatureTrackWithTime(keypoints[idx], descriptors[idx], tracker.dt)
		tracker.Tracks[ft.GetID()] = ft
		tracker.order = append(tracker.order, ft.GetID())
		result.TrackIDs[idx] = ft.GetID()
		result.Registered++
	}
	return result, nil
}
