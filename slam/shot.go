package slam

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Shot is a single camera frame: pose, features and keypoint to landmark associations.
// Mutation of landmark associations is not synchronized; callers serialize it per shot.
type Shot struct {
	id          uuid.UUID
	name        string
	pose        Pose
	camera      Camera
	keypoints   []Keypoint
	descriptors []Descriptor
	gridParams  GridParameters
	grid        GridIndex
	landmarks   []LandmarkID
	// Arena landmarks live in. Set by Map.AddShot
	slamMap *Map
}

// NewShot creates shot and distributes its keypoints into grid
func NewShot(name string, camera Camera, pose Pose, keypoints []Keypoint, descriptors []Descriptor, gridParams GridParameters) (*Shot, error) {
	if len(keypoints) != len(descriptors) {
		return nil, errors.Wrapf(ErrLengthMismatch, "shot %s has %d keypoints and %d descriptors", name, len(keypoints), len(descriptors))
	}
	landmarks := make([]LandmarkID, len(keypoints))
	for i := range landmarks {
		landmarks[i] = NoLandmark
	}
	return &Shot{
		id:          uuid.New(),
		name:        name,
		pose:        pose,
		camera:      camera,
		keypoints:   keypoints,
		descriptors: descriptors,
		gridParams:  gridParams,
		grid:        BuildGridIndex(keypoints, gridParams),
		landmarks:   landmarks,
	}, nil
}

// GetID returns shot's identifier
func (shot *Shot) GetID() uuid.UUID {
	return shot.id
}

// Name returns shot's human readable name
func (shot *Shot) Name() string {
	return shot.name
}

// Pose returns world to camera pose
func (shot *Shot) Pose() Pose {
	return shot.pose
}

// SetPose overrides world to camera pose
func (shot *Shot) SetPose(pose Pose) {
	shot.pose = pose
}

// Camera returns camera model
func (shot *Shot) Camera() Camera {
	return shot.camera
}

// NumKeypoints returns number of keypoints
func (shot *Shot) NumKeypoints() int {
	return len(shot.keypoints)
}

// Keypoint returns keypoint at idx
func (shot *Shot) Keypoint(idx int) Keypoint {
	return shot.keypoints[idx]
}

// Keypoints returns all keypoints. Be careful: this is not copy, but reference
func (shot *Shot) Keypoints() []Keypoint {
	return shot.keypoints
}

// Descriptor returns descriptor at idx
func (shot *Shot) Descriptor(idx int) Descriptor {
	return shot.descriptors[idx]
}

// Descriptors returns all descriptors. Be careful: this is not copy, but reference
func (shot *Shot) Descriptors() []Descriptor {
	return shot.descriptors
}

// Grid returns keypoint grid index
func (shot *Shot) Grid() GridIndex {
	return shot.grid
}

// GridParameters returns parameters the grid index was built with
func (shot *Shot) GridParameters() GridParameters {
	return shot.gridParams
}

// KeypointsInWindow returns keypoints inside square window, see GridIndex.Query
func (shot *Shot) KeypointsInWindow(x, y, margin float64, minLevel, maxLevel int) []int {
	return shot.grid.Query(shot.keypoints, shot.gridParams, x, y, margin, minLevel, maxLevel)
}

// LandmarkID returns handle of landmark attached to keypoint idx
func (shot *Shot) LandmarkID(idx int) LandmarkID {
	return shot.landmarks[idx]
}

// Landmark returns landmark attached to keypoint idx. Nil is returned for empty slots and stale handles
func (shot *Shot) Landmark(idx int) *Landmark {
	id := shot.landmarks[idx]
	if id == NoLandmark || shot.slamMap == nil {
		return nil
	}
	return shot.slamMap.landmark(id)
}

// AddLandmarkObservation attaches landmark to keypoint idx.
// Slot may be overwritten only if it is empty or holds landmark without observations
func (shot *Shot) AddLandmarkObservation(id LandmarkID, idx int) error {
	if idx < 0 || idx >= len(shot.keypoints) {
		return errors.Wrapf(ErrIndexOutOfRange, "keypoint %d in shot %s with %d keypoints", idx, shot.name, len(shot.keypoints))
	}
	if shot.slamMap == nil {
		return errors.Errorf("shot %s is not attached to a map", shot.name)
	}
	lm := shot.slamMap.landmark(id)
	if lm == nil {
		return errors.Wrapf(ErrUnknownLandmark, "landmark %d", id)
	}
	if current := shot.Landmark(idx); current != nil && current.id != id {
		if current.HasObservations() {
			return errors.Wrapf(ErrSlotOccupied, "keypoint %d in shot %s holds landmark %d", idx, shot.name, current.id)
		}
	}
	// Landmark can be observed by a shot only once
	if prevIdx, ok := lm.observations[shot.id]; ok && prevIdx != idx {
		shot.landmarks[prevIdx] = NoLandmark
	}
	shot.landmarks[idx] = id
	lm.addObservation(shot.id, idx)
	return nil
}

// RemoveLandmarkObservation detaches landmark from keypoint idx. Empty slot is not an error
func (shot *Shot) RemoveLandmarkObservation(idx int) error {
	if idx < 0 || idx >= len(shot.keypoints) {
		return errors.Wrapf(ErrIndexOutOfRange, "keypoint %d in shot %s with %d keypoints", idx, shot.name, len(shot.keypoints))
	}
	if lm := shot.Landmark(idx); lm != nil {
		lm.removeObservation(shot.id)
	}
	shot.landmarks[idx] = NoLandmark
	return nil
}

// NumValidLandmarks counts attached landmarks which have at least minObservations observations
func (shot *Shot) NumValidLandmarks(minObservations int) int {
	count := 0
	for idx := range shot.landmarks {
		lm := shot.Landmark(idx)
		if lm != nil && lm.NumObservations() >= minObservations {
			count++
		}
	}
	return count
}
