package slam

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"
)

// Map is an arena of landmarks and the shots observing them.
// Shots reference landmarks by LandmarkID, so there is no cyclic ownership.
// Map is not safe for concurrent mutation.
type Map struct {
	landmarks []*Landmark
	shots     map[uuid.UUID]*Shot
	pyramid   ScalePyramid
}

// NewMap creates empty map. Pyramid is used to derive valid observation distances of landmarks
func NewMap(pyramid ScalePyramid) *Map {
	return &Map{
		landmarks: make([]*Landmark, 0),
		shots:     make(map[uuid.UUID]*Shot),
		pyramid:   pyramid,
	}
}

// AddShot registers shot in the map
func (m *Map) AddShot(shot *Shot) {
	shot.slamMap = m
	m.shots[shot.id] = shot
}

// Shot returns registered shot
func (m *Map) Shot(id uuid.UUID) (*Shot, bool) {
	shot, ok := m.shots[id]
	return shot, ok
}

// NumShots returns number of registered shots
func (m *Map) NumShots() int {
	return len(m.shots)
}

// AddLandmark creates new landmark and returns its handle
func (m *Map) AddLandmark(position r3.Vec, descriptor Descriptor) LandmarkID {
	id := LandmarkID(len(m.landmarks))
	m.landmarks = append(m.landmarks, newLandmark(id, position, descriptor))
	return id
}

// Landmark returns landmark by its handle
func (m *Map) Landmark(id LandmarkID) (*Landmark, error) {
	lm := m.landmark(id)
	if lm == nil {
		return nil, errors.Wrapf(ErrUnknownLandmark, "landmark %d", id)
	}
	return lm, nil
}

func (m *Map) landmark(id LandmarkID) *Landmark {
	if id < 0 || int(id) >= len(m.landmarks) {
		return nil
	}
	return m.landmarks[id]
}

// NumLandmarks returns number of alive landmarks
func (m *Map) NumLandmarks() int {
	count := 0
	for _, lm := range m.landmarks {
		if lm != nil {
			count++
		}
	}
	return count
}

// RemoveLandmark detaches landmark from every observing shot and frees its handle.
// Handles are never reused
func (m *Map) RemoveLandmark(id LandmarkID) error {
	lm := m.landmark(id)
	if lm == nil {
		return errors.Wrapf(ErrUnknownLandmark, "landmark %d", id)
	}
	for _, shotID := range lm.ObservingShots() {
		shot, ok := m.shots[shotID]
		if !ok {
			continue
		}
		idx := lm.observations[shotID]
		if err := shot.RemoveLandmarkObservation(idx); err != nil {
			return errors.Wrapf(err, "Can't detach landmark %d from shot %s", id, shot.name)
		}
	}
	m.landmarks[id] = nil
	return nil
}

// UpdateNormalAndDepth recomputes mean viewing direction and valid distance range of the landmark
// from its observations. The first observation is the reference one for the distance range
func (m *Map) UpdateNormalAndDepth(id LandmarkID) error {
	lm := m.landmark(id)
	if lm == nil {
		return errors.Wrapf(ErrUnknownLandmark, "landmark %d", id)
	}
	shotIDs := lm.ObservingShots()
	if len(shotIDs) == 0 {
		return errors.Errorf("landmark %d has no observations", id)
	}
	meanNormal := r3.Vec{}
	numRays := 0
	for _, shotID := range shotIDs {
		shot, ok := m.shots[shotID]
		if !ok {
			continue
		}
		ray := r3.Sub(lm.position, shot.pose.Origin())
		if r3.Norm(ray) == 0 {
			continue
		}
		meanNormal = r3.Add(meanNormal, r3.Unit(ray))
		numRays++
	}
	if numRays == 0 {
		return errors.Errorf("landmark %d has no usable observations", id)
	}
	if r3.Norm(meanNormal) > 0 {
		meanNormal = r3.Unit(meanNormal)
	}

	refShot, ok := m.shots[shotIDs[0]]
	if !ok {
		return errors.Errorf("reference shot %s of landmark %d is not registered", shotIDs[0], id)
	}
	refIdx := lm.observations[refShot.id]
	dist := r3.Norm(r3.Sub(lm.position, refShot.pose.Origin()))
	octave := refShot.keypoints[refIdx].Octave
	maxValid := dist * m.pyramid.Factor(octave)
	minValid := maxValid / m.pyramid.Factor(m.pyramid.NumLevels()-1)
	lm.SetObservationGeometry(meanNormal, minValid, maxValid)
	return nil
}

// ComputeDescriptor sets representative descriptor of the landmark to the median one among its observations
func (m *Map) ComputeDescriptor(id LandmarkID) error {
	lm := m.landmark(id)
	if lm == nil {
		return errors.Wrapf(ErrUnknownLandmark, "landmark %d", id)
	}
	descriptors := make([]Descriptor, 0, lm.NumObservations())
	for _, shotID := range lm.ObservingShots() {
		shot, ok := m.shots[shotID]
		if !ok {
			continue
		}
		descriptors = append(descriptors, shot.descriptors[lm.observations[shotID]])
	}
	bestIdx, err := MedianDescriptorIndex(descriptors)
	if err != nil {
		return errors.Wrapf(err, "Can't compute descriptor of landmark %d", id)
	}
	lm.descriptor = descriptors[bestIdx]
	return nil
}
