package slam

import (
	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"
)

// LandmarkID is a stable handle of landmark inside Map
type LandmarkID int

// NoLandmark marks keypoint which holds no landmark
const NoLandmark LandmarkID = -1

// Landmark is a triangulated 3D point observed by one or more shots.
type Landmark struct {
	id               LandmarkID
	position         r3.Vec
	descriptor       Descriptor
	meanNormal       r3.Vec
	minValidDistance float64
	maxValidDistance float64
	// Shot ID -> keypoint index
	observations map[uuid.UUID]int
	// Order of observations; first alive one is the reference for depth range
	observationOrder []uuid.UUID
}

func newLandmark(id LandmarkID, position r3.Vec, descriptor Descriptor) *Landmark {
	return &Landmark{
		id:               id,
		position:         position,
		descriptor:       descriptor,
		observations:     make(map[uuid.UUID]int),
		observationOrder: make([]uuid.UUID, 0, 4),
	}
}

// GetID returns landmark's handle
func (lm *Landmark) GetID() LandmarkID {
	return lm.id
}

// Position returns global 3D position
func (lm *Landmark) Position() r3.Vec {
	return lm.position
}

// SetPosition updates global 3D position
func (lm *Landmark) SetPosition(position r3.Vec) {
	lm.position = position
}

// Descriptor returns representative descriptor
func (lm *Landmark) Descriptor() Descriptor {
	return lm.descriptor
}

// SetDescriptor overrides representative descriptor
func (lm *Landmark) SetDescriptor(descriptor Descriptor) {
	lm.descriptor = descriptor
}

// MeanNormal returns mean viewing direction (unit vector)
func (lm *Landmark) MeanNormal() r3.Vec {
	return lm.meanNormal
}

// MinValidDistance returns minimum distance the landmark can be observed from
func (lm *Landmark) MinValidDistance() float64 {
	return lm.minValidDistance
}

// MaxValidDistance returns maximum distance the landmark can be observed from
func (lm *Landmark) MaxValidDistance() float64 {
	return lm.maxValidDistance
}

// SetObservationGeometry overrides mean viewing direction and valid distance range
func (lm *Landmark) SetObservationGeometry(meanNormal r3.Vec, minValidDistance, maxValidDistance float64) {
	lm.meanNormal = meanNormal
	lm.minValidDistance = minValidDistance
	lm.maxValidDistance = maxValidDistance
}

// NumObservations returns number of shots observing the landmark
func (lm *Landmark) NumObservations() int {
	return len(lm.observations)
}

// HasObservations returns true if at least one shot observes the landmark
func (lm *Landmark) HasObservations() bool {
	return len(lm.observations) > 0
}

// Observation returns keypoint index of the landmark in the given shot
func (lm *Landmark) Observation(shotID uuid.UUID) (int, bool) {
	idx, ok := lm.observations[shotID]
	return idx, ok
}

// ObservingShots returns IDs of observing shots in the order observations were added
func (lm *Landmark) ObservingShots() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(lm.observations))
	for _, shotID := range lm.observationOrder {
		if _, ok := lm.observations[shotID]; ok {
			ids = append(ids, shotID)
		}
	}
	return ids
}

func (lm *Landmark) addObservation(shotID uuid.UUID, idx int) {
	if _, ok := lm.observations[shotID]; !ok {
		lm.observationOrder = append(lm.observationOrder, shotID)
	}
	lm.observations[shotID] = idx
}

func (lm *Landmark) removeObservation(shotID uuid.UUID) {
	if _, ok := lm.observations[shotID]; !ok {
		return
	}
	delete(lm.observations, shotID)
	for i, id := range lm.observationOrder {
		if id == shotID {
			lm.observationOrder = append(lm.observationOrder[:i], lm.observationOrder[i+1:]...)
			break
		}
	}
}
