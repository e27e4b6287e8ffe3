package slam

import "github.com/pkg/errors"

var (
	// ErrIndexOutOfRange is returned when caller supplied index does not address an existing element
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrLengthMismatch is returned when parallel slices (keypoints, descriptors, predictions) differ in length
	ErrLengthMismatch = errors.New("length mismatch")
	// ErrNoDescriptors is returned when median descriptor is requested for an empty set
	ErrNoDescriptors = errors.New("no descriptors")
	// ErrSlotOccupied is returned when keypoint already holds an observed landmark
	ErrSlotOccupied = errors.New("keypoint already holds observed landmark")
	// ErrUnknownLandmark is returned for handles which are not present in the map
	ErrUnknownLandmark = errors.New("unknown landmark")
	// ErrInvalidConfig is returned by configuration validation
	ErrInvalidConfig = errors.New("invalid configuration")
)
