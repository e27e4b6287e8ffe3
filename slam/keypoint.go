package slam

// Keypoint is a detected image feature.
type Keypoint struct {
	// Undistorted location in pixels
	Pt Point
	// Scale pyramid level the feature was detected at. Negative means the keypoint must be skipped
	Octave int
	// Orientation in degrees
	Angle float64
}

// NewKeypoint creates keypoint at (x, y)
func NewKeypoint(x, y float64, octave int, angle float64) Keypoint {
	return Keypoint{
		Pt:     Point{X: x, Y: y},
		Octave: octave,
		Angle:  angle,
	}
}
