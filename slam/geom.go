package slam

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Point is a 2D location in pixel coordinates.
type Point struct {
	X float64
	Y float64
}

func euclideanDistance(p1, p2 Point) float64 {
	return math.Sqrt(math.Pow(p1.X-p2.X, 2) + math.Pow(p1.Y-p2.Y, 2))
}

// NewRotation builds a 3x3 rotation matrix from row-major values.
func NewRotation(rowMajor [9]float64) *r3.Mat {
	return r3.NewMat(rowMajor[:])
}

// IdentityRotation returns the 3x3 identity matrix.
func IdentityRotation() *r3.Mat {
	return NewRotation([9]float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	})
}

// RotationY returns a rotation of angle radians around the Y axis.
func RotationY(angle float64) *r3.Mat {
	sin, cos := math.Sincos(angle)
	return NewRotation([9]float64{
		cos, 0, sin,
		0, 1, 0,
		-sin, 0, cos,
	})
}
