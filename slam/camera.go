package slam

import "gonum.org/v1/gonum/spatial/r3"

// Camera projects world points into image plane
type Camera interface {
	// ReprojectToImage transforms point into camera frame and projects it.
	// False is returned when point is behind camera or projects outside of sensor
	ReprojectToImage(rotationWorldToCamera *r3.Mat, translationWorldToCamera r3.Vec, pointWorld r3.Vec) (Point, bool)
}

// PinholeCamera is an undistorted perspective camera.
type PinholeCamera struct {
	FocalX  float64
	FocalY  float64
	CenterX float64
	CenterY float64
	Width   float64
	Height  float64
}

// NewPinholeCamera creates camera with square pixels and principal point in the image center
func NewPinholeCamera(focal, width, height float64) PinholeCamera {
	return PinholeCamera{
		FocalX:  focal,
		FocalY:  focal,
		CenterX: width / 2.0,
		CenterY: height / 2.0,
		Width:   width,
		Height:  height,
	}
}

// ReprojectToImage implements Camera
func (cam PinholeCamera) ReprojectToImage(rotationWorldToCamera *r3.Mat, translationWorldToCamera r3.Vec, pointWorld r3.Vec) (Point, bool) {
	pointCam := r3.Add(rotationWorldToCamera.MulVec(pointWorld), translationWorldToCamera)
	if pointCam.Z <= 0 {
		return Point{}, false
	}
	invZ := 1.0 / pointCam.Z
	pt := Point{
		X: cam.FocalX*pointCam.X*invZ + cam.CenterX,
		Y: cam.FocalY*pointCam.Y*invZ + cam.CenterY,
	}
	if pt.X < 0 || pt.X >= cam.Width || pt.Y < 0 || pt.Y >= cam.Height {
		return pt, false
	}
	return pt, true
}
