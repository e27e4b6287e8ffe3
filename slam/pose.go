package slam

import "gonum.org/v1/gonum/spatial/r3"

// Pose is a rigid world to camera transform: p_cam = R * p_world + t
type Pose struct {
	rotation    *r3.Mat
	translation r3.Vec
}

// NewPose creates pose from world to camera rotation and translation
func NewPose(rotationWorldToCamera *r3.Mat, translationWorldToCamera r3.Vec) Pose {
	return Pose{
		rotation:    rotationWorldToCamera,
		translation: translationWorldToCamera,
	}
}

// NewPoseFromOrigin creates pose of the camera placed at origin (world coordinates) with the given world to camera rotation
func NewPoseFromOrigin(rotationWorldToCamera *r3.Mat, origin r3.Vec) Pose {
	return Pose{
		rotation:    rotationWorldToCamera,
		translation: r3.Scale(-1, rotationWorldToCamera.MulVec(origin)),
	}
}

// RotationWorldToCamera returns R
func (pose Pose) RotationWorldToCamera() *r3.Mat {
	return pose.rotation
}

// TranslationWorldToCamera returns t
func (pose Pose) TranslationWorldToCamera() r3.Vec {
	return pose.translation
}

// Origin returns camera center in world coordinates: -R^T * t
func (pose Pose) Origin() r3.Vec {
	return r3.Scale(-1, pose.rotation.MulVecTrans(pose.translation))
}

// TransformToCamera maps world point to camera frame
func (pose Pose) TransformToCamera(pointWorld r3.Vec) r3.Vec {
	return r3.Add(pose.rotation.MulVec(pointWorld), pose.translation)
}
