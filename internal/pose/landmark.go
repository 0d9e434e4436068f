package pose

import "github.com/2beens/posecoach/internal/geometry"

// Landmark indices of the 33-point full-body pose model.
// The mapping is fixed by the model and is not computed here.
const (
	Nose          = 0
	LeftShoulder  = 11
	RightShoulder = 12
	LeftElbow     = 13
	RightElbow    = 14
	LeftWrist     = 15
	RightWrist    = 16
	LeftHip       = 23
	RightHip      = 24
	LeftKnee      = 25
	RightKnee     = 26
	LeftAnkle     = 27
	RightAnkle    = 28

	NumLandmarks = 33
)

// Landmark is one tracked anatomical point. X and Y are normalized image
// coordinates; Z and Visibility are carried through but not used for classification.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z,omitempty"`
	Visibility float64 `json:"visibility,omitempty"`
}

func (l Landmark) Point() geometry.Point {
	return geometry.Point{X: l.X, Y: l.Y}
}

// Frame is the ordered landmark list of a single detected body.
// An empty frame means nobody was detected.
type Frame []Landmark

func (f Frame) Empty() bool {
	return len(f) == 0
}

// Complete reports whether every landmark index of the model is present.
func (f Frame) Complete() bool {
	return len(f) >= NumLandmarks
}

func (f Frame) point(index int) geometry.Point {
	return f[index].Point()
}

// FirstBody reduces a multi-body detection to its first body.
// Identity is not tracked across detections.
func FirstBody(bodies []Frame) Frame {
	if len(bodies) == 0 {
		return nil
	}
	return bodies[0]
}

// limb holds the landmark indices of one side of the body.
type limb struct {
	shoulder, elbow, wrist int
	hip, knee, ankle       int
}

var (
	leftLimb = limb{
		shoulder: LeftShoulder, elbow: LeftElbow, wrist: LeftWrist,
		hip: LeftHip, knee: LeftKnee, ankle: LeftAnkle,
	}
	rightLimb = limb{
		shoulder: RightShoulder, elbow: RightElbow, wrist: RightWrist,
		hip: RightHip, knee: RightKnee, ankle: RightAnkle,
	}
)
