package pose

import (
	"fmt"
	"math"
	"strconv"

	"github.com/2beens/posecoach/internal/geometry"
)

// Thresholds were tuned against reference rays built from a landmark offset by
// exactly one normalized unit, see legFeatures and armFeatures.
const (
	MinKneeAngle    = 160.0
	MinTorsoLean    = 30.0
	MaxTorsoLean    = 90.0
	MinArmAngle     = 160.0
	MinArmElevation = 80.0
)

// Angle is an angle in degrees. NaN marks a feature that could not be computed,
// it is encoded as null in JSON.
type Angle float64

func (a Angle) Defined() bool {
	return !math.IsNaN(float64(a))
}

func (a Angle) MarshalJSON() ([]byte, error) {
	if !a.Defined() || math.IsInf(float64(a), 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, float64(a), 'f', 2, 64), nil
}

func (a *Angle) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = Angle(math.NaN())
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("angle %s: %w", data, err)
	}
	*a = Angle(f)
	return nil
}

// Evaluation is the verdict for one frame plus the features it was derived from.
//
// For leg modes Joint is the knee angle and Reference the torso lean against the
// horizontal. For arm modes Joint is the elbow (arm straightness) angle and
// Reference the arm elevation against the vertical.
type Evaluation struct {
	Mode         ExerciseMode `json:"mode"`
	BodyDetected bool         `json:"bodyDetected"`
	Joint        Angle        `json:"joint"`
	Reference    Angle        `json:"reference"`
	Verdict      bool         `json:"verdict"`
}

// Classify reports whether frame shows the exercise selected by mode held correctly.
func Classify(frame Frame, mode ExerciseMode) bool {
	return Evaluate(frame, mode).Verdict
}

// Evaluate computes the per-mode features of frame and applies the mode's rule.
// It keeps no state: the same frame and mode always give the same result.
func Evaluate(frame Frame, mode ExerciseMode) Evaluation {
	ev := Evaluation{
		Mode:      mode,
		Joint:     Angle(math.NaN()),
		Reference: Angle(math.NaN()),
	}
	if frame.Empty() {
		return ev
	}
	ev.BodyDetected = true

	l, ok := mode.limb()
	if !ok || !frame.Complete() {
		return ev
	}

	switch mode.Family() {
	case FamilyLeg:
		knee, torso := legFeatures(frame, l)
		ev.Joint, ev.Reference = Angle(knee), Angle(torso)
		ev.Verdict = LegStretchHeld(knee, torso)
	case FamilyArm:
		arm, elevation := armFeatures(frame, l)
		ev.Joint, ev.Reference = Angle(arm), Angle(elevation)
		ev.Verdict = ArmRaiseHeld(arm, elevation)
	}

	return ev
}

// LegStretchHeld is the hamstring stretch rule: knee nearly straight and the
// torso leaning forward.
func LegStretchHeld(kneeAngle, torsoAngle float64) bool {
	return kneeAngle >= MinKneeAngle &&
		torsoAngle >= MinTorsoLean && torsoAngle <= MaxTorsoLean
}

// ArmRaiseHeld is the shoulder flexion rule: arm straight and raised.
func ArmRaiseHeld(armAngle, elevation float64) bool {
	return armAngle >= MinArmAngle && elevation >= MinArmElevation
}

func legFeatures(frame Frame, l limb) (knee, torso float64) {
	hip := frame.point(l.hip)
	knee = geometry.AngleAt(hip, frame.point(l.knee), frame.point(l.ankle))
	// horizontal reference ray starting at the hip
	torso = geometry.AngleAt(frame.point(l.shoulder), hip, hip.Add(1, 0))
	return knee, torso
}

func armFeatures(frame Frame, l limb) (arm, elevation float64) {
	shoulder := frame.point(l.shoulder)
	wrist := frame.point(l.wrist)
	arm = geometry.AngleAt(shoulder, frame.point(l.elbow), wrist)
	// vertical reference point: the wrist moved one unit up
	elevation = geometry.AngleAt(frame.point(l.hip), shoulder, wrist.Add(0, -1))
	return arm, elevation
}
