package pose

import (
	"fmt"
	"strings"
)

// ExerciseMode selects which stretch, and which side of the body, is evaluated.
type ExerciseMode int

const (
	ModeUnknown ExerciseMode = iota
	LeftLeg
	RightLeg
	LeftArm
	RightArm
)

type Family string

const (
	FamilyLeg Family = "leg"
	FamilyArm Family = "arm"
)

type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

var modeNames = map[ExerciseMode]string{
	LeftLeg:  "left_leg",
	RightLeg: "right_leg",
	LeftArm:  "left_arm",
	RightArm: "right_arm",
}

func (m ExerciseMode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "unknown"
}

func (m ExerciseMode) Valid() bool {
	_, ok := modeNames[m]
	return ok
}

func (m ExerciseMode) Family() Family {
	switch m {
	case LeftLeg, RightLeg:
		return FamilyLeg
	case LeftArm, RightArm:
		return FamilyArm
	default:
		return ""
	}
}

func (m ExerciseMode) Side() Side {
	switch m {
	case LeftLeg, LeftArm:
		return SideLeft
	case RightLeg, RightArm:
		return SideRight
	default:
		return ""
	}
}

// Mirror returns the same exercise on the other side of the body.
func (m ExerciseMode) Mirror() ExerciseMode {
	switch m {
	case LeftLeg:
		return RightLeg
	case RightLeg:
		return LeftLeg
	case LeftArm:
		return RightArm
	case RightArm:
		return LeftArm
	default:
		return ModeUnknown
	}
}

func (m ExerciseMode) limb() (limb, bool) {
	switch m.Side() {
	case SideLeft:
		return leftLimb, true
	case SideRight:
		return rightLimb, true
	default:
		return limb{}, false
	}
}

func ParseMode(s string) (ExerciseMode, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for mode, name := range modeNames {
		if name == normalized {
			return mode, nil
		}
	}
	return ModeUnknown, fmt.Errorf("unknown exercise mode: %q", s)
}

func (m ExerciseMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText accepts "unknown" so every marshaled mode reads back.
func (m *ExerciseMode) UnmarshalText(text []byte) error {
	if string(text) == ModeUnknown.String() {
		*m = ModeUnknown
		return nil
	}
	mode, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}
