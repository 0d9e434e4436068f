package protocol

import (
	"errors"
	"fmt"
	"time"

	"github.com/2beens/posecoach/internal/pose"
)

var (
	ErrUnknownProtocol = errors.New("unknown protocol")
	ErrInvalidProtocol = errors.New("invalid protocol")
)

// Kind tells how the countdown of a side is meant to be used.
type Kind string

const (
	// KindHold requires a continuous correct pose for the whole duration.
	KindHold Kind = "hold"
	// KindRep is a shorter timed repetition per side.
	KindRep Kind = "rep"
)

// Protocol describes one exercise session: which two sides are worked, in what
// order, how many sets and how long each side has to be held.
type Protocol struct {
	Name      string               `json:"name" yaml:"name"`
	Title     string               `json:"title" yaml:"title"`
	Kind      Kind                 `json:"kind" yaml:"kind"`
	Sides     [2]pose.ExerciseMode `json:"sides" yaml:"sides"`
	TotalSets int                  `json:"totalSets" yaml:"total_sets"`
	Duration  time.Duration        `json:"duration" yaml:"duration"`
}

// HamstringStretch is the seated hamstring stretch: hold each leg for 30 seconds,
// left leg first, three sets.
var HamstringStretch = Protocol{
	Name:      "hamstring_stretch",
	Title:     "Hamstring stretch",
	Kind:      KindHold,
	Sides:     [2]pose.ExerciseMode{pose.LeftLeg, pose.RightLeg},
	TotalSets: 3,
	Duration:  30 * time.Second,
}

// ShoulderFlexion is the shoulder flexion range-of-motion exercise: raise each arm
// for 5 seconds, right arm first, three sets.
var ShoulderFlexion = Protocol{
	Name:      "shoulder_flexion",
	Title:     "Shoulder flexion",
	Kind:      KindRep,
	Sides:     [2]pose.ExerciseMode{pose.RightArm, pose.LeftArm},
	TotalSets: 3,
	Duration:  5 * time.Second,
}

func (p Protocol) FirstSide() pose.ExerciseMode {
	return p.Sides[0]
}

// DurationSeconds is the countdown start value of every side.
func (p Protocol) DurationSeconds() int {
	return int(p.Duration / time.Second)
}

func (p Protocol) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidProtocol)
	}
	switch p.Kind {
	case KindHold, KindRep:
	default:
		return fmt.Errorf("%w [%s]: unknown kind %q", ErrInvalidProtocol, p.Name, p.Kind)
	}
	first, second := p.Sides[0], p.Sides[1]
	if !first.Valid() || !second.Valid() {
		return fmt.Errorf("%w [%s]: both sides must be set", ErrInvalidProtocol, p.Name)
	}
	if first.Mirror() != second {
		return fmt.Errorf("%w [%s]: sides %s and %s are not the same exercise on opposite sides", ErrInvalidProtocol, p.Name, first, second)
	}
	if p.TotalSets < 1 {
		return fmt.Errorf("%w [%s]: total sets must be at least 1", ErrInvalidProtocol, p.Name)
	}
	if p.Duration < time.Second || p.Duration%time.Second != 0 {
		return fmt.Errorf("%w [%s]: duration must be a whole number of seconds, got %s", ErrInvalidProtocol, p.Name, p.Duration)
	}
	return nil
}
