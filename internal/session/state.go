package session

import (
	"time"

	"github.com/2beens/posecoach/internal/pose"
)

type Status string

const (
	StatusIdle         Status = "idle"
	StatusRunning      Status = "running"
	StatusCountingDown Status = "counting_down"
	StatusPaused       Status = "paused"
	StatusCompleted    Status = "completed"
)

// Transition names the controller operation that produced a state.
type Transition string

const (
	TransitionStarted          Transition = "started"
	TransitionResumed          Transition = "resumed"
	TransitionPaused           Transition = "paused"
	TransitionCountdownStarted Transition = "countdown_started"
	TransitionCountdownFrozen  Transition = "countdown_frozen"
	TransitionTick             Transition = "tick"
	TransitionSideAdvanced     Transition = "side_advanced"
	TransitionSetAdvanced      Transition = "set_advanced"
	TransitionCompleted        Transition = "completed"
	TransitionSkipped          Transition = "skipped"
	TransitionSideSwitched     Transition = "side_switched"
	TransitionReset            Transition = "reset"
)

// State is a snapshot of a session. It is a value: holding on to it never
// observes later transitions.
type State struct {
	SessionID    string            `json:"id,omitempty"`
	Protocol     string            `json:"protocol"`
	Status       Status            `json:"status"`
	CurrentSet   int               `json:"currentSet"`
	TotalSets    int               `json:"totalSets"`
	CurrentSide  pose.ExerciseMode `json:"currentSide"`
	SideIndex    int               `json:"sideIndex"`
	TimerSeconds int               `json:"timerSeconds"`
	TimerRunning bool              `json:"timerRunning"`
	Started      bool              `json:"started"`
	Completed    bool              `json:"completed"`
	LastError    string            `json:"lastError,omitempty"`
	Transition   Transition        `json:"transition,omitempty"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}
