package session

import (
	"github.com/2beens/posecoach/internal/pose"
	"github.com/2beens/posecoach/internal/protocol"
)

// Controller is the exercise session state machine. It is not safe for concurrent
// use; Runner owns one from a single goroutine.
//
// Every mutating method returns whether the state changed. Calls that are not
// valid in the current state are no-ops and return false.
type Controller struct {
	protocol protocol.Protocol

	set          int
	sideIndex    int
	timerSeconds int
	timerRunning bool
	started      bool
	paused       bool
	completed    bool

	// epoch changes whenever the active side changes, so verdicts classified
	// for a previous side can be told apart
	epoch      uint64
	transition Transition
}

func NewController(p protocol.Protocol) *Controller {
	c := &Controller{protocol: p}
	c.restart()
	return c
}

func (c *Controller) restart() {
	c.set = 1
	c.sideIndex = 0
	c.timerSeconds = c.protocol.DurationSeconds()
	c.timerRunning = false
	c.started = false
	c.paused = false
	c.completed = false
	c.epoch++
}

func (c *Controller) Protocol() protocol.Protocol {
	return c.protocol
}

// Mode is the exercise mode frames have to be classified with right now.
func (c *Controller) Mode() pose.ExerciseMode {
	return c.protocol.Sides[c.sideIndex]
}

func (c *Controller) Epoch() uint64 {
	return c.epoch
}

func (c *Controller) State() State {
	return State{
		Protocol:     c.protocol.Name,
		Status:       c.status(),
		CurrentSet:   c.set,
		TotalSets:    c.protocol.TotalSets,
		CurrentSide:  c.Mode(),
		SideIndex:    c.sideIndex,
		TimerSeconds: c.timerSeconds,
		TimerRunning: c.timerRunning,
		Started:      c.started,
		Completed:    c.completed,
		Transition:   c.transition,
	}
}

func (c *Controller) status() Status {
	switch {
	case c.completed:
		return StatusCompleted
	case !c.started && c.paused:
		return StatusPaused
	case !c.started:
		return StatusIdle
	case c.timerRunning:
		return StatusCountingDown
	default:
		return StatusRunning
	}
}

func (c *Controller) active() bool {
	return c.started && !c.completed
}

// Start begins the session, or resumes a paused one.
func (c *Controller) Start() bool {
	if c.started || c.completed {
		return false
	}
	c.transition = TransitionStarted
	if c.paused {
		c.transition = TransitionResumed
	}
	c.started = true
	c.paused = false
	return true
}

// ToggleStart pauses a started session, keeping its counters, or starts it.
func (c *Controller) ToggleStart() bool {
	if c.completed {
		return false
	}
	if !c.started {
		return c.Start()
	}
	c.started = false
	c.paused = true
	c.timerRunning = false
	c.transition = TransitionPaused
	return true
}

// OnVerdict feeds the latest per-frame verdict. A correct pose starts the
// countdown; a broken pose freezes it at its current value. The countdown is
// never reset here, only at side and set boundaries.
func (c *Controller) OnVerdict(correct bool) bool {
	if !c.active() {
		return false
	}
	switch {
	case correct && !c.timerRunning:
		c.timerRunning = true
		c.transition = TransitionCountdownStarted
		return true
	case !correct && c.timerRunning:
		c.timerRunning = false
		c.transition = TransitionCountdownFrozen
		return true
	default:
		return false
	}
}

// Tick consumes one second of the running countdown. When it reaches zero the
// session advances to the next side, the next set, or completes.
func (c *Controller) Tick() bool {
	if !c.active() || !c.timerRunning {
		return false
	}
	c.timerSeconds--
	if c.timerSeconds > 0 {
		c.transition = TransitionTick
		return true
	}
	c.timerSeconds = 0
	c.transition = c.advance()
	return true
}

// Skip ends the current side right away, as if its countdown had expired.
func (c *Controller) Skip() bool {
	if !c.active() {
		return false
	}
	c.advance()
	c.transition = TransitionSkipped
	return true
}

// SwitchSide moves to the other side of the current set with a full countdown.
func (c *Controller) SwitchSide() bool {
	if c.completed {
		return false
	}
	c.sideIndex = 1 - c.sideIndex
	c.timerSeconds = c.protocol.DurationSeconds()
	c.timerRunning = false
	c.epoch++
	c.transition = TransitionSideSwitched
	return true
}

// Reset brings a completed session back to its initial, not started, state.
func (c *Controller) Reset() bool {
	if !c.completed {
		return false
	}
	c.restart()
	c.transition = TransitionReset
	return true
}

func (c *Controller) advance() Transition {
	c.timerRunning = false

	if c.sideIndex == 0 {
		c.sideIndex = 1
		c.timerSeconds = c.protocol.DurationSeconds()
		c.epoch++
		return TransitionSideAdvanced
	}

	if c.set < c.protocol.TotalSets {
		c.set++
		c.sideIndex = 0
		c.timerSeconds = c.protocol.DurationSeconds()
		c.epoch++
		return TransitionSetAdvanced
	}

	c.completed = true
	c.timerSeconds = 0
	return TransitionCompleted
}
