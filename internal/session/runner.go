package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/2beens/posecoach/internal/pose"
	"github.com/2beens/posecoach/internal/protocol"
	"github.com/2beens/posecoach/internal/telemetry/metrics"
	"github.com/2beens/posecoach/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrRunnerClosed   = errors.New("session runner closed")
	ErrUnknownCommand = errors.New("unknown session command")
)

const (
	defaultTickInterval = time.Second
	defaultBufferSize   = 16
)

type Command string

const (
	CommandStart      Command = "start"
	CommandToggle     Command = "toggle"
	CommandSkip       Command = "skip"
	CommandSwitchSide Command = "switch-side"
	CommandReset      Command = "reset"

	// commandNone only reads the state, in order with other commands and ticks
	commandNone Command = ""
)

func ParseCommand(s string) (Command, error) {
	switch cmd := Command(s); cmd {
	case CommandStart, CommandToggle, CommandSkip, CommandSwitchSide, CommandReset:
		return cmd, nil
	default:
		return commandNone, fmt.Errorf("%w: %q", ErrUnknownCommand, s)
	}
}

// FrameResult is the outcome of classifying one submitted detection.
type FrameResult struct {
	SessionID  string
	Verdict    bool
	Mode       pose.ExerciseMode
	Frame      pose.Frame
	Evaluation pose.Evaluation
	At         time.Time
}

// RunnerParams configure a Runner. Metrics is required.
type RunnerParams struct {
	ID         string
	Protocol   protocol.Protocol
	Classifier *pose.Classifier
	Metrics    *metrics.Manager
	// Ticks drives the countdown. Defaults to a wall-clock ticker.
	Ticks TickSource
	// TickInterval is used for the default ticker only.
	TickInterval time.Duration
	// VerdictMaxAge makes an old verdict count as a broken pose when no new
	// frames arrive. Zero keeps the last verdict until the next frame.
	VerdictMaxAge time.Duration
	// BufferSize of the Updates and Results channels.
	BufferSize int
	Now        func() time.Time
}

// verdictCell is the last classified frame, tagged with the side epoch it was
// classified under. received is the server time the frame arrived at, device
// clocks are not trusted for ageing.
type verdictCell struct {
	epoch    uint64
	correct  bool
	err      error
	received time.Time
}

type submission struct {
	detection pose.Detection
	received  time.Time
}

type target struct {
	mode  pose.ExerciseMode
	epoch uint64
}

type commandRequest struct {
	cmd   Command
	reply chan State
}

// Runner drives one session. A classification worker turns submitted detections
// into verdicts, a tick loop owns the Controller and applies verdicts, ticks and
// commands to it. Nothing outside the tick loop touches the controller.
type Runner struct {
	id            string
	protocol      protocol.Protocol
	controller    *Controller
	evaluate      func(pose.Frame, pose.ExerciseMode) pose.Evaluation
	metrics       *metrics.Manager
	ticks         TickSource
	verdictMaxAge time.Duration
	now           func() time.Time

	detections chan submission
	commands   chan commandRequest
	updates    chan State
	results    chan FrameResult

	verdict  atomic.Pointer[verdictCell]
	target   atomic.Pointer[target]
	snapshot atomic.Pointer[State]

	// tick loop only
	lastError    string
	staleCounted *verdictCell

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
	closed    atomic.Bool
}

// NewRunner starts the session goroutines. They stop when ctx is done or Close
// is called. Close must be called either way to release the ticker and the
// output channels.
func NewRunner(ctx context.Context, params RunnerParams) *Runner {
	if params.Classifier == nil {
		params.Classifier = pose.NewClassifier(params.Metrics)
	}
	return newRunner(ctx, params, params.Classifier.Evaluate)
}

func newRunner(
	ctx context.Context,
	params RunnerParams,
	evaluate func(pose.Frame, pose.ExerciseMode) pose.Evaluation,
) *Runner {
	if params.TickInterval <= 0 {
		params.TickInterval = defaultTickInterval
	}
	if params.Ticks == nil {
		params.Ticks = NewTickerSource(params.TickInterval)
	}
	if params.BufferSize <= 0 {
		params.BufferSize = defaultBufferSize
	}
	if params.Now == nil {
		params.Now = time.Now
	}

	runCtx, cancel := context.WithCancel(ctx)
	r := &Runner{
		id:            params.ID,
		protocol:      params.Protocol,
		controller:    NewController(params.Protocol),
		evaluate:      evaluate,
		metrics:       params.Metrics,
		ticks:         params.Ticks,
		verdictMaxAge: params.VerdictMaxAge,
		now:           params.Now,
		detections:    make(chan submission, 1),
		commands:      make(chan commandRequest),
		updates:       make(chan State, params.BufferSize),
		results:       make(chan FrameResult, params.BufferSize),
		ctx:           runCtx,
		cancel:        cancel,
	}
	r.publishTarget()
	r.storeSnapshot()

	r.wg.Add(2)
	go r.classifyLoop()
	go r.tickLoop()

	return r
}

func (r *Runner) ID() string {
	return r.id
}

func (r *Runner) Protocol() protocol.Protocol {
	return r.protocol
}

// Snapshot returns the latest published state without waiting.
func (r *Runner) Snapshot() State {
	return *r.snapshot.Load()
}

// Updates emits a state after every transition. When the reader falls behind,
// the oldest states are dropped. Closed by Close.
func (r *Runner) Updates() <-chan State {
	return r.updates
}

// Results emits every classified frame, dropping the oldest when full.
// Closed by Close.
func (r *Runner) Results() <-chan FrameResult {
	return r.results
}

// Submit hands a detection over to the classification worker and never blocks.
// A detection still waiting to be classified is replaced by the new one.
func (r *Runner) Submit(d pose.Detection) error {
	if r.closed.Load() {
		return ErrRunnerClosed
	}
	received := r.now()
	if d.At.IsZero() {
		d.At = received
	}
	sub := submission{detection: d, received: received}

	for {
		select {
		case r.detections <- sub:
			return nil
		default:
		}
		select {
		case <-r.detections:
			r.metrics.CounterFramesDropped.Inc()
		default:
		}
	}
}

// Do applies a command in order with ticks and returns the resulting state.
// Commands that are not valid in the current state leave it unchanged.
func (r *Runner) Do(ctx context.Context, cmd Command) (_ State, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "session.runner.do")
	span.SetAttributes(
		attribute.String("session.id", r.id),
		attribute.String("session.command", string(cmd)),
	)
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if _, err = ParseCommand(string(cmd)); err != nil {
		return State{}, err
	}
	return r.roundTrip(ctx, cmd)
}

// State returns the current state after every tick and command sent before it
// has been applied.
func (r *Runner) State(ctx context.Context) (State, error) {
	return r.roundTrip(ctx, commandNone)
}

func (r *Runner) roundTrip(ctx context.Context, cmd Command) (State, error) {
	if r.ctx.Err() != nil {
		return State{}, ErrRunnerClosed
	}
	req := commandRequest{cmd: cmd, reply: make(chan State, 1)}
	select {
	case r.commands <- req:
	case <-ctx.Done():
		return State{}, ctx.Err()
	case <-r.ctx.Done():
		return State{}, ErrRunnerClosed
	}

	select {
	case st := <-req.reply:
		return st, nil
	case <-ctx.Done():
		return State{}, ctx.Err()
	case <-r.ctx.Done():
		return State{}, ErrRunnerClosed
	}
}

// Close stops both goroutines and waits for them. A classification in flight
// finishes, but its result is dropped. Safe to call more than once.
func (r *Runner) Close() {
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		r.cancel()
		r.wg.Wait()
		r.ticks.Stop()
		close(r.updates)
		close(r.results)
		log.Debugf("session [%s] runner closed", r.id)
	})
}

func (r *Runner) classifyLoop() {
	defer r.wg.Done()
	for {
		select {
		case <-r.ctx.Done():
			return
		case sub := <-r.detections:
			r.classify(sub.detection, sub.received)
		}
	}
}

func (r *Runner) classify(d pose.Detection, received time.Time) {
	tgt := r.target.Load()
	cell := &verdictCell{
		epoch:    tgt.epoch,
		received: received,
	}

	var res FrameResult
	if d.Err != nil {
		cell.err = d.Err
		r.metrics.CounterDetectorErrors.Inc()
	} else {
		frame := d.Frame()
		ev := r.evaluate(frame, tgt.mode)
		cell.correct = ev.Verdict
		res = FrameResult{
			SessionID:  r.id,
			Verdict:    ev.Verdict,
			Mode:       tgt.mode,
			Frame:      frame,
			Evaluation: ev,
			At:         d.At,
		}
	}

	if r.ctx.Err() != nil {
		return
	}

	prev := r.verdict.Swap(cell)
	if d.Err != nil {
		// once per failure streak
		if prev == nil || prev.err == nil {
			log.Errorf("session [%s] detection failed: %s", r.id, d.Err)
		}
		return
	}
	sendDropOldest(r.results, res)
}

func (r *Runner) tickLoop() {
	defer r.wg.Done()
	ticks := r.ticks.C()
	for {
		select {
		case <-r.ctx.Done():
			return
		case _, ok := <-ticks:
			if !ok {
				ticks = nil
				continue
			}
			r.onTick()
		case req := <-r.commands:
			req.reply <- r.apply(req.cmd)
		}
	}
}

func (r *Runner) onTick() {
	correct, lastErr := r.currentVerdict()
	if lastErr != r.lastError {
		r.lastError = lastErr
		r.publish(false)
	}

	if r.controller.OnVerdict(correct) {
		r.publish(true)
	}
	if r.controller.Tick() {
		r.publish(true)
	}
}

// currentVerdict reads the verdict cell. A cell classified for another side,
// one older than the max age, or one carrying a detector error counts as false.
func (r *Runner) currentVerdict() (bool, string) {
	cell := r.verdict.Load()
	if cell == nil {
		return false, r.lastError
	}

	if cell.epoch != r.controller.Epoch() {
		if r.staleCounted != cell {
			r.staleCounted = cell
			r.metrics.CounterStaleVerdicts.Inc()
		}
		return false, r.lastError
	}

	if cell.err != nil {
		return false, cell.err.Error()
	}

	if r.verdictMaxAge > 0 && r.now().Sub(cell.received) > r.verdictMaxAge {
		return false, ""
	}

	return cell.correct, ""
}

func (r *Runner) apply(cmd Command) State {
	var changed bool
	switch cmd {
	case CommandStart:
		changed = r.controller.Start()
	case CommandToggle:
		changed = r.controller.ToggleStart()
	case CommandSkip:
		changed = r.controller.Skip()
	case CommandSwitchSide:
		changed = r.controller.SwitchSide()
	case CommandReset:
		changed = r.controller.Reset()
	}

	if changed {
		r.publish(true)
	}
	return r.Snapshot()
}

// publish stores and emits the controller state. transition is false when
// only the runner's own fields changed.
func (r *Runner) publish(transition bool) {
	prev := r.Snapshot()
	r.publishTarget()
	st := r.storeSnapshot()

	if transition {
		r.metrics.CounterTransitions.WithLabelValues(r.protocol.Name, string(st.Transition)).Inc()
		if st.Transition != TransitionTick {
			log.Debugf("session [%s] %s: set %d/%d, side %s, timer %d",
				r.id, st.Transition, st.CurrentSet, st.TotalSets, st.CurrentSide, st.TimerSeconds)
		}
	}
	if st.Completed && !prev.Completed {
		r.metrics.CounterSessionsCompleted.WithLabelValues(r.protocol.Name).Inc()
		log.Infof("session [%s] completed %s", r.id, r.protocol.Name)
	}

	sendDropOldest(r.updates, st)
}

func (r *Runner) publishTarget() {
	r.target.Store(&target{
		mode:  r.controller.Mode(),
		epoch: r.controller.Epoch(),
	})
}

func (r *Runner) storeSnapshot() State {
	st := r.controller.State()
	st.SessionID = r.id
	st.LastError = r.lastError
	st.UpdatedAt = r.now()
	r.snapshot.Store(&st)
	return st
}

// sendDropOldest never blocks. It must only be used by the single sender of ch.
func sendDropOldest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
