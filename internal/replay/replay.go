// Package replay runs a recorded landmark stream through a session controller
// on a simulated clock.
package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/2beens/posecoach/internal/pose"
	"github.com/2beens/posecoach/internal/protocol"
	"github.com/2beens/posecoach/internal/session"

	log "github.com/sirupsen/logrus"
)

const (
	maxLineBytes = 4 << 20

	DefaultMaxGap = time.Hour
)

var (
	ErrTimeGoesBackwards = errors.New("record time goes backwards")
	ErrGapTooLarge       = errors.New("gap between records too large")
)

// Record is one line of a replay file.
type Record struct {
	// T is seconds since the start of the recording.
	T      float64      `json:"t"`
	Bodies []pose.Frame `json:"bodies"`
	Error  string       `json:"error,omitempty"`
}

// Step is one session state change, At is the simulated time it happened at.
type Step struct {
	At    time.Duration `json:"at"`
	State session.State `json:"state"`
}

type Params struct {
	Protocol protocol.Protocol
	// Start is the simulated wall-clock time of t=0, stamped on emitted states.
	Start time.Time
	// Tail keeps ticking for this long after the last record, holding the last
	// verdict, e.g. to let a final countdown run out.
	Tail time.Duration
	// MaxGap rejects a record stamped more than this after the previous one
	// (or after t=0). Defaults to DefaultMaxGap.
	MaxGap time.Duration
	// Evaluate defaults to pose.Evaluate.
	Evaluate func(pose.Frame, pose.ExerciseMode) pose.Evaluation
}

type Summary struct {
	Frames         int           `json:"frames"`
	CorrectFrames  int           `json:"correctFrames"`
	DetectorErrors int           `json:"detectorErrors"`
	Ticks          int           `json:"ticks"`
	Steps          int           `json:"steps"`
	Duration       time.Duration `json:"duration"`
	Final          session.State `json:"final"`
}

type verdict struct {
	epoch   uint64
	correct bool
}

type replayer struct {
	params     Params
	controller *session.Controller
	emit       func(Step) error

	verdict   *verdict
	lastError string
	ticks     int
	summary   Summary
}

// Run starts a session for params.Protocol at t=0 and feeds it the records read
// from r, one per line. The controller ticks once per simulated second, before
// the records stamped at or after that second are classified. emit is called
// for every state change. Blank lines are skipped.
func Run(ctx context.Context, r io.Reader, params Params, emit func(Step) error) (Summary, error) {
	if params.Evaluate == nil {
		params.Evaluate = pose.Evaluate
	}
	if params.MaxGap <= 0 {
		params.MaxGap = DefaultMaxGap
	}
	if params.Start.IsZero() {
		params.Start = time.Unix(0, 0).UTC()
	}
	if emit == nil {
		emit = func(Step) error { return nil }
	}

	rp := &replayer{
		params:     params,
		controller: session.NewController(params.Protocol),
		emit:       emit,
	}

	if rp.controller.Start() {
		if err := rp.step(0); err != nil {
			return rp.summary, err
		}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	lineNo := 0
	last := 0.0
	for scanner.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return rp.summary, err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return rp.summary, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if rec.T < last {
			return rp.summary, fmt.Errorf("line %d: %w: %.3f < %.3f", lineNo, ErrTimeGoesBackwards, rec.T, last)
		}
		if gap := rec.T - last; gap > params.MaxGap.Seconds() {
			return rp.summary, fmt.Errorf("line %d: %w: %.3fs > %s", lineNo, ErrGapTooLarge, gap, params.MaxGap)
		}
		last = rec.T

		if err := rp.tickUntil(ctx, rec.T); err != nil {
			return rp.summary, err
		}
		if err := rp.classify(lineNo, rec); err != nil {
			return rp.summary, err
		}
	}
	if err := scanner.Err(); err != nil {
		return rp.summary, fmt.Errorf("read records: %w", err)
	}

	if err := rp.tickUntil(ctx, last+params.Tail.Seconds()); err != nil {
		return rp.summary, err
	}

	rp.summary.Ticks = rp.ticks
	rp.summary.Duration = time.Duration(rp.ticks) * time.Second
	rp.summary.Final = rp.state(rp.summary.Duration)
	return rp.summary, nil
}

// tickUntil delivers every whole-second tick up to and including t.
func (rp *replayer) tickUntil(ctx context.Context, t float64) error {
	for next := rp.ticks + 1; float64(next) <= t || nearlyEqual(float64(next), t); next++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		rp.ticks = next
		at := time.Duration(next) * time.Second

		correct := rp.verdict != nil &&
			rp.verdict.epoch == rp.controller.Epoch() &&
			rp.verdict.correct
		if rp.controller.OnVerdict(correct) {
			if err := rp.step(at); err != nil {
				return err
			}
		}
		if rp.controller.Tick() {
			if err := rp.step(at); err != nil {
				return err
			}
		}
	}
	return nil
}

func (rp *replayer) classify(lineNo int, rec Record) error {
	detection, err := pose.NewDetection(rec.Bodies, rec.Error, rp.params.Start.Add(seconds(rec.T)))
	if err != nil {
		return fmt.Errorf("line %d: %w", lineNo, err)
	}

	rp.summary.Frames++
	if detection.Err != nil {
		rp.summary.DetectorErrors++
		if rp.lastError == "" {
			log.Warnf("replay line %d: detection failed: %s", lineNo, detection.Err)
		}
		rp.lastError = detection.Err.Error()
		rp.verdict = &verdict{epoch: rp.controller.Epoch()}
		return nil
	}

	rp.lastError = ""
	ev := rp.params.Evaluate(detection.Frame(), rp.controller.Mode())
	if ev.Verdict {
		rp.summary.CorrectFrames++
	}
	rp.verdict = &verdict{
		epoch:   rp.controller.Epoch(),
		correct: ev.Verdict,
	}
	log.Tracef("replay line %d: t=%.3f mode=%s verdict=%t", lineNo, rec.T, ev.Mode, ev.Verdict)
	return nil
}

func (rp *replayer) state(at time.Duration) session.State {
	st := rp.controller.State()
	st.LastError = rp.lastError
	st.UpdatedAt = rp.params.Start.Add(at)
	return st
}

func (rp *replayer) step(at time.Duration) error {
	rp.summary.Steps++
	return rp.emit(Step{At: at, State: rp.state(at)})
}

func seconds(t float64) time.Duration {
	return time.Duration(t * float64(time.Second))
}

func nearlyEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
