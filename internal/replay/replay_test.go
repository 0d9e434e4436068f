package replay_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/2beens/posecoach/internal/pose"
	"github.com/2beens/posecoach/internal/protocol"
	"github.com/2beens/posecoach/internal/replay"
	"github.com/2beens/posecoach/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func legsFrame(straight bool) pose.Frame {
	frame := make(pose.Frame, pose.NumLandmarks)
	for i := range frame {
		frame[i] = pose.Landmark{X: 0.5, Y: 0.5}
	}
	setLeg := func(shoulder, hip, knee, ankle int) {
		frame[shoulder] = pose.Landmark{X: 0.65, Y: 0.24}
		frame[hip] = pose.Landmark{X: 0.5, Y: 0.5}
		frame[knee] = pose.Landmark{X: 0.5, Y: 0.7}
		frame[ankle] = pose.Landmark{X: 0.5, Y: 0.9}
		if !straight {
			frame[ankle] = pose.Landmark{X: 0.7, Y: 0.7}
		}
	}
	setLeg(pose.LeftShoulder, pose.LeftHip, pose.LeftKnee, pose.LeftAnkle)
	setLeg(pose.RightShoulder, pose.RightHip, pose.RightKnee, pose.RightAnkle)
	return frame
}

// recording writes one record every half second in (from, to].
type recording struct {
	sb strings.Builder
}

func (r *recording) add(t *testing.T, from, to float64, rec replay.Record) *recording {
	t.Helper()
	for ts := from + 0.5; ts <= to; ts += 0.5 {
		rec.T = ts
		line, err := json.Marshal(rec)
		require.NoError(t, err)
		r.sb.Write(line)
		r.sb.WriteByte('\n')
	}
	return r
}

func (r *recording) reader() *strings.Reader {
	return strings.NewReader(r.sb.String())
}

func run(t *testing.T, in *strings.Reader, params replay.Params) (replay.Summary, []replay.Step) {
	t.Helper()
	var steps []replay.Step
	summary, err := replay.Run(context.Background(), in, params, func(s replay.Step) error {
		steps = append(steps, s)
		return nil
	})
	require.NoError(t, err)
	return summary, steps
}

func countTransitions(steps []replay.Step, tr session.Transition) int {
	n := 0
	for _, s := range steps {
		if s.State.Transition == tr {
			n++
		}
	}
	return n
}

func TestRun_HoldScenario(t *testing.T) {
	rec := (&recording{}).add(t, 0, 180, replay.Record{Bodies: []pose.Frame{legsFrame(true)}})

	summary, steps := run(t, rec.reader(), replay.Params{Protocol: protocol.HamstringStretch})

	assert.Equal(t, 360, summary.Frames)
	assert.Equal(t, 360, summary.CorrectFrames)
	assert.Equal(t, 180, summary.Ticks)
	assert.Equal(t, 180*time.Second, summary.Duration)
	assert.Equal(t, len(steps), summary.Steps)

	assert.Equal(t, session.StatusCompleted, summary.Final.Status)
	assert.True(t, summary.Final.Completed)
	assert.Equal(t, 0, summary.Final.TimerSeconds)

	assert.Equal(t, 1, countTransitions(steps, session.TransitionStarted))
	assert.Equal(t, 6, countTransitions(steps, session.TransitionCountdownStarted))
	assert.Equal(t, 3, countTransitions(steps, session.TransitionSideAdvanced))
	assert.Equal(t, 2, countTransitions(steps, session.TransitionSetAdvanced))
	assert.Equal(t, 1, countTransitions(steps, session.TransitionCompleted))
	assert.Equal(t, 0, countTransitions(steps, session.TransitionCountdownFrozen))

	last := steps[len(steps)-1]
	assert.Equal(t, 180*time.Second, last.At)
	assert.Equal(t, session.TransitionCompleted, last.State.Transition)
	assert.Equal(t, time.Unix(180, 0).UTC(), last.State.UpdatedAt)
}

func TestRun_BrokenPoseFreezes(t *testing.T) {
	rec := &recording{}
	rec.add(t, 0, 10, replay.Record{Bodies: []pose.Frame{legsFrame(true)}})
	rec.add(t, 10, 20, replay.Record{Bodies: []pose.Frame{legsFrame(false)}})

	summary, steps := run(t, rec.reader(), replay.Params{Protocol: protocol.HamstringStretch})

	assert.Equal(t, 40, summary.Frames)
	assert.Equal(t, 20, summary.CorrectFrames)
	assert.Equal(t, 20, summary.Final.TimerSeconds)
	assert.False(t, summary.Final.TimerRunning)
	assert.Equal(t, session.StatusRunning, summary.Final.Status)
	assert.Equal(t, pose.LeftLeg, summary.Final.CurrentSide)
	assert.Equal(t, 1, countTransitions(steps, session.TransitionCountdownFrozen))
}

func TestRun_DetectorErrors(t *testing.T) {
	rec := &recording{}
	rec.add(t, 0, 5, replay.Record{Error: pose.DetectorErrModelUnavailable})

	summary, _ := run(t, rec.reader(), replay.Params{Protocol: protocol.HamstringStretch})
	assert.Equal(t, 10, summary.DetectorErrors)
	assert.Equal(t, 0, summary.CorrectFrames)
	assert.Equal(t, pose.ErrModelUnavailable.Error(), summary.Final.LastError)
	assert.Equal(t, 30, summary.Final.TimerSeconds)

	// a good frame clears the error
	rec.add(t, 5, 6, replay.Record{Bodies: []pose.Frame{legsFrame(true)}})
	summary, _ = run(t, rec.reader(), replay.Params{Protocol: protocol.HamstringStretch})
	assert.Empty(t, summary.Final.LastError)
	assert.Equal(t, 2, summary.CorrectFrames)
}

func TestRun_TailIgnoresVerdictFromPreviousSide(t *testing.T) {
	rec := &recording{}
	rec.add(t, 0, 0.5, replay.Record{Bodies: []pose.Frame{legsFrame(true)}})

	summary, steps := run(t, rec.reader(), replay.Params{
		Protocol: protocol.HamstringStretch,
		Tail:     40 * time.Second,
	})

	assert.Equal(t, 40, summary.Ticks)
	assert.Equal(t, pose.RightLeg, summary.Final.CurrentSide)
	assert.Equal(t, 30, summary.Final.TimerSeconds)
	assert.False(t, summary.Final.TimerRunning)
	assert.Equal(t, 1, countTransitions(steps, session.TransitionCountdownStarted))
}

func TestRun_CustomEvaluate(t *testing.T) {
	rec := &recording{}
	rec.add(t, 0, 3, replay.Record{})

	var modes []pose.ExerciseMode
	summary, _ := run(t, rec.reader(), replay.Params{
		Protocol: protocol.ShoulderFlexion,
		Evaluate: func(_ pose.Frame, mode pose.ExerciseMode) pose.Evaluation {
			modes = append(modes, mode)
			return pose.Evaluation{Mode: mode, Verdict: true}
		},
	})

	assert.Equal(t, 6, summary.CorrectFrames)
	assert.Equal(t, 2, summary.Final.TimerSeconds)
	require.Len(t, modes, 6)
	assert.Equal(t, pose.RightArm, modes[0])
}

func TestRun_Errors(t *testing.T) {
	params := replay.Params{Protocol: protocol.HamstringStretch}

	_, err := replay.Run(context.Background(), strings.NewReader("{\"t\":2}\n{\"t\":1}\n"), params, nil)
	assert.ErrorIs(t, err, replay.ErrTimeGoesBackwards)
	assert.Contains(t, err.Error(), "line 2")

	_, err = replay.Run(context.Background(), strings.NewReader("{\"t\":1}\nnot json\n"), params, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")

	_, err = replay.Run(context.Background(), strings.NewReader(`{"t":1,"error":"lens_cap_on"}`), params, nil)
	assert.ErrorIs(t, err, pose.ErrUnknownDetectorError)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = replay.Run(ctx, strings.NewReader(`{"t":1}`), params, nil)
	assert.ErrorIs(t, err, context.Canceled)

	emitErr := errors.New("stdout closed")
	_, err = replay.Run(context.Background(), strings.NewReader(""), params, func(replay.Step) error {
		return emitErr
	})
	assert.ErrorIs(t, err, emitErr)
}

func TestRun_GapTooLarge(t *testing.T) {
	params := replay.Params{Protocol: protocol.HamstringStretch}

	_, err := replay.Run(context.Background(), strings.NewReader(`{"t":1e15}`), params, nil)
	assert.ErrorIs(t, err, replay.ErrGapTooLarge)
	assert.Contains(t, err.Error(), "line 1")

	params.MaxGap = 10 * time.Second
	summary, err := replay.Run(context.Background(), strings.NewReader("{\"t\":9}\n{\"t\":21}\n"), params, nil)
	assert.ErrorIs(t, err, replay.ErrGapTooLarge)
	assert.Contains(t, err.Error(), "line 2")
	assert.Equal(t, 1, summary.Frames)
}

func TestRun_LongTailStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := replay.Run(ctx, strings.NewReader(`{"t":1}`), replay.Params{
		Protocol: protocol.HamstringStretch,
		Tail:     time.Duration(math.MaxInt64),
	}, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRun_SkipsBlankLines(t *testing.T) {
	summary, _ := run(t, strings.NewReader("\n{\"t\":0.5}\n\n{\"t\":1.5}\n"), replay.Params{Protocol: protocol.HamstringStretch})
	assert.Equal(t, 2, summary.Frames)
	assert.Equal(t, 1, summary.Ticks)
}
