package pose

import (
	"time"

	"github.com/2beens/posecoach/internal/telemetry/metrics"

	log "github.com/sirupsen/logrus"
)

const (
	outcomeCorrect   = "correct"
	outcomeIncorrect = "incorrect"
	outcomeNoBody    = "no_body"
)

// Classifier evaluates frames and records what it saw.
// It holds no exercise mode: the mode is passed in on every call.
type Classifier struct {
	metrics *metrics.Manager
}

func NewClassifier(metricsManager *metrics.Manager) *Classifier {
	return &Classifier{
		metrics: metricsManager,
	}
}

func (c *Classifier) Evaluate(frame Frame, mode ExerciseMode) Evaluation {
	begin := time.Now()
	ev := Evaluate(frame, mode)

	if c.metrics != nil {
		c.metrics.HistClassifyDuration.Observe(time.Since(begin).Seconds())
		c.metrics.CounterFramesClassified.WithLabelValues(mode.String(), outcome(ev)).Inc()
	}

	if log.IsLevelEnabled(log.DebugLevel) && ev.BodyDetected {
		log.Debugf(
			"classify [%s] - joint: %.2f, reference: %.2f, verdict: %t",
			mode, float64(ev.Joint), float64(ev.Reference), ev.Verdict,
		)
	}

	return ev
}

func outcome(ev Evaluation) string {
	switch {
	case !ev.BodyDetected:
		return outcomeNoBody
	case ev.Verdict:
		return outcomeCorrect
	default:
		return outcomeIncorrect
	}
}
