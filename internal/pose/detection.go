package pose

import (
	"errors"
	"fmt"
	"time"
)

// ErrModelUnavailable is reported by the device when its landmark model is not
// initialized. The host may retry by reinitializing the model.
var ErrModelUnavailable = errors.New("pose landmark model unavailable")

var ErrUnknownDetectorError = errors.New("unknown detector error")

// DetectorErrModelUnavailable is the error code devices send for ErrModelUnavailable.
const DetectorErrModelUnavailable = "model_unavailable"

// Detection is one result of the external landmark pipeline.
// Err is set when the pipeline failed for this frame, Bodies is then ignored.
type Detection struct {
	Bodies []Frame
	Err    error
	At     time.Time
}

func (d Detection) Frame() Frame {
	if d.Err != nil {
		return nil
	}
	return FirstBody(d.Bodies)
}

// NewDetection builds a Detection from a device report. errCode is empty when
// the detector succeeded.
func NewDetection(bodies []Frame, errCode string, at time.Time) (Detection, error) {
	d := Detection{Bodies: bodies, At: at}
	switch errCode {
	case "":
	case DetectorErrModelUnavailable:
		d.Err = ErrModelUnavailable
	default:
		return Detection{}, fmt.Errorf("%w: %q", ErrUnknownDetectorError, errCode)
	}
	return d, nil
}
