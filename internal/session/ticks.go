package session

import "time"

// TickSource delivers the one-second ticks that drive a session countdown.
type TickSource interface {
	C() <-chan time.Time
	Stop()
}

type tickerSource struct {
	ticker *time.Ticker
}

// NewTickerSource ticks on wall-clock time.
func NewTickerSource(interval time.Duration) TickSource {
	return &tickerSource{ticker: time.NewTicker(interval)}
}

func (s *tickerSource) C() <-chan time.Time {
	return s.ticker.C
}

func (s *tickerSource) Stop() {
	s.ticker.Stop()
}

// ManualTicks is a TickSource driven by the caller, e.g. a replay of recorded
// frames or a test. Sending on an unbuffered ManualTicks returns once the
// runner has picked the tick up.
type ManualTicks chan time.Time

func (m ManualTicks) C() <-chan time.Time {
	return m
}

func (m ManualTicks) Stop() {}
