package llm

import "sync/atomic"

// StopSignal is the cooperative cancellation flag shared between one
// streaming operation and its canceller. It is monotonic: once set it stays
// set for the lifetime of the operation. Create a fresh signal per stream.
type StopSignal struct {
	flag atomic.Bool
}

// NewStopSignal returns an unset signal.
func NewStopSignal() *StopSignal {
	return &StopSignal{}
}

// Stop sets the signal. Safe to call from any goroutine, any number of times.
func (s *StopSignal) Stop() {
	s.flag.Store(true)
}

// Stopped reports whether the signal has been set.
func (s *StopSignal) Stopped() bool {
	return s.flag.Load()
}
