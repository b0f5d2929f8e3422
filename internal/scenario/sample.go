package scenario

import "lockcheck/internal/report"

// SampleStatus classifies the outcome of one DOM-state read. The distinction
// between absent and failed is the whole contract: an early read that misses
// its bound is informative absence, a final read that misses its bound means
// the behavior under test did not hold.
type SampleStatus int

const (
	// SampleOK means the read completed within its bound.
	SampleOK SampleStatus = iota
	// SampleAbsent means a soft timing miss: the read was skipped or timed
	// out and the result is recorded as absence of data.
	SampleAbsent
	// SampleFailed means a load-bearing read did not complete; fatal.
	SampleFailed
)

// bodySample is the outcome of a body-state read.
type bodySample struct {
	status SampleStatus
	state  report.BodyState
	err    error
}

// overlaySample is the outcome of an overlay-state read.
type overlaySample struct {
	status SampleStatus
	state  report.OverlayState
	err    error
}
