package feed

import (
	"errors"
	"sync/atomic"
)

// ErrSuperseded marks a response that arrived after a newer request for
// the same consumer began. Callers discard it instead of applying it.
var ErrSuperseded = errors.New("request superseded by a newer one")

// RequestTracker tags requests with a generation number so a page or
// search response that was overtaken by a filter change can be dropped
// on arrival. One tracker per consumer stream.
type RequestTracker struct {
	gen atomic.Uint64
}

// Begin starts a new request generation, superseding all earlier ones
func (t *RequestTracker) Begin() uint64 {
	return t.gen.Add(1)
}

// Current reports whether gen is still the newest generation
func (t *RequestTracker) Current(gen uint64) bool {
	return t.gen.Load() == gen
}
