package cae

import "sync/atomic"

// sequence is a monotonic counter safe for concurrent use.
//
// Graph instance ids come from the package-level graphIDs sequence. Zero is
// never handed out, which makes the zero NodeID foreign to every Graph.
type sequence struct {
	n atomic.Uint64
}

// Next returns the next value. Every call returns a distinct, increasing
// value.
func (s *sequence) Next() uint64 {
	return s.n.Add(1)
}

var graphIDs sequence
