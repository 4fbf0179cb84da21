package signal

import "sync/atomic"

// IDGenerator produces transaction IDs.
type IDGenerator interface {
	Generate() uint64
}

// NewIDGenerator returns a sequential generator whose first ID is 1. Each
// simulated system owns one, so runs with the same inputs number their
// transactions the same way.
func NewIDGenerator() IDGenerator {
	return &sequentialIDGenerator{}
}

type sequentialIDGenerator struct {
	next uint64
}

func (g *sequentialIDGenerator) Generate() uint64 {
	return atomic.AddUint64(&g.next, 1)
}
