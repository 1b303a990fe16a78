package matching

import "sync/atomic"

// IDGenerator hands out unique, monotonically increasing order ids. Counter
// increment alone guarantees uniqueness; no timestamp component is needed.
type IDGenerator struct {
	counter atomic.Uint64
}

func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// Next returns the next id, starting at 1.
func (g *IDGenerator) Next() uint64 {
	return g.counter.Add(1)
}
