package testfixtures

import (
	"strconv"
	"sync/atomic"
)

// IDGenerator yields "<prefix>-1", "<prefix>-2", ... so run and attempt ids
// are predictable in assertions.
type IDGenerator struct {
	prefix  string
	counter atomic.Uint64
}

// NewIDGenerator returns a generator for prefix, or "id" when prefix is empty.
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

// Next returns the next identifier.
func (g *IDGenerator) Next() string {
	return g.prefix + "-" + strconv.FormatUint(g.counter.Add(1), 10)
}

// NextFunc exposes Next in the shape BatchOptions.NewID and the booking
// service expect.
func (g *IDGenerator) NextFunc() func() string {
	return g.Next
}

// Issued reports how many identifiers have been handed out.
func (g *IDGenerator) Issued() int {
	return int(g.counter.Load())
}
