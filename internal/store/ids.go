package store

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync/atomic"
)

// idGenerator produces short, locally-unique tokens for messages and
// resources: a monotonic counter (collision-free within one process)
// followed by a short random suffix (collision-free across restarts of
// an ephemeral in-memory store that shares no file with its predecessor).
type idGenerator struct {
	counter atomic.Uint64
}

func newIDGenerator() *idGenerator {
	return &idGenerator{}
}

func (g *idGenerator) next(prefix string) string {
	n := g.counter.Add(1)
	return fmt.Sprintf("%s%s%04x", prefix, strconv.FormatUint(n, 36), rand.IntN(0x10000))
}

func (g *idGenerator) nextMessageID() string  { return g.next("m") }
func (g *idGenerator) nextResourceID() string { return g.next("r") }
