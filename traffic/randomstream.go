// Package traffic provides synthetic hosts that drive a BOB controller.
package traffic

import (
	"math"
	"math/rand"

	"github.com/sarchlab/bobsim/signal"
)

// A Controller accepts requests from the host.
type Controller interface {
	Submit(addr uint64, isWrite bool, coreID uint32, op *signal.LogicOp) bool
}

type request struct {
	addr    uint64
	isWrite bool
}

// portStream is the traffic of one port. It sends a burst of requests, then
// stays idle long enough to keep the port at the target utilization.
type portStream struct {
	id      int
	rng     *rand.Rand
	pending []request
	wait    int
}

// StreamStats counts what a RandomStream has generated.
type StreamStats struct {
	Generated uint64
	Reads     uint64
	Writes    uint64
	Issued    uint64
	Rejected  uint64
	Bursts    uint64
}

// RandomStream issues random reads and writes on every port of a controller.
type RandomStream struct {
	ctrl Controller

	readRatio   float64
	utilization float64
	addrMask    uint64
	readCycles  int
	writeCycles int

	ports   []*portStream
	stopped bool
	stats   StreamStats
}

// Tick advances the stream by one CPU cycle. Each port offers at most one
// request to the controller. A rejected request is offered again in the next
// cycle.
func (s *RandomStream) Tick() {
	for _, p := range s.ports {
		s.tickPort(p)
	}
}

func (s *RandomStream) tickPort(p *portStream) {
	if len(p.pending) > 0 {
		r := p.pending[0]
		if !s.ctrl.Submit(r.addr, r.isWrite, uint32(p.id), nil) {
			s.stats.Rejected++
			return
		}

		p.pending = p.pending[1:]
		s.stats.Issued++

		return
	}

	if s.stopped {
		return
	}

	if p.wait > 0 {
		p.wait--
	}

	if p.wait == 0 {
		s.fill(p)
	}
}

// fill queues a burst of 2 to 6 requests and sets the idle time that
// follows it.
func (s *RandomStream) fill(p *portStream) {
	count := p.rng.Intn(5) + 2
	use := 0

	for i := 0; i < count; i++ {
		r := request{
			addr:    p.rng.Uint64() & s.addrMask,
			isWrite: p.rng.Float64() >= s.readRatio,
		}

		if r.isWrite {
			use += s.writeCycles
			s.stats.Writes++
		} else {
			use += s.readCycles
			s.stats.Reads++
		}

		p.pending = append(p.pending, r)
	}

	s.stats.Generated += uint64(count)
	s.stats.Bursts++

	p.wait = int(math.Ceil(float64(use)/s.utilization)) - use
}

// Stop prevents new bursts. Requests already generated are still issued.
func (s *RandomStream) Stop() {
	s.stopped = true
}

// Pending returns the number of generated requests not yet accepted by the
// controller.
func (s *RandomStream) Pending() int {
	n := 0
	for _, p := range s.ports {
		n += len(p.pending)
	}

	return n
}

// Stats returns the counts of the stream.
func (s *RandomStream) Stats() StreamStats {
	return s.stats
}
