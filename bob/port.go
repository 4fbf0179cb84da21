package bob

import (
	"log"

	"github.com/sarchlab/bobsim/config"
	"github.com/sarchlab/bobsim/signal"
)

// A port connects the host to the controller. The host side moves one
// transaction at a time in each direction. The controller side buffers a
// bounded number of transactions in each direction.
type port struct {
	id    int
	depth int

	input      []*signal.Transaction
	output     []*signal.Transaction
	inputBusy  int
	outputBusy int

	request       *signal.Transaction
	requestHeader int
	requestBusy   int

	response       *signal.Transaction
	responseHeader int
	responseBusy   int

	counters portCounters
}

type portCounters struct {
	InputOccupancy  uint64
	OutputOccupancy uint64
	RequestIdle     uint64
	ResponseIdle    uint64
	Requests        uint64
	Reads           uint64
	Writes          uint64
	LogicOps        uint64
	Returns         uint64
}

// PortState is a snapshot of the buffers of a port.
type PortState struct {
	InputLen     int
	OutputLen    int
	RequestBusy  bool
	ResponseBusy bool
}

func newPort(id int, cfg *config.Config) *port {
	return &port{id: id, depth: cfg.PortQueueDepth}
}

func (p *port) state() PortState {
	return PortState{
		InputLen:     len(p.input),
		OutputLen:    len(p.output),
		RequestBusy:  p.requestBusy > 0,
		ResponseBusy: p.responseBusy > 0,
	}
}

// available tells if the host can start sending a new transaction.
func (p *port) available() bool {
	return p.requestBusy == 0 && len(p.input) < p.depth
}

func (p *port) full() bool {
	return len(p.input) >= p.depth
}

// startRequest begins moving a transaction from the host. The header arrives
// after one cycle and the port stays busy until the body has moved.
func (p *port) startRequest(t *signal.Transaction, busy int) {
	p.request = t
	p.requestHeader = 1
	p.requestBusy = busy
	p.counters.Requests++

	switch t.Kind {
	case signal.TransactionRead:
		p.counters.Reads++
	case signal.TransactionWrite:
		p.counters.Writes++
	case signal.TransactionLogicOp:
		p.counters.LogicOps++
	}
}

// advanceRequest counts down the host-side request transfer.
func (p *port) advanceRequest() {
	if p.request == nil {
		p.counters.RequestIdle++
	}

	if p.requestHeader > 0 {
		p.requestHeader--
		if p.requestHeader == 0 {
			if p.request == nil {
				log.Panicf("port %d: header arrived without a request", p.id)
			}

			p.input = append(p.input, p.request)
		}
	}

	if p.requestBusy > 0 {
		p.requestBusy--
		if p.requestBusy == 0 {
			p.request = nil
		}
	}
}

// advanceResponse counts down the host-side response transfer and returns the
// transaction that finished in this cycle.
func (p *port) advanceResponse() *signal.Transaction {
	if p.response == nil {
		p.counters.ResponseIdle++
	}

	if p.responseHeader > 0 {
		p.responseHeader--
	}

	if p.responseBusy == 0 {
		return nil
	}

	p.responseBusy--
	if p.responseBusy > 0 {
		return nil
	}

	done := p.response
	p.response = nil
	p.output = p.output[1:]

	return done
}

// startResponse begins moving the oldest output to the host.
func (p *port) startResponse(busy func(*signal.Transaction) int) {
	if len(p.output) == 0 || p.responseBusy > 0 {
		return
	}

	p.response = p.output[0]
	p.responseHeader = 1
	p.responseBusy = busy(p.response)
}

func (p *port) removeInput(i int) {
	p.input = append(p.input[:i], p.input[i+1:]...)
}
