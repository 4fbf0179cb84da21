// Package logiclayer implements the near-memory engine that expands logic
// operations into ordinary reads and writes.
package logiclayer

import (
	"log"

	"github.com/sarchlab/bobsim/config"
	"github.com/sarchlab/bobsim/signal"
)

// Stats counts the work done by a logic layer.
type Stats struct {
	Operations uint64
	Responses  uint64
	SubReads   uint64
	SubWrites  uint64
	Returns    uint64
}

// A LogicLayer works on one logic operation at a time. The operations that
// arrive while it is busy wait in FIFO order.
type LogicLayer struct {
	channelID int
	cfg       *config.Config
	ids       signal.IDGenerator

	waiting  []*signal.Transaction
	returns  []*signal.Transaction
	outgoing []*signal.Transaction

	current *signal.Transaction
	done    uint64

	stats Stats
}

// New creates the logic layer of a channel.
func New(
	channelID int,
	cfg *config.Config,
	ids signal.IDGenerator,
) *LogicLayer {
	return &LogicLayer{
		channelID: channelID,
		cfg:       cfg,
		ids:       ids,
	}
}

// Busy tells if an operation is in progress.
func (l *LogicLayer) Busy() bool {
	return l.current != nil
}

// Current returns the operation in progress.
func (l *LogicLayer) Current() *signal.Transaction {
	return l.current
}

// NumWaiting returns the number of operations that have not started.
func (l *LogicLayer) NumWaiting() int {
	return len(l.waiting)
}

// Stats returns the counters of the layer.
func (l *LogicLayer) Stats() Stats {
	return l.stats
}

// Receive takes a logic operation or the data returned for one of the reads
// the layer generated.
func (l *LogicLayer) Receive(t *signal.Transaction) {
	switch t.Kind {
	case signal.TransactionLogicOp:
		l.waiting = append(l.waiting, t)
	case signal.TransactionReturnData:
		l.returns = append(l.returns, t)
	default:
		log.Panicf("logic layer %d cannot receive %s", l.channelID, t)
	}
}

// PeekOutgoing returns the next transaction the layer wants to hand to the
// channel.
func (l *LogicLayer) PeekOutgoing() *signal.Transaction {
	if len(l.outgoing) == 0 {
		return nil
	}

	return l.outgoing[0]
}

// PopOutgoing removes the head of the outgoing queue after the channel has
// accepted it. Handing over the response finishes the current operation.
func (l *LogicLayer) PopOutgoing() {
	if len(l.outgoing) == 0 {
		log.Panicf("logic layer %d: pop from an empty queue", l.channelID)
	}

	head := l.outgoing[0]
	l.outgoing = l.outgoing[1:]

	if head.Kind == signal.TransactionLogicResponse {
		l.current = nil
		l.stats.Responses++
	}
}

// Tick starts the next operation if idle and handles at most one returned
// read.
func (l *LogicLayer) Tick() {
	if l.current == nil && len(l.waiting) > 0 {
		l.start(l.waiting[0])
		l.waiting = l.waiting[1:]
	}

	if len(l.returns) > 0 {
		l.handleReturn(l.returns[0])
		l.returns = l.returns[1:]
	}
}

func (l *LogicLayer) start(t *signal.Transaction) {
	if t.Op == nil {
		log.Panicf("logic layer %d: %s has no operation", l.channelID, t)
	}

	l.current = t
	l.done = 0
	l.stats.Operations++

	op := t.Op
	stride := l.cfg.LogicStride()

	switch op.Kind {
	case signal.PageFill:
		l.mustHaveArgs(2)

		for i := uint64(0); i < op.Args[0]; i++ {
			l.emit(signal.TransactionWrite, t.Addr+i*stride)
		}

		l.respond()
	case signal.MemCopy:
		l.mustHaveArgs(2)

		for i := uint64(0); i < op.Args[1]; i++ {
			l.emit(signal.TransactionRead, t.Addr+i*stride)
		}

		if op.Args[1] == 0 {
			l.respond()
		}
	case signal.PageTableWalk:
		for _, addr := range op.Args {
			l.emit(signal.TransactionRead, addr)
		}

		if len(op.Args) == 0 {
			l.respond()
		}
	default:
		log.Panicf("logic layer %d: unknown operation %s",
			l.channelID, op.Kind)
	}
}

func (l *LogicLayer) mustHaveArgs(n int) {
	if len(l.current.Op.Args) != n {
		log.Panicf("logic layer %d: %s takes %d arguments, got %d",
			l.channelID, l.current.Op.Kind, n, len(l.current.Op.Args))
	}
}

func (l *LogicLayer) emit(kind signal.TransactionKind, addr uint64) {
	t := signal.NewTransaction(l.ids, kind, l.cfg.TransactionSize, addr)
	t.FromLogicOp = true
	t.Channel = l.channelID
	t.Port = l.current.Port
	t.CoreID = l.current.CoreID

	if kind == signal.TransactionRead {
		l.stats.SubReads++
	} else {
		l.stats.SubWrites++
	}

	l.outgoing = append(l.outgoing, t)
}

// respond queues the operation itself, relabeled as the response, behind
// everything it generated.
func (l *LogicLayer) respond() {
	l.current.Kind = signal.TransactionLogicResponse
	l.outgoing = append(l.outgoing, l.current)
}

func (l *LogicLayer) handleReturn(data *signal.Transaction) {
	if l.current == nil {
		log.Panicf("logic layer %d: data %s without an operation",
			l.channelID, data)
	}

	l.stats.Returns++
	op := l.current.Op

	switch op.Kind {
	case signal.MemCopy:
		l.emit(signal.TransactionWrite, data.Addr-l.current.Addr+op.Args[0])

		l.done++
		if l.done == op.Args[1] {
			l.respond()
		}
	case signal.PageTableWalk:
		l.done++
		if l.done == uint64(len(op.Args)) {
			l.respond()
		}
	default:
		log.Panicf("logic layer %d: data %s for %s, which reads nothing",
			l.channelID, data, op.Kind)
	}
}
