// Package dram models a DRAM channel: a command scheduler, its ranks and a
// near-memory logic layer that share one command bus and one data bus.
package dram

import (
	"log"

	"github.com/sarchlab/bobsim/config"
	"github.com/sarchlab/bobsim/dram/internal/ctrl"
	"github.com/sarchlab/bobsim/dram/internal/logiclayer"
	"github.com/sarchlab/bobsim/dram/internal/org"
	"github.com/sarchlab/bobsim/hooking"
	"github.com/sarchlab/bobsim/signal"
)

// Report lists what happened in a channel cycle that the owner of the channel
// needs to know. Packets that belong to logic operations are not reported.
type Report struct {
	// Activated is the activate issued in this cycle. Its QueueWaitTime says
	// how long it waited in the command queue.
	Activated *signal.BusPacket

	// WriteIssued is the write command issued in this cycle.
	WriteIssued *signal.BusPacket

	// ReadReturned is the read data that entered the return queue.
	ReadReturned *signal.BusPacket

	// WriteCommitted is the write data that reached its rank.
	WriteCommitted *signal.BusPacket
}

// A Channel is one DRAM channel. It is ticked in the DRAM clock domain.
type Channel struct {
	hooking.HookableBase

	id  int
	cfg *config.Config
	ids signal.IDGenerator

	ctrl  *ctrl.Controller
	ranks []*org.Rank
	logic *logiclayer.LogicLayer

	cmdBus        *signal.BusPacket
	cmdCountdown  int
	dataBus       *signal.BusPacket
	dataCountdown int

	returnQueue          []*signal.BusPacket
	pendingLogicResponse *signal.Transaction

	cycle          uint64
	busIdleCycles  uint64
	readsReturned  uint64
	returnQueueMax int
	responseStalls uint64
}

// ID returns the index of the channel.
func (c *Channel) ID() int {
	return c.id
}

// Cycle returns the number of cycles the channel has been ticked.
func (c *Channel) Cycle() uint64 {
	return c.cycle
}

// CanAccept tells if the command queue can take another read or write.
func (c *Channel) CanAccept() bool {
	return c.ctrl.CanAccept()
}

// WaitingActivates returns the number of transactions in the command queue
// whose activate has not been issued.
func (c *Channel) WaitingActivates() int {
	return c.ctrl.WaitingActivates()
}

// AddTransaction takes a transaction from the link. Logic operations go to
// the logic layer and are always accepted. A logic response takes the single
// pending-response slot. Reads and writes go to the scheduler. It returns
// false if the slot or the command queue is full.
func (c *Channel) AddTransaction(t *signal.Transaction) bool {
	switch t.Kind {
	case signal.TransactionLogicOp:
		t.Channel = c.id
		c.logic.Receive(t)

		return true
	case signal.TransactionLogicResponse:
		if c.pendingLogicResponse != nil {
			return false
		}

		c.pendingLogicResponse = t

		return true
	}

	t.Channel = c.id

	return c.ctrl.AddTransaction(t)
}

// ReturnQueue returns the read data waiting to be sent to the host, oldest
// first.
func (c *Channel) ReturnQueue() []*signal.BusPacket {
	return c.returnQueue
}

// PeekReturn returns the oldest read data in the return queue.
func (c *Channel) PeekReturn() *signal.BusPacket {
	if len(c.returnQueue) == 0 {
		return nil
	}

	return c.returnQueue[0]
}

// PopReturn removes the oldest read data from the return queue.
func (c *Channel) PopReturn() *signal.BusPacket {
	if len(c.returnQueue) == 0 {
		log.Panicf("channel %d: pop from an empty return queue", c.id)
	}

	p := c.returnQueue[0]
	c.returnQueue = c.returnQueue[1:]

	return p
}

// PendingLogicResponse returns the logic response waiting to be sent.
func (c *Channel) PendingLogicResponse() *signal.Transaction {
	return c.pendingLogicResponse
}

// TakeLogicResponse removes the pending logic response and returns it.
func (c *Channel) TakeLogicResponse() *signal.Transaction {
	t := c.pendingLogicResponse
	c.pendingLogicResponse = nil

	return t
}

// AgeQueuedActivates adds one cycle to the queue wait time of every activate
// in the command queue.
func (c *Channel) AgeQueuedActivates() {
	c.ctrl.AgeQueuedActivates()
}

// LogicBusy tells if the logic layer is working on an operation.
func (c *Channel) LogicBusy() bool {
	return c.logic.Busy() || c.logic.NumWaiting() > 0
}

// Stats returns a snapshot of the channel counters.
func (c *Channel) Stats() Stats {
	cs := c.ctrl.Stats()

	return Stats{
		Cycles:         c.cycle,
		BusIdleCycles:  c.busIdleCycles,
		ReadsReturned:  c.readsReturned,
		WritesDone:     cs.WritesDone,
		ReturnQueueMax: c.returnQueueMax,
		ResponseStalls: c.responseStalls,
		Controller:     cs,
		Logic:          c.logic.Stats(),
	}
}

// ResetMaxima restarts the observation of the deepest queues.
func (c *Channel) ResetMaxima() {
	c.returnQueueMax = 0
	c.ctrl.ResetActivateQueueMax()
}

// Tick advances the channel by one DRAM cycle.
func (c *Channel) Tick() Report {
	r := Report{}

	if c.dataBus == nil {
		c.busIdleCycles++
	}

	c.advanceCommandBus()
	c.advanceDataBus(&r)
	c.tickLogicLayer()

	issued := c.ctrl.Tick(len(c.returnQueue))
	if issued.Command != nil {
		c.putOnCommandBus(issued, &r)
	}

	if issued.WriteData != nil {
		c.putOnDataBus(issued.WriteData)
	}

	for _, rank := range c.ranks {
		if p := rank.Tick(); p != nil {
			c.invoke(HookPosReadDataReady, p, DataDetail{c.id, c.cycle})
			c.putOnDataBus(p)
		}
	}

	c.cycle++

	return r
}

func (c *Channel) advanceCommandBus() {
	if c.cmdBus == nil {
		return
	}

	c.cmdCountdown--
	if c.cmdCountdown > 0 {
		return
	}

	c.ranks[c.cmdBus.Rank].Receive(c.cmdBus)
	c.cmdBus = nil
}

func (c *Channel) advanceDataBus(r *Report) {
	if c.dataBus == nil {
		return
	}

	c.dataCountdown--
	if c.dataCountdown > 0 {
		return
	}

	p := c.dataBus
	c.dataBus = nil

	switch p.Kind {
	case signal.PacketReadData:
		c.ctrl.ReadReturned()
		c.readReturned(p, r)
	case signal.PacketWriteData:
		c.ranks[p.Rank].Receive(p)
		c.ctrl.WriteCommitted()

		if !p.FromLogicOp {
			r.WriteCommitted = p
		}
	default:
		log.Panicf("channel %d: %s on the data bus", c.id, p)
	}
}

func (c *Channel) readReturned(p *signal.BusPacket, r *Report) {
	if p.FromLogicOp {
		data := signal.NewTransaction(c.ids, signal.TransactionReturnData,
			c.cfg.TransactionSize, p.Addr)
		data.Channel = c.id
		data.FromLogicOp = true
		c.logic.Receive(data)

		return
	}

	c.returnQueue = append(c.returnQueue, p)
	if len(c.returnQueue) > c.returnQueueMax {
		c.returnQueueMax = len(c.returnQueue)
	}

	c.readsReturned++
	r.ReadReturned = p

	c.invoke(HookPosReadReturned, p, DataDetail{c.id, c.cycle})
}

func (c *Channel) tickLogicLayer() {
	if t := c.logic.PeekOutgoing(); t != nil {
		if c.AddTransaction(t) {
			c.logic.PopOutgoing()
		} else if t.Kind == signal.TransactionLogicResponse {
			c.responseStalls++
		}
	}

	c.logic.Tick()
}

func (c *Channel) putOnCommandBus(issued ctrl.Issued, r *Report) {
	p := issued.Command

	if c.cmdBus != nil {
		log.Panicf("channel %d: command bus collision, %s is still on the bus "+
			"when %s arrives", c.id, c.cmdBus, p)
	}

	c.cmdBus = p
	c.cmdCountdown = c.cfg.Device.TCMDS

	switch p.Kind {
	case signal.PacketRefresh:
		c.invoke(HookPosRefresh, p, CommandDetail{Channel: c.id, Cycle: c.cycle})
		return
	case signal.PacketActivate:
		if !p.FromLogicOp {
			r.Activated = p
		}
	case signal.PacketWriteP:
		if !p.FromLogicOp {
			r.WriteIssued = p
		}
	}

	c.invoke(HookPosCommandIssued, p, CommandDetail{
		Channel:      c.id,
		Cycle:        c.cycle,
		NextActivate: issued.Bank.NextActivate,
		NextRead:     issued.Bank.NextRead,
		NextWrite:    issued.Bank.NextWrite,
	})
}

func (c *Channel) putOnDataBus(p *signal.BusPacket) {
	if c.dataBus != nil {
		log.Panicf("channel %d: data bus collision at cycle %d, %s has %d "+
			"cycles left when %s arrives",
			c.id, c.cycle, c.dataBus, c.dataCountdown, p)
	}

	c.dataBus = p
	c.dataCountdown = p.BurstLength

	c.invoke(HookPosDataBusStart, p, DataDetail{c.id, c.cycle})
}

func (c *Channel) invoke(pos *hooking.HookPos, item, detail interface{}) {
	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    pos,
		Item:   item,
		Detail: detail,
	})
}
