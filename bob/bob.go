// Package bob models the buffer-on-board memory controller: the host ports,
// the serial link buses and the DRAM channels behind them.
package bob

import (
	"log"

	"github.com/sarchlab/bobsim/addressmapping"
	"github.com/sarchlab/bobsim/config"
	"github.com/sarchlab/bobsim/dram"
	"github.com/sarchlab/bobsim/hooking"
	"github.com/sarchlab/bobsim/signal"
)

// HookPosTransactionDone marks a transaction delivered to the host. The item
// is the *signal.Transaction.
var HookPosTransactionDone = &hooking.HookPos{Name: "Transaction Done"}

// Handler receives the completion notifications of a Comp. Notifications are
// delivered at the end of the Tick in which the event happened.
type Handler interface {
	// ReadComplete is called when the data of a read reaches the host.
	ReadComplete(port int, addr uint64)

	// WriteIssued is called when a write command is issued to the DRAM.
	WriteIssued(port int, addr uint64)

	// WriteCommitted is called when the data of a write reaches the DRAM.
	WriteCommitted(port int, addr uint64)

	// LogicComplete is called when the response of a logic operation reaches
	// the host.
	LogicComplete(channel int, addr uint64)
}

// EpochListener is notified with the statistics of every finished epoch.
type EpochListener interface {
	EpochEnded(s Stats)
}

// Comp is the BOB controller. It is driven one CPU cycle at a time by Tick
// and accepts host requests through Submit.
type Comp struct {
	hooking.HookableBase

	name      string
	cfg       *config.Config
	mapper    *addressmapping.Mapper
	ids       signal.IDGenerator
	handler   Handler
	listeners []EpochListener

	channels []*dram.Channel
	ports    []*port
	links    []*link

	pendingReads   map[uint64]*signal.Transaction
	priorityPort   int
	priorityLink   []int
	portRoundRobin int

	clockCPU  uint64
	clockDRAM uint64
	clockAcc  uint64

	counters     counters
	zero         counters
	lastEpoch    counters
	epoch        uint64
	latency      *latencyRecorder
	epochLatency *latencyRecorder

	notifications []func(h Handler)
}

// Name returns the name of the controller.
func (c *Comp) Name() string {
	return c.name
}

// Config returns the configuration the controller was built with.
func (c *Comp) Config() *config.Config {
	return c.cfg
}

// Cycle returns the number of CPU cycles simulated so far.
func (c *Comp) Cycle() uint64 {
	return c.counters.cycle
}

// NumPorts returns the number of host ports.
func (c *Comp) NumPorts() int {
	return len(c.ports)
}

// Port returns the buffer state of a port.
func (c *Comp) Port(i int) PortState {
	return c.ports[i].state()
}

// NumChannels returns the number of DRAM channels.
func (c *Comp) NumChannels() int {
	return len(c.channels)
}

// Channel returns a DRAM channel.
func (c *Comp) Channel(i int) *dram.Channel {
	return c.channels[i]
}

// Outstanding returns the number of accepted transactions that have not
// finished. A read finishes when its data reaches the host, a write when its
// data reaches the DRAM, and a logic operation when its response reaches the
// host.
func (c *Comp) Outstanding() uint64 {
	return c.counters.admission.Accepted -
		c.counters.returnedReads -
		c.counters.committedWrites -
		c.counters.logicResponses
}

// Submit offers a request to the controller. A non-nil op makes it a logic
// operation. It returns false if no port can take the request in this cycle.
func (c *Comp) Submit(
	addr uint64,
	isWrite bool,
	coreID uint32,
	op *signal.LogicOp,
) bool {
	p := c.findOpenPort(coreID)
	if p == nil {
		return false
	}

	kind := signal.TransactionRead

	switch {
	case op != nil:
		kind = signal.TransactionLogicOp
	case isWrite:
		kind = signal.TransactionWrite
	}

	t := signal.NewTransaction(c.ids, kind, c.cfg.TransactionSize, addr)
	t.CoreID = coreID
	t.Op = op
	t.Port = p.id
	t.Latency.FullStart = c.counters.cycle
	t.Latency.ReqPort = c.counters.cycle

	p.startRequest(t, c.portCycles(t))
	c.counters.admission.Accepted++

	return true
}

func (c *Comp) findOpenPort(coreID uint32) *port {
	candidates := c.portCandidates(coreID)

	for _, p := range candidates {
		if p.available() {
			if c.cfg.PortHeuristic == config.RoundRobin {
				c.portRoundRobin = (p.id + 1) % len(c.ports)
			}

			return p
		}
	}

	c.counters.admission.NoPortAvailable++

	for _, p := range candidates {
		if p.full() {
			c.counters.admission.PortFull++
			break
		}
	}

	return nil
}

// portCandidates lists the ports a request may enter through, in the order
// they are tried.
func (c *Comp) portCandidates(coreID uint32) []*port {
	n := len(c.ports)

	switch c.cfg.PortHeuristic {
	case config.PerCore:
		return []*port{c.ports[int(coreID%uint32(n))]}
	case config.RoundRobin:
		ordered := make([]*port, 0, n)
		for i := 0; i < n; i++ {
			ordered = append(ordered, c.ports[(c.portRoundRobin+i)%n])
		}

		return ordered
	}

	return c.ports
}

// portCycles is the number of cycles a transaction occupies a port. Reads
// and logic responses carry no data.
func (c *Comp) portCycles(t *signal.Transaction) int {
	switch t.Kind {
	case signal.TransactionRead, signal.TransactionLogicResponse:
		return 1
	}

	return max(1, c.cfg.TransactionSize/c.cfg.PortWidth)
}

func (c *Comp) requestTransit(t *signal.Transaction) int {
	var cycles int

	switch t.Kind {
	case signal.TransactionRead:
		cycles = c.cfg.RequestTransitCycles(c.cfg.ReadRequestBytes())
	case signal.TransactionWrite:
		cycles = c.cfg.RequestTransitCycles(c.cfg.WriteRequestBytes())
	case signal.TransactionLogicOp:
		cycles = c.cfg.RequestTransitCycles(c.cfg.LogicRequestBytes())
	default:
		log.Panicf("%s: %s cannot go on a request link", c.name, t)
	}

	if cycles <= 0 {
		log.Panicf("%s: %s takes %d cycles on the link", c.name, t, cycles)
	}

	return cycles
}

// Tick advances the controller by one CPU cycle.
func (c *Comp) Tick() {
	c.account()
	c.countDownPorts()
	c.drainRequestLinks()
	c.drainResponseLinks()
	c.sendRequests()
	c.deliverResponses()
	c.acceptRequests()
	c.collectResponses()
	c.tickChannels()
	c.tickHostPorts()

	c.counters.cycle++
	if c.counters.cycle%c.cfg.EpochLength == 0 {
		c.endEpoch()
	}

	c.notify()
}

func (c *Comp) account() {
	for _, ch := range c.channels {
		for _, p := range ch.ReturnQueue() {
			if t, ok := c.pendingReads[p.TransactionID]; ok {
				t.Latency.InRRQ++
			}
		}

		ch.AgeQueuedActivates()
	}

	for _, l := range c.links {
		if l.reqInFlight == nil {
			l.counters.RequestIdle++
		}

		if l.rspInFlight == nil {
			l.counters.ResponseIdle++
		}
	}

	for _, p := range c.ports {
		p.counters.InputOccupancy += uint64(len(p.input))
		p.counters.OutputOccupancy += uint64(len(p.output))
	}
}

func (c *Comp) countDownPorts() {
	for _, p := range c.ports {
		if p.inputBusy > 0 {
			p.inputBusy--
		}

		if p.outputBusy > 0 {
			p.outputBusy--
		}
	}
}

// drainRequestLinks hands the transactions that finished crossing a request
// link to their channels. A transaction the channel refuses stays on the link
// and is offered again in the next cycle.
func (c *Comp) drainRequestLinks() {
	for _, l := range c.links {
		t := l.reqInFlight
		if t == nil {
			continue
		}

		if l.reqCountdown > 0 {
			l.reqCountdown--
		}

		if l.reqCountdown > 0 {
			continue
		}

		if !c.channels[t.Channel].AddTransaction(t) {
			c.counters.channelCmdFull[t.Channel]++
			c.counters.admission.CmdQueueFull++

			continue
		}

		t.Latency.ReqLink = c.counters.cycle - t.Latency.ReqLink
		l.reqInFlight = nil
	}
}

func (c *Comp) drainResponseLinks() {
	for _, l := range c.links {
		t := l.rspInFlight
		if t == nil {
			continue
		}

		l.rspCountdown--
		if l.rspCountdown > 0 {
			continue
		}

		if l.rspSerDes != nil {
			log.Panicf("%s: link %d: %s arrived at an occupied SerDes",
				c.name, l.id, t)
		}

		t.Latency.ChannelTotal = c.counters.cycle - t.Latency.ChannelStart

		if t.Kind == signal.TransactionReturnData {
			head := c.channels[t.Channel].PopReturn()
			if head.TransactionID != t.ID {
				log.Panicf("%s: link %d: %s arrived but %s heads the "+
					"return queue", c.name, l.id, t, head)
			}
		}

		l.rspSerDes = t
		l.rspInFlight = nil
	}
}

func (c *Comp) sendRequests() {
	for _, l := range c.links {
		if l.reqSerDes == nil || l.reqInFlight != nil {
			continue
		}

		t := l.reqSerDes
		l.reqSerDes = nil
		l.reqInFlight = t
		l.reqCountdown = c.requestTransit(t)
		t.Latency.ChannelStart = c.counters.cycle
	}
}

// deliverResponses lets each idle port take a response from the link it
// polls in this cycle. Every port polls the links in turn.
func (c *Comp) deliverResponses() {
	for _, p := range c.ports {
		if p.outputBusy > 0 {
			continue
		}

		l := c.links[c.priorityLink[p.id]]
		c.priorityLink[p.id] = (c.priorityLink[p.id] + 1) % len(c.links)

		t := l.rspSerDes
		if t == nil || t.Port != p.id || len(p.output) >= p.depth {
			continue
		}

		l.rspSerDes = nil
		p.output = append(p.output, t)
		p.outputBusy = c.portCycles(t)

		t.Latency.RspLink = c.counters.cycle - t.Latency.RspLink
		t.Latency.RspPort = c.counters.cycle
	}
}

// acceptRequests moves at most one request from each idle port into the
// request SerDes of its link. The port that goes first rotates every cycle.
func (c *Comp) acceptRequests() {
	n := len(c.ports)

	for i := 0; i < n; i++ {
		p := c.ports[(c.priorityPort+i)%n]
		if p.inputBusy > 0 {
			continue
		}

		c.acceptFrom(p)
	}

	c.priorityPort = (c.priorityPort + 1) % n
}

func (c *Comp) acceptFrom(p *port) {
	for i, t := range p.input {
		ch := c.mapper.ChannelID(t.Addr)
		l := c.links[ch/c.cfg.ChannelsPerLinkBus]

		if !l.requestFree() {
			continue
		}

		if t.Kind != signal.TransactionLogicOp && !c.channels[ch].CanAccept() {
			c.counters.channelCmdFull[ch]++
			c.counters.admission.CmdQueueFull++

			continue
		}

		l.reqSerDes = t
		t.Channel = ch
		t.Latency.ReqLink = c.counters.cycle
		t.Latency.ReqPort = c.counters.cycle - t.Latency.ReqPort

		c.counters.channelRequests[ch]++

		switch t.Kind {
		case signal.TransactionRead:
			c.counters.readsAtChannel++
			c.pendingReads[t.ID] = t
		case signal.TransactionWrite:
			c.counters.writesAtChannel++
		case signal.TransactionLogicOp:
			c.counters.logicOps++
		}

		p.inputBusy = c.portCycles(t)
		p.removeInput(i)

		return
	}
}

// collectResponses starts one response on every free response link. The
// channels of a link take turns, and a pending logic response goes before
// read data.
func (c *Comp) collectResponses() {
	cpl := c.cfg.ChannelsPerLinkBus

	for _, l := range c.links {
		if !l.responseFree() {
			continue
		}

		for z := 0; z < cpl; z++ {
			ch := c.channels[l.id*cpl+l.rspRoundRobin]
			l.rspRoundRobin = (l.rspRoundRobin + 1) % cpl

			t, cycles := c.takeResponse(ch)
			if t == nil {
				continue
			}

			if cycles <= 0 {
				log.Panicf("%s: %s takes %d cycles on the link",
					c.name, t, cycles)
			}

			t.Latency.RspLink = c.counters.cycle
			l.rspInFlight = t
			l.rspCountdown = cycles

			break
		}
	}
}

func (c *Comp) takeResponse(ch *dram.Channel) (*signal.Transaction, int) {
	if ch.PendingLogicResponse() != nil {
		return ch.TakeLogicResponse(),
			c.cfg.ResponseTransitCycles(c.cfg.LogicResponseBytes())
	}

	p := ch.PeekReturn()
	if p == nil {
		return nil, 0
	}

	t, ok := c.pendingReads[p.TransactionID]
	if !ok {
		log.Panicf("%s: channel %d returned %s, which is not pending",
			c.name, ch.ID(), p)
	}

	delete(c.pendingReads, p.TransactionID)
	t.Kind = signal.TransactionReturnData

	return t, c.cfg.ResponseTransitCycles(c.cfg.ReadResponseBytes())
}

// tickChannels ticks the channels as many times as DRAM cycles fit into the
// CPU cycles simulated so far.
func (c *Comp) tickChannels() {
	c.clockAcc += c.clockCPU

	for c.clockAcc >= c.clockDRAM {
		c.clockAcc -= c.clockDRAM

		for _, ch := range c.channels {
			c.handleReport(ch.Tick())
		}
	}
}

func (c *Comp) handleReport(r dram.Report) {
	now := c.counters.cycle

	if p := r.Activated; p != nil {
		if t, ok := c.pendingReads[p.TransactionID]; ok {
			t.Latency.DRAMStart = now
			t.Latency.WorkQueue = p.QueueWaitTime
		}
	}

	if p := r.WriteIssued; p != nil {
		c.counters.issuedWrites++
		c.enqueue(func(h Handler) { h.WriteIssued(p.Port, p.Addr) })
	}

	if p := r.ReadReturned; p != nil {
		if t, ok := c.pendingReads[p.TransactionID]; ok {
			t.Latency.DRAMTotal = now - t.Latency.DRAMStart
		}
	}

	if p := r.WriteCommitted; p != nil {
		c.counters.committedWrites++
		c.enqueue(func(h Handler) { h.WriteCommitted(p.Port, p.Addr) })
	}
}

func (c *Comp) tickHostPorts() {
	for _, p := range c.ports {
		if t := p.advanceResponse(); t != nil {
			c.complete(p, t)
		}

		p.advanceRequest()
	}

	for _, p := range c.ports {
		p.startResponse(c.portCycles)
	}
}

func (c *Comp) complete(p *port, t *signal.Transaction) {
	now := c.counters.cycle
	t.Latency.RspPort = now - t.Latency.RspPort
	p.counters.Returns++

	switch t.Kind {
	case signal.TransactionReturnData:
		c.counters.returnedReads++

		full := now - t.Latency.FullStart
		c.latency.record(t, full)
		c.epochLatency.record(t, full)

		c.enqueue(func(h Handler) { h.ReadComplete(t.Port, t.Addr) })
	case signal.TransactionLogicResponse:
		c.counters.logicResponses++
		c.enqueue(func(h Handler) { h.LogicComplete(t.Channel, t.Addr) })
	default:
		log.Panicf("%s: port %d delivered %s", c.name, p.id, t)
	}

	if c.NumHooks() > 0 {
		c.InvokeHook(hooking.HookCtx{
			Domain: c,
			Pos:    HookPosTransactionDone,
			Item:   t,
		})
	}
}

func (c *Comp) endEpoch() {
	cur := c.snapshot()

	s := c.buildStats(cur, c.lastEpoch, c.epochLatency)
	s.Epoch = c.epoch

	for _, l := range c.listeners {
		l.EpochEnded(s)
	}

	c.epoch++
	c.lastEpoch = cur
	c.epochLatency = newLatencyRecorder(len(c.channels))

	for _, ch := range c.channels {
		ch.ResetMaxima()
	}
}

func (c *Comp) enqueue(f func(h Handler)) {
	if c.handler == nil {
		return
	}

	c.notifications = append(c.notifications, f)
}

func (c *Comp) notify() {
	pending := c.notifications
	c.notifications = nil

	for _, f := range pending {
		f(c.handler)
	}
}

// Stats returns the statistics since the controller was built. Queue maxima
// cover the current epoch only.
func (c *Comp) Stats() Stats {
	s := c.buildStats(c.snapshot(), c.zero, c.latency)
	s.Epoch = c.epoch

	return s
}

func (c *Comp) snapshot() counters {
	s := c.counters.clone()

	s.channels = make([]dram.Stats, len(c.channels))
	s.admission.ReturnQueueFull = 0
	s.admission.LogicResponseSlotBusy = 0

	for i, ch := range c.channels {
		cs := ch.Stats()
		s.channels[i] = cs
		s.admission.ReturnQueueFull += cs.Controller.ReturnQueueFull
		s.admission.LogicResponseSlotBusy += cs.ResponseStalls
	}

	s.ports = make([]portCounters, len(c.ports))
	for i, p := range c.ports {
		s.ports[i] = p.counters
	}

	s.links = make([]linkCounters, len(c.links))
	for i, l := range c.links {
		s.links[i] = l.counters
	}

	return s
}
