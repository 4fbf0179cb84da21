// Package ctrl implements the command scheduler of a DRAM channel.
package ctrl

import (
	"log"

	"github.com/sarchlab/bobsim/addressmapping"
	"github.com/sarchlab/bobsim/config"
	"github.com/sarchlab/bobsim/dram/internal/org"
	"github.com/sarchlab/bobsim/signal"
)

// tFAW allows this many activates in one window.
const activatesPerFAW = 4

// Issued is what the controller puts on the buses in one cycle.
type Issued struct {
	// Command goes onto the command bus.
	Command *signal.BusPacket

	// WriteData goes onto the data bus.
	WriteData *signal.BusPacket

	// Bank is the target bank of Command as it was before the command was
	// applied. It is zero for refreshes.
	Bank org.BankState
}

type pendingWrite struct {
	packet    *signal.BusPacket
	countdown int
}

// A Controller turns transactions into a timing-legal stream of commands for
// the ranks of one channel. It issues at most one command per cycle.
type Controller struct {
	channelID int
	cfg       *config.Config
	timing    *config.DeviceTiming
	mapper    *addressmapping.Mapper

	banks           [][]org.BankState
	queue           []*signal.BusPacket
	refreshCounters []int
	fawWindows      [][]int
	writeBursts     []pendingWrite

	cycle            uint64
	waitingActivates int
	outstandingReads int

	powerMultiplier int64
	transferCycles  int
	refreshCycles   int

	stats Stats
}

// New creates the controller of a channel.
func New(
	channelID int,
	cfg *config.Config,
	mapper *addressmapping.Mapper,
) *Controller {
	numRanks := cfg.Device.NumRanks

	c := &Controller{
		channelID:       channelID,
		cfg:             cfg,
		timing:          &cfg.Device,
		mapper:          mapper,
		banks:           org.MakeBankStates(numRanks, cfg.Device.NumBanks),
		refreshCounters: make([]int, numRanks),
		fawWindows:      make([][]int, numRanks),
		powerMultiplier: int64(cfg.PowerMultiplier()),
		transferCycles:  cfg.TransferCycles(),
		refreshCycles:   cfg.RefreshCycles(),
	}

	c.stats.Energy = make([]RankEnergy, numRanks)

	// Stagger the ranks so that they do not all refresh at the same time.
	for i := range c.refreshCounters {
		c.refreshCounters[i] = (c.refreshCycles / numRanks) * (i + 1)
	}

	return c
}

// Cycle returns the number of cycles the controller has been ticked.
func (c *Controller) Cycle() uint64 {
	return c.cycle
}

// CanAccept tells if the work queue has room for one more transaction.
func (c *Controller) CanAccept() bool {
	return c.waitingActivates < c.cfg.ChannelWorkQueueMax
}

// WaitingActivates returns the number of transactions whose activate has not
// been issued.
func (c *Controller) WaitingActivates() int {
	return c.waitingActivates
}

// OutstandingReads returns the number of issued reads whose data has not
// arrived at the channel yet.
func (c *Controller) OutstandingReads() int {
	return c.outstandingReads
}

// QueueLen returns the number of commands waiting to be issued.
func (c *Controller) QueueLen() int {
	return len(c.queue)
}

// Queue returns the commands waiting to be issued, oldest first unless logic
// traffic was given priority.
func (c *Controller) Queue() []*signal.BusPacket {
	return c.queue
}

// Bank returns a copy of the controller's view of a bank.
func (c *Controller) Bank(rank, bank int) org.BankState {
	return c.banks[rank][bank]
}

// RefreshCounter returns the number of cycles until the rank needs refresh.
func (c *Controller) RefreshCounter(rank int) int {
	return c.refreshCounters[rank]
}

// ActivatesInWindow returns the number of activates in the rank's current
// tFAW window.
func (c *Controller) ActivatesInWindow(rank int) int {
	return len(c.fawWindows[rank])
}

// Stats returns a copy of the running counters.
func (c *Controller) Stats() Stats {
	return c.stats.clone()
}

// ResetActivateQueueMax starts a new observation of the deepest queue.
func (c *Controller) ResetActivateQueueMax() {
	c.stats.ActivateQueueMax = 0
}

// AgeQueuedActivates adds one to the wait time of every activate that is
// still in the queue.
func (c *Controller) AgeQueuedActivates() {
	for _, p := range c.queue {
		if p.Kind == signal.PacketActivate {
			p.QueueWaitTime++
		}
	}
}

// ReadReturned records that the data of an issued read arrived at the
// channel.
func (c *Controller) ReadReturned() {
	c.outstandingReads--
	if c.outstandingReads < 0 {
		log.Panicf("channel %d: more reads returned than issued", c.channelID)
	}

	c.stats.ReadsDone++
}

// AddTransaction decomposes a read or write into an activate and a column
// command. It returns false if the work queue is full.
func (c *Controller) AddTransaction(t *signal.Transaction) bool {
	if !c.CanAccept() {
		return false
	}

	var colKind signal.PacketKind

	switch t.Kind {
	case signal.TransactionRead:
		colKind = signal.PacketReadP
		c.stats.Reads++
	case signal.TransactionWrite:
		colKind = signal.PacketWriteP
		c.stats.Writes++
	default:
		log.Panicf("channel %d: controller cannot schedule %s",
			c.channelID, t)
	}

	loc := c.mapper.Decode(t.Addr)
	makePacket := func(kind signal.PacketKind, bl int) *signal.BusPacket {
		return &signal.BusPacket{
			Kind:          kind,
			TransactionID: t.ID,
			Rank:          loc.Rank,
			Bank:          loc.Bank,
			Row:           loc.Row,
			Column:        loc.Column,
			BurstLength:   bl,
			Channel:       t.Channel,
			Port:          t.Port,
			Addr:          t.Addr,
			FromLogicOp:   t.FromLogicOp,
		}
	}

	act := makePacket(signal.PacketActivate, 0)
	col := makePacket(colKind, t.Size/c.cfg.DRAMBusWidth)

	if c.cfg.GiveLogicPriority && t.FromLogicOp {
		c.queue = append([]*signal.BusPacket{act, col}, c.queue...)
	} else {
		c.queue = append(c.queue, act, col)
	}

	c.waitingActivates++

	return true
}

// Tick advances the controller by one cycle. returnQueueLen is the number of
// entries in the channel's read-return queue.
func (c *Controller) Tick(returnQueueLen int) Issued {
	issued := Issued{}

	c.collectStats()
	c.accountBackgroundPower()
	c.advanceFAWWindows()
	c.advanceBankStates()
	c.advanceRefreshCounters()

	issued.WriteData = c.advanceWriteBursts()

	issued.Command = c.issueRefresh()
	if issued.Command == nil {
		issued.Command, issued.Bank = c.issueCommand(returnQueueLen)
	}

	c.cycle++
	c.stats.Cycles++

	return issued
}

func (c *Controller) collectStats() {
	waiting := 0
	for _, p := range c.queue {
		if p.Kind == signal.PacketActivate {
			waiting++
		}
	}

	if waiting > c.stats.ActivateQueueMax {
		c.stats.ActivateQueueMax = waiting
	}

	c.stats.ActivateQueueSum += uint64(waiting)

	for r := range c.banks {
		for b := range c.banks[r] {
			switch c.banks[r][b].State {
			case org.BankIdle:
				c.stats.IdleBanksSum++
			case org.BankRowActive:
				c.stats.ActiveBanksSum++
			case org.BankPrecharging:
				c.stats.PrechargingBanksSum++
			case org.BankRefreshing:
				c.stats.RefreshingBanksSum++
			}
		}
	}
}

func (c *Controller) accountBackgroundPower() {
	for r := range c.banks {
		open := false

		for b := range c.banks[r] {
			s := c.banks[r][b].State
			if s == org.BankRowActive || s == org.BankRefreshing {
				open = true
				break
			}
		}

		e := &c.stats.Energy[r]
		if open {
			e.Background += int64(c.timing.IDD3N) * c.powerMultiplier
		} else {
			e.IDD2NCycles++
			e.Background += int64(c.timing.IDD2N) * c.powerMultiplier
		}
	}
}

func (c *Controller) advanceFAWWindows() {
	for r, window := range c.fawWindows {
		kept := window[:0]

		for _, v := range window {
			v--
			if v > 0 {
				kept = append(kept, v)
			}
		}

		c.fawWindows[r] = kept
	}
}

func (c *Controller) advanceBankStates() {
	for r := range c.banks {
		for b := range c.banks[r] {
			c.banks[r][b].UpdateStateChange(c.timing.TRP)
		}
	}
}

func (c *Controller) advanceRefreshCounters() {
	for i := range c.refreshCounters {
		if c.refreshCounters[i] > 0 {
			c.refreshCounters[i]--
		}
	}
}

func (c *Controller) advanceWriteBursts() *signal.BusPacket {
	for i := range c.writeBursts {
		c.writeBursts[i].countdown--
	}

	if len(c.writeBursts) == 0 || c.writeBursts[0].countdown > 0 {
		return nil
	}

	p := c.writeBursts[0].packet
	c.writeBursts = c.writeBursts[1:]

	return p
}

// issueRefresh refreshes the first rank that is due and whose banks are all
// idle and past their next activate time. Ranks that are due but busy wait.
func (c *Controller) issueRefresh() *signal.BusPacket {
	for r := range c.refreshCounters {
		if c.refreshCounters[r] != 0 || !c.rankCanRefresh(r) {
			continue
		}

		t := c.timing
		c.stats.Energy[r].Refresh +=
			int64(t.IDD5B-t.IDD3N) * int64(t.TRFC) * c.powerMultiplier
		c.stats.Refreshes++

		for b := range c.banks[r] {
			bank := &c.banks[r][b]
			bank.State = org.BankRefreshing
			bank.StateChangeCountdown = t.TRFC
			bank.NextActivate = c.cycle + uint64(t.TRFC)
			bank.LastCommand = signal.PacketRefresh
		}

		c.refreshCounters[r] = c.refreshCycles

		return &signal.BusPacket{
			Kind:    signal.PacketRefresh,
			Rank:    r,
			Channel: c.channelID,
		}
	}

	return nil
}

func (c *Controller) rankCanRefresh(r int) bool {
	for b := range c.banks[r] {
		bank := &c.banks[r][b]
		if bank.NextActivate > c.cycle || bank.State != org.BankIdle {
			return false
		}
	}

	return true
}

// issueCommand issues the first issuable command in queue order. A column
// command never overtakes the activate of its own transaction.
func (c *Controller) issueCommand(
	returnQueueLen int,
) (*signal.BusPacket, org.BankState) {
	for i, p := range c.queue {
		if !c.IsIssuable(p, returnQueueLen) {
			continue
		}

		if i > 0 && c.queue[i-1].TransactionID == p.TransactionID {
			continue
		}

		before := c.banks[p.Rank][p.Bank]

		switch p.Kind {
		case signal.PacketReadP:
			c.issueRead(p)
		case signal.PacketWriteP:
			c.issueWrite(p)
		case signal.PacketActivate:
			c.issueActivate(p)
		}

		c.queue = append(c.queue[:i], c.queue[i+1:]...)

		return p, before
	}

	return nil, org.BankState{}
}

// IsIssuable tells if the command can be issued in the current cycle.
func (c *Controller) IsIssuable(p *signal.BusPacket, returnQueueLen int) bool {
	bank := &c.banks[p.Rank][p.Bank]

	switch p.Kind {
	case signal.PacketReadP:
		return c.columnIssuable(p, bank, bank.NextRead, returnQueueLen)
	case signal.PacketWriteP:
		return c.columnIssuable(p, bank, bank.NextWrite, returnQueueLen)
	case signal.PacketActivate:
		return bank.State == org.BankIdle &&
			c.cycle >= bank.NextActivate &&
			c.refreshCounters[p.Rank] > 0 &&
			len(c.fawWindows[p.Rank]) < activatesPerFAW
	}

	log.Panicf("channel %d: cannot check issuability of %s", c.channelID, p)

	return false
}

func (c *Controller) columnIssuable(
	p *signal.BusPacket,
	bank *org.BankState,
	nextAllowed uint64,
	returnQueueLen int,
) bool {
	returnQueueFull := (returnQueueLen+c.outstandingReads)*c.cfg.TransactionSize >=
		c.cfg.ChannelReturnQueueMax

	if bank.State == org.BankRowActive &&
		bank.OpenRow == p.Row &&
		c.cycle >= nextAllowed &&
		!returnQueueFull {
		return true
	}

	if returnQueueFull {
		c.stats.ReturnQueueFull++
	}

	return false
}

func (c *Controller) activateIssued() {
	c.waitingActivates--
	if c.waitingActivates < 0 {
		log.Panicf("channel %d: negative waiting activate count", c.channelID)
	}
}

func (c *Controller) issueRead(p *signal.BusPacket) {
	t := c.timing
	now := c.cycle
	bank := &c.banks[p.Rank][p.Bank]

	c.outstandingReads++
	c.activateIssued()

	c.stats.Energy[p.Rank].Burst +=
		int64(t.IDD4R-t.IDD3N) * int64(t.BL/2) * c.powerMultiplier

	bank.LastCommand = signal.PacketReadP
	bank.StateChangeCountdown = t.TRTP
	bank.NextActivate = maxCycle(bank.NextActivate, now+uint64(t.TRTP+t.TRP))
	bank.NextRefresh = now + uint64(t.TRTP+t.TRP)

	sameRankRead := after(now, maxInt(t.TCCD, c.transferCycles))
	otherRankRead := after(now, c.transferCycles+t.TRTRS)
	anyRankWrite := after(now, t.TCL+c.transferCycles+t.TRTRS-t.TCWL)

	for r := range c.banks {
		nextRead := otherRankRead
		if r == p.Rank {
			nextRead = sameRankRead
		}

		for b := range c.banks[r] {
			other := &c.banks[r][b]
			other.NextRead = maxCycle(other.NextRead, nextRead)
			other.NextWrite = maxCycle(other.NextWrite, anyRankWrite)
		}
	}

	// No column command may reach the bank until auto-precharge closes it.
	bank.NextRead = bank.NextActivate
	bank.NextWrite = bank.NextActivate
}

func (c *Controller) issueWrite(p *signal.BusPacket) {
	t := c.timing
	now := c.cycle
	bank := &c.banks[p.Rank][p.Bank]

	c.activateIssued()

	c.stats.Energy[p.Rank].Burst +=
		int64(t.IDD4W-t.IDD3N) * int64(t.BL/2) * c.powerMultiplier

	data := *p
	data.Kind = signal.PacketWriteData
	c.writeBursts = append(c.writeBursts, pendingWrite{
		packet:    &data,
		countdown: t.TCWL,
	})

	writeDone := t.TCWL + c.transferCycles + t.TWR
	bank.LastCommand = signal.PacketWriteP
	bank.StateChangeCountdown = writeDone
	bank.NextActivate = maxCycle(bank.NextActivate, now+uint64(writeDone+t.TRP))
	bank.NextRefresh = now + uint64(writeDone+t.TRP)

	sameRankRead := after(now, t.TCWL+c.transferCycles+t.TWTR)
	sameRankWrite := after(now, maxInt(t.TCCD, c.transferCycles))
	otherRankRead := after(now, t.TCWL+c.transferCycles+t.TRTRS-t.TCL)
	otherRankWrite := after(now, c.transferCycles+t.TRTRS)

	for r := range c.banks {
		nextRead, nextWrite := otherRankRead, otherRankWrite
		if r == p.Rank {
			nextRead, nextWrite = sameRankRead, sameRankWrite
		}

		for b := range c.banks[r] {
			other := &c.banks[r][b]
			other.NextRead = maxCycle(other.NextRead, nextRead)
			other.NextWrite = maxCycle(other.NextWrite, nextWrite)
		}
	}

	bank.NextRead = bank.NextActivate
	bank.NextWrite = bank.NextActivate
}

func (c *Controller) issueActivate(p *signal.BusPacket) {
	t := c.timing
	now := c.cycle
	bank := &c.banks[p.Rank][p.Bank]

	for b := range c.banks[p.Rank] {
		if b == p.Bank {
			continue
		}

		other := &c.banks[p.Rank][b]
		other.NextActivate = maxCycle(other.NextActivate, now+uint64(t.TRRD))
	}

	c.stats.Energy[p.Rank].ActPre += (int64(t.IDD0*t.TRC) -
		int64(t.IDD3N*t.TRAS+t.IDD2N*(t.TRC-t.TRAS))) * c.powerMultiplier
	c.stats.Activates++

	bank.LastCommand = signal.PacketActivate
	bank.State = org.BankRowActive
	bank.OpenRow = p.Row
	bank.NextActivate = now + uint64(t.TRC)
	bank.NextRead = maxCycle(bank.NextRead, now+uint64(t.TRCD))
	bank.NextWrite = maxCycle(bank.NextWrite, now+uint64(t.TRCD))

	c.fawWindows[p.Rank] = append(c.fawWindows[p.Rank], t.TFAW)
}

// WriteCommitted records that write data reached its rank.
func (c *Controller) WriteCommitted() {
	c.stats.WritesDone++
}

func after(now uint64, delta int) uint64 {
	if delta < 0 && uint64(-delta) > now {
		return 0
	}

	return uint64(int64(now) + int64(delta))
}

func maxCycle(a, b uint64) uint64 {
	if a > b {
		return a
	}

	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}

	return b
}
