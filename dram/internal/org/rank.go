package org

import (
	"log"

	"github.com/sarchlab/bobsim/config"
	"github.com/sarchlab/bobsim/signal"
)

type pendingRead struct {
	packet    *signal.BusPacket
	countdown int
}

// A Rank applies the commands it receives to its banks. It checks that each
// command is legal and panics otherwise, so it acts as the ground truth for
// the controller's own bookkeeping.
type Rank struct {
	id     int
	cfg    *config.Config
	timing *config.DeviceTiming

	banks []BankState
	cycle uint64

	readReturn []pendingRead
}

// NewRank creates a rank with all banks idle.
func NewRank(id int, cfg *config.Config) *Rank {
	return &Rank{
		id:     id,
		cfg:    cfg,
		timing: &cfg.Device,
		banks:  make([]BankState, cfg.Device.NumBanks),
	}
}

// ID returns the index of the rank in its channel.
func (r *Rank) ID() int {
	return r.id
}

// Cycle returns the number of cycles the rank has been ticked.
func (r *Rank) Cycle() uint64 {
	return r.cycle
}

// Bank returns a copy of the state of a bank.
func (r *Rank) Bank(i int) BankState {
	return r.banks[i]
}

// PendingReads returns the number of reads waiting for the CAS latency.
func (r *Rank) PendingReads() int {
	return len(r.readReturn)
}

// Tick advances the rank by one cycle. It returns the read data packet whose
// CAS latency expires in this cycle, if any.
func (r *Rank) Tick() *signal.BusPacket {
	for i := range r.banks {
		r.banks[i].UpdateStateChange(r.timing.TRP)
	}

	for i := range r.readReturn {
		r.readReturn[i].countdown--
	}

	var ready *signal.BusPacket
	if len(r.readReturn) > 0 && r.readReturn[0].countdown <= 0 {
		ready = r.readReturn[0].packet
		r.readReturn = r.readReturn[1:]
	}

	r.cycle++

	return ready
}

// Receive applies a packet that arrives on the command bus or the data bus.
func (r *Rank) Receive(p *signal.BusPacket) {
	switch p.Kind {
	case signal.PacketRefresh:
		r.refresh()
	case signal.PacketReadP:
		r.readP(p)
	case signal.PacketWriteP:
		r.writeP(p)
	case signal.PacketActivate:
		r.activate(p)
	case signal.PacketWriteData:
		r.writeData(p)
	default:
		log.Panicf("rank %d cannot receive %s", r.id, p)
	}
}

func (r *Rank) refresh() {
	t := r.timing

	for i := range r.banks {
		b := &r.banks[i]
		if b.State != BankIdle || b.NextActivate > r.cycle {
			log.Panicf("rank %d: refresh at cycle %d while bank %d is %s "+
				"with next activate %d",
				r.id, r.cycle, i, b.State, b.NextActivate)
		}

		b.LastCommand = signal.PacketRefresh
		b.State = BankRefreshing
		b.StateChangeCountdown = t.TRFC
		b.NextActivate = r.cycle + uint64(t.TRFC)
	}
}

func (r *Rank) mustHaveOpenRow(p *signal.BusPacket, nextAllowed uint64) {
	b := &r.banks[p.Bank]
	if b.State != BankRowActive || b.OpenRow != p.Row || r.cycle < nextAllowed {
		log.Panicf("rank %d: illegal %s at cycle %d, bank is %s "+
			"with row %d open, allowed from %d",
			r.id, p, r.cycle, b.State, b.OpenRow, nextAllowed)
	}
}

func (r *Rank) bumpColumnBounds() {
	t := r.timing
	for i := range r.banks {
		b := &r.banks[i]
		b.NextRead = maxCycle(b.NextRead, r.cycle+uint64(t.TCCD))
		b.NextWrite = maxCycle(b.NextWrite, r.cycle+uint64(t.TCCD))
	}
}

func (r *Rank) readP(p *signal.BusPacket) {
	t := r.timing
	b := &r.banks[p.Bank]
	r.mustHaveOpenRow(p, b.NextRead)

	p.Kind = signal.PacketReadData
	r.readReturn = append(r.readReturn, pendingRead{
		packet:    p,
		countdown: t.TCL,
	})

	r.bumpColumnBounds()

	b.LastCommand = signal.PacketReadP
	b.StateChangeCountdown = t.TRTP
	b.NextActivate = r.cycle + uint64(t.TRTP+t.TRP)
	b.NextRead = b.NextActivate
	b.NextWrite = b.NextActivate
}

func (r *Rank) writeP(p *signal.BusPacket) {
	t := r.timing
	b := &r.banks[p.Bank]
	r.mustHaveOpenRow(p, b.NextWrite)

	r.bumpColumnBounds()

	b.LastCommand = signal.PacketWriteP
	b.StateChangeCountdown = t.TCWL + r.cfg.TransferCycles() + t.TWR
	b.NextActivate = r.cycle + uint64(t.TCWL+p.BurstLength+t.TWR+t.TRP)
	b.NextRead = b.NextActivate
	b.NextWrite = b.NextActivate
}

func (r *Rank) activate(p *signal.BusPacket) {
	t := r.timing
	b := &r.banks[p.Bank]

	if b.State != BankIdle || r.cycle < b.NextActivate {
		log.Panicf("rank %d: illegal %s at cycle %d, bank is %s "+
			"with next activate %d",
			r.id, p, r.cycle, b.State, b.NextActivate)
	}

	b.State = BankRowActive
	b.OpenRow = p.Row
	b.NextRead = r.cycle + uint64(t.TRCD)
	b.NextWrite = r.cycle + uint64(t.TRCD)
	b.NextActivate = r.cycle + uint64(t.TRC)

	for i := range r.banks {
		if i == p.Bank {
			continue
		}

		r.banks[i].NextActivate = maxCycle(
			r.banks[i].NextActivate, r.cycle+uint64(t.TRRD))
	}
}

func (r *Rank) writeData(p *signal.BusPacket) {
	t := r.timing
	b := &r.banks[p.Bank]

	if b.State != BankRowActive || b.OpenRow != p.Row {
		log.Panicf("rank %d: write data %s at cycle %d, bank is %s "+
			"with row %d open",
			r.id, p, r.cycle, b.State, b.OpenRow)
	}

	b.StateChangeCountdown = t.TWR
	b.NextActivate = r.cycle + uint64(t.TWR+t.TRP)
}
