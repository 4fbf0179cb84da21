package bob

import (
	"math"

	"github.com/sarchlab/bobsim/dram"
	"github.com/sarchlab/bobsim/signal"
)

// Admission counts the places where the controller pushed back.
type Admission struct {
	Accepted              uint64
	NoPortAvailable       uint64
	PortFull              uint64
	CmdQueueFull          uint64
	ReturnQueueFull       uint64
	LogicResponseSlotBusy uint64
}

func (a Admission) sub(o Admission) Admission {
	return Admission{
		Accepted:              a.Accepted - o.Accepted,
		NoPortAvailable:       a.NoPortAvailable - o.NoPortAvailable,
		PortFull:              a.PortFull - o.PortFull,
		CmdQueueFull:          a.CmdQueueFull - o.CmdQueueFull,
		ReturnQueueFull:       a.ReturnQueueFull - o.ReturnQueueFull,
		LogicResponseSlotBusy: a.LogicResponseSlotBusy - o.LogicResponseSlotBusy,
	}
}

// Summary describes a distribution of latencies in nanoseconds.
type Summary struct {
	Mean float64
	Std  float64
	Min  float64
	Max  float64
}

// LatencyStats describe the latency of the reads returned to the host.
type LatencyStats struct {
	Count   uint64
	Full    Summary
	Channel Summary
	DRAM    Summary
}

// ComponentLatency splits the average read latency of a channel into the
// time spent in each stage, in nanoseconds.
type ComponentLatency struct {
	RequestPort  float64
	RequestLink  float64
	WorkQueue    float64
	Access       float64
	ReturnQueue  float64
	ResponseLink float64
	ResponsePort float64
	Total        float64
}

// RankPower is the average power of a rank in watts.
type RankPower struct {
	Background float64
	Burst      float64
	ActPre     float64
	Refresh    float64
	Total      float64
}

// ChannelStats describe one DRAM channel.
type ChannelStats struct {
	Requests         uint64
	Bandwidth        float64
	BusIdlePercent   float64
	WorkQueueAvg     float64
	WorkQueueMax     int
	IdleBanks        float64
	ActiveBanks      float64
	PrechargingBanks float64
	RefreshingBanks  float64
	ReturnQueueMax   int
	ReturnQueueLen   int
	ReturnQueueFull  uint64
	CmdQueueFull     uint64
	Ranks            []RankPower
	Power            float64
	Latency          ComponentLatency
}

// PortStats describe one port.
type PortStats struct {
	InputBufferAvg      float64
	OutputBufferAvg     float64
	RequestIdlePercent  float64
	ResponseIdlePercent float64
	Requests            uint64
	Reads               uint64
	Writes              uint64
	LogicOps            uint64
	Returns             uint64
}

// LinkStats describe one link bus. Bandwidths are in GB/s and include the
// packet overheads.
type LinkStats struct {
	RequestBandwidth    float64
	ResponseBandwidth   float64
	RequestIdlePercent  float64
	ResponseIdlePercent float64
}

// Stats is a read-only snapshot of the controller over a range of cycles.
type Stats struct {
	Epoch     uint64
	Cycle     uint64
	Cycles    uint64
	Bandwidth float64

	ReturnedReads    uint64
	IssuedWrites     uint64
	CommittedWrites  uint64
	LogicOps         uint64
	LogicResponses   uint64
	ReadsAtChannels  uint64
	WritesAtChannels uint64

	Latency  LatencyStats
	Channels []ChannelStats
	Ports    []PortStats
	Links    []LinkStats

	Admission Admission

	DRAMPower                 float64
	ControllerBackgroundPower float64
	ControllerCorePower       float64
	SystemPower               float64
}

// counters are the cumulative raw counts from which Stats are derived.
type counters struct {
	cycle uint64

	returnedReads   uint64
	issuedWrites    uint64
	committedWrites uint64
	logicOps        uint64
	logicResponses  uint64
	readsAtChannel  uint64
	writesAtChannel uint64

	channelRequests []uint64
	channelCmdFull  []uint64
	channels        []dram.Stats
	ports           []portCounters
	links           []linkCounters

	admission Admission
}

func (c counters) clone() counters {
	c.channelRequests = append([]uint64(nil), c.channelRequests...)
	c.channelCmdFull = append([]uint64(nil), c.channelCmdFull...)
	c.ports = append([]portCounters(nil), c.ports...)
	c.links = append([]linkCounters(nil), c.links...)

	channels := make([]dram.Stats, len(c.channels))
	for i, s := range c.channels {
		s.Controller.Energy = append([]dram.RankEnergy(nil),
			s.Controller.Energy...)
		channels[i] = s
	}

	c.channels = channels

	return c
}

type distribution struct {
	n     uint64
	sum   float64
	sumSq float64
	min   float64
	max   float64
}

func (d *distribution) add(v float64) {
	if d.n == 0 || v < d.min {
		d.min = v
	}

	if d.n == 0 || v > d.max {
		d.max = v
	}

	d.n++
	d.sum += v
	d.sumSq += v * v
}

func (d *distribution) summary(scale float64) Summary {
	if d.n == 0 {
		return Summary{}
	}

	mean := d.sum / float64(d.n)
	variance := d.sumSq/float64(d.n) - mean*mean

	return Summary{
		Mean: mean * scale,
		Std:  math.Sqrt(math.Max(variance, 0)) * scale,
		Min:  d.min * scale,
		Max:  d.max * scale,
	}
}

type componentSums struct {
	n            uint64
	requestPort  uint64
	requestLink  uint64
	workQueue    uint64
	access       uint64
	returnQueue  uint64
	responseLink uint64
	responsePort uint64
	total        uint64
}

func (s *componentSums) latency(scale float64) ComponentLatency {
	if s.n == 0 {
		return ComponentLatency{}
	}

	avg := func(v uint64) float64 {
		return float64(v) / float64(s.n) * scale
	}

	return ComponentLatency{
		RequestPort:  avg(s.requestPort),
		RequestLink:  avg(s.requestLink),
		WorkQueue:    avg(s.workQueue),
		Access:       avg(s.access),
		ReturnQueue:  avg(s.returnQueue),
		ResponseLink: avg(s.responseLink),
		ResponsePort: avg(s.responsePort),
		Total:        avg(s.total),
	}
}

// latencyRecorder collects the latencies of returned reads.
type latencyRecorder struct {
	full       distribution
	channel    distribution
	dram       distribution
	perChannel []componentSums
}

func newLatencyRecorder(numChannels int) *latencyRecorder {
	return &latencyRecorder{perChannel: make([]componentSums, numChannels)}
}

func (r *latencyRecorder) record(t *signal.Transaction, full uint64) {
	l := t.Latency

	r.full.add(float64(full))
	r.channel.add(float64(l.ChannelTotal))
	r.dram.add(float64(l.DRAMTotal))

	s := &r.perChannel[t.Channel]
	s.n++
	s.requestPort += l.ReqPort
	s.requestLink += l.ReqLink
	s.workQueue += l.WorkQueue
	s.access += l.DRAMTotal
	s.returnQueue += l.InRRQ
	s.responseLink += l.RspLink
	s.responsePort += l.RspPort
	s.total += full
}

func newCounters(numChannels, numPorts, numLinks int) counters {
	return counters{
		channelRequests: make([]uint64, numChannels),
		channelCmdFull:  make([]uint64, numChannels),
		channels:        make([]dram.Stats, numChannels),
		ports:           make([]portCounters, numPorts),
		links:           make([]linkCounters, numLinks),
	}
}

// ratio divides two counters and returns 0 for an empty range.
func ratio(a, b uint64) float64 {
	if b == 0 {
		return 0
	}

	return float64(a) / float64(b)
}

const gib = 1 << 30

// buildStats derives the statistics of the cycles between prev and cur.
func (c *Comp) buildStats(cur, prev counters, lat *latencyRecorder) Stats {
	cycles := cur.cycle - prev.cycle
	period := c.cfg.CPUClockPeriod

	s := Stats{
		Cycle:            cur.cycle,
		Cycles:           cycles,
		ReturnedReads:    cur.returnedReads - prev.returnedReads,
		IssuedWrites:     cur.issuedWrites - prev.issuedWrites,
		CommittedWrites:  cur.committedWrites - prev.committedWrites,
		LogicOps:         cur.logicOps - prev.logicOps,
		LogicResponses:   cur.logicResponses - prev.logicResponses,
		ReadsAtChannels:  cur.readsAtChannel - prev.readsAtChannel,
		WritesAtChannels: cur.writesAtChannel - prev.writesAtChannel,
		Admission:        cur.admission.sub(prev.admission),
		Latency: LatencyStats{
			Count:   lat.full.n,
			Full:    lat.full.summary(period),
			Channel: lat.channel.summary(period),
			DRAM:    lat.dram.summary(period),
		},
	}

	if cycles > 0 {
		bytes := float64(s.IssuedWrites+s.ReturnedReads) *
			float64(c.cfg.TransactionSize)
		s.Bandwidth = bytes / (float64(cycles) * period * 1e-9) / gib
	}

	for i := range c.channels {
		cs := c.channelStats(i, cur, prev, lat)
		s.DRAMPower += cs.Power
		s.Channels = append(s.Channels, cs)
	}

	for i := range c.ports {
		s.Ports = append(s.Ports, portStats(cur.ports[i], prev.ports[i], cycles))
	}

	for i := range c.links {
		s.Links = append(s.Links, c.linkStats(cur.links[i], prev.links[i], cycles))
	}

	s.ControllerBackgroundPower =
		float64(c.cfg.NumLinkBuses) * c.cfg.ControllerBackgroundPower
	s.ControllerCorePower = float64(c.cfg.NumChannels) * c.cfg.ControllerCorePower
	s.SystemPower = s.DRAMPower + s.ControllerBackgroundPower +
		s.ControllerCorePower

	return s
}

func (c *Comp) channelStats(
	i int,
	cur, prev counters,
	lat *latencyRecorder,
) ChannelStats {
	now, before := cur.channels[i], prev.channels[i]
	dramCycles := now.Cycles - before.Cycles
	idle := now.BusIdleCycles - before.BusIdleCycles
	ctrlNow, ctrlBefore := now.Controller, before.Controller

	perCycle := func(now, before uint64) float64 {
		return ratio(now-before, dramCycles)
	}

	cs := ChannelStats{
		Requests:         cur.channelRequests[i] - prev.channelRequests[i],
		BusIdlePercent:   ratio(idle, dramCycles) * 100,
		WorkQueueAvg:     perCycle(ctrlNow.ActivateQueueSum, ctrlBefore.ActivateQueueSum),
		WorkQueueMax:     ctrlNow.ActivateQueueMax,
		IdleBanks:        perCycle(ctrlNow.IdleBanksSum, ctrlBefore.IdleBanksSum),
		ActiveBanks:      perCycle(ctrlNow.ActiveBanksSum, ctrlBefore.ActiveBanksSum),
		PrechargingBanks: perCycle(ctrlNow.PrechargingBanksSum, ctrlBefore.PrechargingBanksSum),
		RefreshingBanks:  perCycle(ctrlNow.RefreshingBanksSum, ctrlBefore.RefreshingBanksSum),
		ReturnQueueMax:   now.ReturnQueueMax,
		ReturnQueueLen:   len(c.channels[i].ReturnQueue()),
		ReturnQueueFull:  ctrlNow.ReturnQueueFull - ctrlBefore.ReturnQueueFull,
		CmdQueueFull:     cur.channelCmdFull[i] - prev.channelCmdFull[i],
		Latency:          lat.perChannel[i].latency(c.cfg.CPUClockPeriod),
	}

	if dramCycles > 0 {
		cs.Bandwidth = float64(c.cfg.DRAMBusWidth) / c.cfg.Device.TCK *
			(1 - ratio(idle, dramCycles)) * 1e9 / gib
	}

	for r := range ctrlNow.Energy {
		var e dram.RankEnergy
		if r < len(ctrlBefore.Energy) {
			e = ctrlBefore.Energy[r]
		}

		p := c.rankPower(ctrlNow.Energy[r], e, dramCycles)
		cs.Power += p.Total
		cs.Ranks = append(cs.Ranks, p)
	}

	return cs
}

// rankPower converts the energy drawn between two snapshots into watts.
func (c *Comp) rankPower(now, before dram.RankEnergy, dramCycles uint64) RankPower {
	if dramCycles == 0 {
		return RankPower{}
	}

	scale := c.cfg.Device.Vdd / 1000 / float64(dramCycles)
	p := RankPower{
		Background: float64(now.Background-before.Background) * scale,
		Burst:      float64(now.Burst-before.Burst) * scale,
		ActPre:     float64(now.ActPre-before.ActPre) * scale,
		Refresh:    float64(now.Refresh-before.Refresh) * scale,
	}
	p.Total = p.Background + p.Burst + p.ActPre + p.Refresh

	return p
}

func portStats(now, before portCounters, cycles uint64) PortStats {
	return PortStats{
		InputBufferAvg:      ratio(now.InputOccupancy-before.InputOccupancy, cycles),
		OutputBufferAvg:     ratio(now.OutputOccupancy-before.OutputOccupancy, cycles),
		RequestIdlePercent:  ratio(now.RequestIdle-before.RequestIdle, cycles) * 100,
		ResponseIdlePercent: ratio(now.ResponseIdle-before.ResponseIdle, cycles) * 100,
		Requests:            now.Requests - before.Requests,
		Reads:               now.Reads - before.Reads,
		Writes:              now.Writes - before.Writes,
		LogicOps:            now.LogicOps - before.LogicOps,
		Returns:             now.Returns - before.Returns,
	}
}

func (c *Comp) linkStats(now, before linkCounters, cycles uint64) LinkStats {
	edges := 1.0
	if c.cfg.LinkBusUseDDR {
		edges = 2
	}

	bandwidth := func(idle uint64, width int) float64 {
		if cycles == 0 {
			return 0
		}

		return (1 - ratio(idle, cycles)) * float64(width) * edges /
			c.cfg.LinkBusClockPeriod / 8
	}

	reqIdle := now.RequestIdle - before.RequestIdle
	rspIdle := now.ResponseIdle - before.ResponseIdle

	return LinkStats{
		RequestBandwidth:    bandwidth(reqIdle, c.cfg.RequestLinkBusWidth),
		ResponseBandwidth:   bandwidth(rspIdle, c.cfg.ResponseLinkBusWidth),
		RequestIdlePercent:  ratio(reqIdle, cycles) * 100,
		ResponseIdlePercent: ratio(rspIdle, cycles) * 100,
	}
}
