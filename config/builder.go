package config

import (
	"log"

	"github.com/sarchlab/bobsim/addressmapping"
)

// Builder can build configurations.
type Builder struct {
	cfg Config
}

// MakeBuilder returns a builder that starts from the default configuration.
func MakeBuilder() Builder {
	return Builder{cfg: Default()}
}

// MakeBuilderFrom returns a builder that starts from the given configuration.
func MakeBuilderFrom(c Config) Builder {
	return Builder{cfg: c}
}

// WithNumChannels sets the number of DRAM channels.
func (b Builder) WithNumChannels(n int) Builder {
	b.cfg.NumChannels = n
	return b
}

// WithNumLinkBuses sets the number of serial link buses.
func (b Builder) WithNumLinkBuses(n int) Builder {
	b.cfg.NumLinkBuses = n
	return b
}

// WithChannelsPerLinkBus sets the number of channels behind each link bus.
func (b Builder) WithChannelsPerLinkBus(n int) Builder {
	b.cfg.ChannelsPerLinkBus = n
	return b
}

// WithRequestLinkBusWidth sets the width of the request links in bits.
func (b Builder) WithRequestLinkBusWidth(bits int) Builder {
	b.cfg.RequestLinkBusWidth = bits
	return b
}

// WithResponseLinkBusWidth sets the width of the response links in bits.
func (b Builder) WithResponseLinkBusWidth(bits int) Builder {
	b.cfg.ResponseLinkBusWidth = bits
	return b
}

// WithLinkBusClockPeriod sets the link clock period in nanoseconds.
func (b Builder) WithLinkBusClockPeriod(ns float64) Builder {
	b.cfg.LinkBusClockPeriod = ns
	return b
}

// WithLinkBusUseDDR sets if the links transfer on both clock edges.
func (b Builder) WithLinkBusUseDDR(ddr bool) Builder {
	b.cfg.LinkBusUseDDR = ddr
	return b
}

// WithCPUClockPeriod sets the CPU clock period in nanoseconds.
func (b Builder) WithCPUClockPeriod(ns float64) Builder {
	b.cfg.CPUClockPeriod = ns
	return b
}

// WithNumPorts sets the number of host ports.
func (b Builder) WithNumPorts(n int) Builder {
	b.cfg.NumPorts = n
	return b
}

// WithPortWidth sets the number of bytes a port moves per CPU cycle.
func (b Builder) WithPortWidth(bytes int) Builder {
	b.cfg.PortWidth = bytes
	return b
}

// WithPortQueueDepth sets the number of entries of each port buffer.
func (b Builder) WithPortQueueDepth(n int) Builder {
	b.cfg.PortQueueDepth = n
	return b
}

// WithPortHeuristic sets how requests are assigned to ports.
func (b Builder) WithPortHeuristic(h PortHeuristic) Builder {
	b.cfg.PortHeuristic = h
	return b
}

// WithTransactionSize sets the number of bytes of each transaction.
func (b Builder) WithTransactionSize(bytes int) Builder {
	b.cfg.TransactionSize = bytes
	return b
}

// WithDRAMBusWidth sets the DRAM data bus width in bytes.
func (b Builder) WithDRAMBusWidth(bytes int) Builder {
	b.cfg.DRAMBusWidth = bytes
	return b
}

// WithBusAlignmentSize sets the alignment of addresses on the DRAM bus.
func (b Builder) WithBusAlignmentSize(bytes int) Builder {
	b.cfg.BusAlignmentSize = bytes
	return b
}

// WithCacheLineSize sets the cache line size used by the split-column schemes.
func (b Builder) WithCacheLineSize(bytes int) Builder {
	b.cfg.CacheLineSize = bytes
	return b
}

// WithChannelWorkQueueMax sets the number of transactions a channel queues.
func (b Builder) WithChannelWorkQueueMax(n int) Builder {
	b.cfg.ChannelWorkQueueMax = n
	return b
}

// WithChannelReturnQueueMax sets the return queue budget in bytes.
func (b Builder) WithChannelReturnQueueMax(bytes int) Builder {
	b.cfg.ChannelReturnQueueMax = bytes
	return b
}

// WithGiveLogicPriority sets if logic responses are sent before read data.
func (b Builder) WithGiveLogicPriority(p bool) Builder {
	b.cfg.GiveLogicPriority = p
	return b
}

// WithPacketOverheads sets the header sizes of the link packets in bytes.
func (b Builder) WithPacketOverheads(
	readReq, writeReq, readRsp, logicRsp int,
) Builder {
	b.cfg.ReadRequestPacketOverhead = readReq
	b.cfg.WriteRequestPacketOverhead = writeReq
	b.cfg.ReadResponsePacketOverhead = readRsp
	b.cfg.LogicResponsePacketOverhead = logicRsp

	return b
}

// WithMappingScheme sets the address mapping scheme.
func (b Builder) WithMappingScheme(s addressmapping.Scheme) Builder {
	b.cfg.MappingScheme = s
	return b
}

// WithEffectiveRowBits limits the number of row bits the mapping decodes.
func (b Builder) WithEffectiveRowBits(n int) Builder {
	b.cfg.EffectiveRowBits = n
	return b
}

// WithRefreshPeriod sets the refresh interval of each rank in nanoseconds.
func (b Builder) WithRefreshPeriod(ns float64) Builder {
	b.cfg.RefreshPeriod = ns
	return b
}

// WithEpochLength sets the number of CPU cycles per statistics epoch.
func (b Builder) WithEpochLength(cycles uint64) Builder {
	b.cfg.EpochLength = cycles
	return b
}

// WithControllerPower sets the background and per-channel core power of the
// main controller in watts.
func (b Builder) WithControllerPower(background, core float64) Builder {
	b.cfg.ControllerBackgroundPower = background
	b.cfg.ControllerCorePower = core

	return b
}

// WithDevice sets the DRAM part. The effective row bits follow the new part.
func (b Builder) WithDevice(d DeviceTiming) Builder {
	b.cfg.Device = d
	b.cfg.EffectiveRowBits = log2(d.NumRows)

	return b
}

// WithNumRanks overrides the number of ranks of the DRAM part.
func (b Builder) WithNumRanks(n int) Builder {
	b.cfg.Device.NumRanks = n
	return b
}

// Build validates the configuration and returns it.
func (b Builder) Build() (*Config, error) {
	c := b.cfg

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

// MustBuild is Build that panics on an invalid configuration.
func (b Builder) MustBuild() *Config {
	c, err := b.Build()
	if err != nil {
		log.Panic(err)
	}

	return c
}
