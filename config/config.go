// Package config holds the immutable configuration of a BOB simulation.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sarchlab/bobsim/addressmapping"
)

// Errors reported by Validate. They are wrapped with the offending values.
var (
	ErrClockMismatch = errors.New("clock period mismatch")
	ErrChannelLayout = errors.New("invalid channel layout")
	ErrUnknownScheme = errors.New("unknown address mapping scheme")
	ErrZeroTransit   = errors.New("zero-cycle link transit")
	ErrNotPowerOfTwo = errors.New("value must be a power of two")
	ErrInvalidValue  = errors.New("invalid configuration value")
)

// PortHeuristic decides which port a new request enters through.
type PortHeuristic int

// The port heuristics.
const (
	FirstAvailable PortHeuristic = iota
	PerCore
	RoundRobin
)

func (h PortHeuristic) String() string {
	switch h {
	case FirstAvailable:
		return "FIRST_AVAILABLE"
	case PerCore:
		return "PER_CORE"
	case RoundRobin:
		return "ROUND_ROBIN"
	}

	return fmt.Sprintf("PortHeuristic(%d)", int(h))
}

// MarshalText renders the heuristic by name.
func (h PortHeuristic) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText parses a heuristic name.
func (h *PortHeuristic) UnmarshalText(text []byte) error {
	switch strings.ToUpper(strings.TrimSpace(string(text))) {
	case "FIRST_AVAILABLE":
		*h = FirstAvailable
	case "PER_CORE":
		*h = PerCore
	case "ROUND_ROBIN":
		*h = RoundRobin
	default:
		return fmt.Errorf("%w: unknown port heuristic %q",
			ErrInvalidValue, string(text))
	}

	return nil
}

// Config is the full set of simulation parameters. A Config is created once,
// validated, and shared read-only by every component.
type Config struct {
	NumChannels          int     `yaml:"num_channels" json:"num_channels"`
	NumLinkBuses         int     `yaml:"num_link_buses" json:"num_link_buses"`
	ChannelsPerLinkBus   int     `yaml:"channels_per_link_bus" json:"channels_per_link_bus"`
	RequestLinkBusWidth  int     `yaml:"request_link_bus_width" json:"request_link_bus_width"`
	ResponseLinkBusWidth int     `yaml:"response_link_bus_width" json:"response_link_bus_width"`
	LinkBusClockPeriod   float64 `yaml:"link_bus_clock_period" json:"link_bus_clock_period"`
	LinkBusUseDDR        bool    `yaml:"link_bus_use_ddr" json:"link_bus_use_ddr"`
	CPUClockPeriod       float64 `yaml:"cpu_clock_period" json:"cpu_clock_period"`

	NumPorts       int           `yaml:"num_ports" json:"num_ports"`
	PortWidth      int           `yaml:"port_width" json:"port_width"`
	PortQueueDepth int           `yaml:"port_queue_depth" json:"port_queue_depth"`
	PortHeuristic  PortHeuristic `yaml:"port_heuristic" json:"port_heuristic"`

	TransactionSize  int `yaml:"transaction_size" json:"transaction_size"`
	DRAMBusWidth     int `yaml:"dram_bus_width" json:"dram_bus_width"`
	BusAlignmentSize int `yaml:"bus_alignment_size" json:"bus_alignment_size"`
	CacheLineSize    int `yaml:"cache_line_size" json:"cache_line_size"`

	ChannelWorkQueueMax   int  `yaml:"channel_work_queue_max" json:"channel_work_queue_max"`
	ChannelReturnQueueMax int  `yaml:"channel_return_queue_max" json:"channel_return_queue_max"`
	GiveLogicPriority     bool `yaml:"give_logic_priority" json:"give_logic_priority"`

	LogicResponsePacketOverhead int `yaml:"logic_response_packet_overhead" json:"logic_response_packet_overhead"`
	ReadRequestPacketOverhead   int `yaml:"read_request_packet_overhead" json:"read_request_packet_overhead"`
	ReadResponsePacketOverhead  int `yaml:"read_response_packet_overhead" json:"read_response_packet_overhead"`
	WriteRequestPacketOverhead  int `yaml:"write_request_packet_overhead" json:"write_request_packet_overhead"`

	MappingScheme    addressmapping.Scheme `yaml:"mapping_scheme" json:"mapping_scheme"`
	EffectiveRowBits int                   `yaml:"effective_row_bits" json:"effective_row_bits"`

	RefreshPeriod float64 `yaml:"refresh_period" json:"refresh_period"`
	EpochLength   uint64  `yaml:"epoch_length" json:"epoch_length"`

	ControllerBackgroundPower float64 `yaml:"controller_background_power" json:"controller_background_power"`
	ControllerCorePower       float64 `yaml:"controller_core_power" json:"controller_core_power"`

	Device DeviceTiming `yaml:"device" json:"device"`
}

// Default returns the configuration of the reference BOB system with a
// DDR3-1333 part.
func Default() Config {
	c := Config{
		NumChannels:          8,
		NumLinkBuses:         4,
		ChannelsPerLinkBus:   2,
		RequestLinkBusWidth:  8,
		ResponseLinkBusWidth: 12,
		LinkBusClockPeriod:   0.3125,
		LinkBusUseDDR:        true,
		CPUClockPeriod:       0.3125,

		NumPorts:       4,
		PortWidth:      16,
		PortQueueDepth: 8,
		PortHeuristic:  FirstAvailable,

		TransactionSize:  64,
		DRAMBusWidth:     16,
		BusAlignmentSize: 8,
		CacheLineSize:    64,

		ChannelWorkQueueMax:   16,
		ChannelReturnQueueMax: 1024,
		GiveLogicPriority:     true,

		LogicResponsePacketOverhead: 8,
		ReadRequestPacketOverhead:   8,
		ReadResponsePacketOverhead:  8,
		WriteRequestPacketOverhead:  8,

		MappingScheme: addressmapping.RwClhBkRkChCllBy,

		RefreshPeriod: 7800,
		EpochLength:   1000000,

		ControllerBackgroundPower: 7,
		ControllerCorePower:       3.5,

		Device: DDR3_1333,
	}

	c.EffectiveRowBits = log2(c.Device.NumRows)

	return c
}

// LinkCPUClockRatio is the number of link cycles in one CPU cycle.
func (c *Config) LinkCPUClockRatio() int {
	return int(math.Round(c.CPUClockPeriod / c.LinkBusClockPeriod))
}

// DRAMCPUClockRatio is the number of CPU cycles in one DRAM cycle. It is not
// necessarily an integer.
func (c *Config) DRAMCPUClockRatio() float64 {
	return c.Device.TCK / c.CPUClockPeriod
}

// DRAMClockFraction returns the DRAM-to-CPU clock ratio as the fraction
// cpu/dram of two integer periods in femtoseconds, reduced.
func (c *Config) DRAMClockFraction() (cpu, dram uint64) {
	cpu = uint64(math.Round(c.CPUClockPeriod * 1e6))
	dram = uint64(math.Round(c.Device.TCK * 1e6))

	g := gcd(cpu, dram)
	if g == 0 {
		return cpu, dram
	}

	return cpu / g, dram / g
}

// TransferCycles is the number of DRAM cycles needed to move one transaction
// over the DRAM data bus.
func (c *Config) TransferCycles() int {
	return c.TransactionSize / c.DRAMBusWidth
}

// BurstLength is the number of data-bus cycles of a transfer of the given
// size.
func (c *Config) BurstLength(size int) int {
	return size / c.DRAMBusWidth
}

// RefreshCycles is the refresh interval of one rank in DRAM cycles.
func (c *Config) RefreshCycles() int {
	return int(c.RefreshPeriod / c.Device.TCK)
}

// PowerMultiplier is the number of devices that draw current together for
// one rank.
func (c *Config) PowerMultiplier() int {
	return (c.DRAMBusWidth / 2 * 8) / c.Device.DeviceWidth
}

// ReturnQueueSlots is the number of transactions the read-return queue holds.
func (c *Config) ReturnQueueSlots() int {
	return c.ChannelReturnQueueMax / c.TransactionSize
}

// LogicStride is the distance between consecutive sub-requests generated by
// the logic layer.
func (c *Config) LogicStride() uint64 {
	return uint64(1) << uint(log2(c.BusAlignmentSize)+log2(c.NumChannels))
}

// AddressWidths returns the bit widths used by the address mapping.
func (c *Config) AddressWidths() addressmapping.Widths {
	return addressmapping.Widths{
		Channel:   log2(c.NumChannels),
		Rank:      log2(c.Device.NumRanks),
		Bank:      log2(c.Device.NumBanks),
		Row:       c.EffectiveRowBits,
		Column:    log2(c.Device.NumCols),
		ColumnLow: log2(c.CacheLineSize) - log2(c.BusAlignmentSize),
		Byte:      log2(c.BusAlignmentSize),
	}
}

// NewMapper creates the address mapper selected by the configuration.
func (c *Config) NewMapper() (*addressmapping.Mapper, error) {
	return addressmapping.NewMapper(c.MappingScheme, c.AddressWidths())
}

// RequestTransitCycles converts a packet of the given byte size into the
// number of CPU cycles it occupies the request link.
func (c *Config) RequestTransitCycles(bytes int) int {
	return c.transitCycles(bytes, c.RequestLinkBusWidth)
}

// ResponseTransitCycles converts a packet of the given byte size into the
// number of CPU cycles it occupies the response link.
func (c *Config) ResponseTransitCycles(bytes int) int {
	return c.transitCycles(bytes, c.ResponseLinkBusWidth)
}

func (c *Config) transitCycles(bytes, width int) int {
	linkCycles := ceilDiv(bytes*8, width)
	if c.LinkBusUseDDR {
		linkCycles = ceilDiv(linkCycles, 2)
	}

	return ceilDiv(linkCycles, c.LinkCPUClockRatio())
}

// ReadRequestBytes is the size of a read request on the link.
func (c *Config) ReadRequestBytes() int {
	return c.ReadRequestPacketOverhead
}

// WriteRequestBytes is the size of a write request on the link.
func (c *Config) WriteRequestBytes() int {
	return c.WriteRequestPacketOverhead + c.TransactionSize
}

// ReadResponseBytes is the size of returned read data on the link.
func (c *Config) ReadResponseBytes() int {
	return c.ReadResponsePacketOverhead + c.TransactionSize
}

// LogicRequestBytes is the size of a logic operation on the link.
func (c *Config) LogicRequestBytes() int {
	return c.TransactionSize
}

// LogicResponseBytes is the size of a logic response on the link.
func (c *Config) LogicResponseBytes() int {
	return c.LogicResponsePacketOverhead
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}

	return a/b + boolToInt(a%b != 0)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}

func isPowerOfTwo(v int) bool {
	return v > 0 && v&(v-1) == 0
}

func log2(v int) int {
	n := 0
	for v > 1 {
		v >>= 1
		n++
	}

	return n
}

func gcd(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}

	return a
}
