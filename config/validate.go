package config

import (
	"fmt"
	"math"
)

// Validate checks the configuration and returns an error that describes the
// first rule it violates.
func (c *Config) Validate() error {
	checks := []func() error{
		c.validatePositive,
		c.validatePowersOfTwo,
		c.validateClocks,
		c.validateLayout,
		c.validateMapping,
		c.validateTransit,
	}

	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}

	return nil
}

func (c *Config) validatePositive() error {
	ints := []struct {
		name  string
		value int
	}{
		{"num_channels", c.NumChannels},
		{"num_link_buses", c.NumLinkBuses},
		{"channels_per_link_bus", c.ChannelsPerLinkBus},
		{"request_link_bus_width", c.RequestLinkBusWidth},
		{"response_link_bus_width", c.ResponseLinkBusWidth},
		{"num_ports", c.NumPorts},
		{"port_width", c.PortWidth},
		{"port_queue_depth", c.PortQueueDepth},
		{"transaction_size", c.TransactionSize},
		{"dram_bus_width", c.DRAMBusWidth},
		{"cache_line_size", c.CacheLineSize},
		{"channel_work_queue_max", c.ChannelWorkQueueMax},
		{"device.device_width", c.Device.DeviceWidth},
	}

	for _, v := range ints {
		if v.value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d",
				ErrInvalidValue, v.name, v.value)
		}
	}

	floats := []struct {
		name  string
		value float64
	}{
		{"cpu_clock_period", c.CPUClockPeriod},
		{"link_bus_clock_period", c.LinkBusClockPeriod},
		{"refresh_period", c.RefreshPeriod},
		{"device.tck", c.Device.TCK},
	}

	for _, v := range floats {
		if !(v.value > 0) {
			return fmt.Errorf("%w: %s must be positive, got %g",
				ErrInvalidValue, v.name, v.value)
		}
	}

	// The controller may issue a command every cycle, so a command must
	// leave the bus within one cycle.
	if c.Device.TCMDS != 1 {
		return fmt.Errorf("%w: device.tcmds must be 1, got %d",
			ErrInvalidValue, c.Device.TCMDS)
	}

	if c.EpochLength == 0 {
		return fmt.Errorf("%w: epoch_length must be positive", ErrInvalidValue)
	}

	if c.TransactionSize%c.DRAMBusWidth != 0 {
		return fmt.Errorf(
			"%w: transaction size %d is not a multiple of the DRAM bus width %d",
			ErrInvalidValue, c.TransactionSize, c.DRAMBusWidth)
	}

	if c.ReturnQueueSlots() < 1 {
		return fmt.Errorf(
			"%w: return queue of %d bytes cannot hold a %d-byte transaction",
			ErrInvalidValue, c.ChannelReturnQueueMax, c.TransactionSize)
	}

	if c.RefreshCycles() < c.Device.NumRanks {
		return fmt.Errorf(
			"%w: refresh period %g ns is shorter than one cycle per rank",
			ErrInvalidValue, c.RefreshPeriod)
	}

	return nil
}

func (c *Config) validatePowersOfTwo() error {
	values := []struct {
		name  string
		value int
	}{
		{"num_channels", c.NumChannels},
		{"device.num_ranks", c.Device.NumRanks},
		{"device.num_banks", c.Device.NumBanks},
		{"device.num_rows", c.Device.NumRows},
		{"device.num_cols", c.Device.NumCols},
		{"bus_alignment_size", c.BusAlignmentSize},
		{"transaction_size", c.TransactionSize},
		{"cache_line_size", c.CacheLineSize},
	}

	for _, v := range values {
		if !isPowerOfTwo(v.value) {
			return fmt.Errorf("%w: %s is %d",
				ErrNotPowerOfTwo, v.name, v.value)
		}
	}

	return nil
}

func (c *Config) validateClocks() error {
	ratio := c.CPUClockPeriod / c.LinkBusClockPeriod
	if ratio < 1 || math.Abs(ratio-math.Round(ratio)) > 1e-9 {
		return fmt.Errorf(
			"%w: link period %g ns does not evenly divide CPU period %g ns",
			ErrClockMismatch, c.LinkBusClockPeriod, c.CPUClockPeriod)
	}

	cpu, dram := c.DRAMClockFraction()
	if cpu == 0 || dram == 0 {
		return fmt.Errorf(
			"%w: clock periods %g ns and %g ns are below femtosecond resolution",
			ErrClockMismatch, c.CPUClockPeriod, c.Device.TCK)
	}

	return nil
}

func (c *Config) validateLayout() error {
	if c.NumChannels != c.NumLinkBuses*c.ChannelsPerLinkBus {
		return fmt.Errorf(
			"%w: %d channels on %d link buses with %d channels each",
			ErrChannelLayout, c.NumChannels, c.NumLinkBuses,
			c.ChannelsPerLinkBus)
	}

	return nil
}

func (c *Config) validateMapping() error {
	if !c.MappingScheme.IsValid() {
		return fmt.Errorf("%w: %d", ErrUnknownScheme, int(c.MappingScheme))
	}

	switch c.PortHeuristic {
	case FirstAvailable, PerCore, RoundRobin:
	default:
		return fmt.Errorf("%w: unknown port heuristic %d",
			ErrInvalidValue, int(c.PortHeuristic))
	}

	maxRowBits := log2(c.Device.NumRows)
	if c.EffectiveRowBits <= 0 || c.EffectiveRowBits > maxRowBits {
		return fmt.Errorf(
			"%w: effective row bits %d outside (0, %d]",
			ErrInvalidValue, c.EffectiveRowBits, maxRowBits)
	}

	if c.CacheLineSize < c.BusAlignmentSize {
		return fmt.Errorf(
			"%w: cache line %d is smaller than the bus alignment %d",
			ErrInvalidValue, c.CacheLineSize, c.BusAlignmentSize)
	}

	if _, err := c.NewMapper(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}

	return nil
}

func (c *Config) validateTransit() error {
	sizes := []struct {
		name   string
		cycles int
	}{
		{"read request", c.RequestTransitCycles(c.ReadRequestBytes())},
		{"write request", c.RequestTransitCycles(c.WriteRequestBytes())},
		{"logic request", c.RequestTransitCycles(c.LogicRequestBytes())},
		{"read response", c.ResponseTransitCycles(c.ReadResponseBytes())},
		{"logic response", c.ResponseTransitCycles(c.LogicResponseBytes())},
	}

	for _, s := range sizes {
		if s.cycles <= 0 {
			return fmt.Errorf("%w: %s takes %d cycles",
				ErrZeroTransit, s.name, s.cycles)
		}
	}

	return nil
}
