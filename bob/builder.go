package bob

import (
	"log"

	"github.com/sarchlab/bobsim/config"
	"github.com/sarchlab/bobsim/dram"
	"github.com/sarchlab/bobsim/hooking"
	"github.com/sarchlab/bobsim/signal"
)

// Builder can build BOB controllers.
type Builder struct {
	cfg          *config.Config
	ids          signal.IDGenerator
	handler      Handler
	listeners    []EpochListener
	hooks        []hooking.Hook
	channelHooks []hooking.Hook
}

// MakeBuilder creates a builder with the default configuration.
func MakeBuilder() Builder {
	return Builder{}
}

// WithConfig sets the configuration. Build panics if it does not validate.
func (b Builder) WithConfig(cfg *config.Config) Builder {
	b.cfg = cfg
	return b
}

// WithIDGenerator sets the generator of transaction IDs.
func (b Builder) WithIDGenerator(ids signal.IDGenerator) Builder {
	b.ids = ids
	return b
}

// WithHandler sets the receiver of the completion notifications.
func (b Builder) WithHandler(h Handler) Builder {
	b.handler = h
	return b
}

// WithEpochListeners registers receivers of the epoch statistics.
func (b Builder) WithEpochListeners(l ...EpochListener) Builder {
	b.listeners = append(append([]EpochListener(nil), b.listeners...), l...)
	return b
}

// WithAdditionalHooks registers hooks on the controller.
func (b Builder) WithAdditionalHooks(hooks ...hooking.Hook) Builder {
	b.hooks = append(append([]hooking.Hook(nil), b.hooks...), hooks...)
	return b
}

// WithChannelHooks registers hooks on every DRAM channel.
func (b Builder) WithChannelHooks(hooks ...hooking.Hook) Builder {
	b.channelHooks = append(append([]hooking.Hook(nil), b.channelHooks...),
		hooks...)
	return b
}

// Build creates a controller.
func (b Builder) Build(name string) *Comp {
	cfg := b.cfg
	if cfg == nil {
		cfg = config.MakeBuilder().MustBuild()
	}

	if err := cfg.Validate(); err != nil {
		log.Panic(err)
	}

	mapper, err := cfg.NewMapper()
	if err != nil {
		log.Panic(err)
	}

	ids := b.ids
	if ids == nil {
		ids = signal.NewIDGenerator()
	}

	c := &Comp{
		name:         name,
		cfg:          cfg,
		mapper:       mapper,
		ids:          ids,
		handler:      b.handler,
		listeners:    b.listeners,
		pendingReads: make(map[uint64]*signal.Transaction),
		priorityLink: make([]int, cfg.NumPorts),
		latency:      newLatencyRecorder(cfg.NumChannels),
		epochLatency: newLatencyRecorder(cfg.NumChannels),
	}

	c.clockCPU, c.clockDRAM = cfg.DRAMClockFraction()
	c.counters = newCounters(cfg.NumChannels, cfg.NumPorts, cfg.NumLinkBuses)
	c.zero = newCounters(cfg.NumChannels, cfg.NumPorts, cfg.NumLinkBuses)
	c.lastEpoch = c.zero

	channelBuilder := dram.MakeBuilder().
		WithConfig(cfg).
		WithMapper(mapper).
		WithIDGenerator(ids).
		WithAdditionalHooks(b.channelHooks...)

	for i := 0; i < cfg.NumChannels; i++ {
		c.channels = append(c.channels, channelBuilder.Build(i))
	}

	for i := 0; i < cfg.NumPorts; i++ {
		c.ports = append(c.ports, newPort(i, cfg))
	}

	for i := 0; i < cfg.NumLinkBuses; i++ {
		c.links = append(c.links, &link{id: i})
	}

	for _, h := range b.hooks {
		c.AcceptHook(h)
	}

	return c
}
