package dram

import (
	"log"

	"github.com/sarchlab/bobsim/addressmapping"
	"github.com/sarchlab/bobsim/config"
	"github.com/sarchlab/bobsim/dram/internal/ctrl"
	"github.com/sarchlab/bobsim/dram/internal/logiclayer"
	"github.com/sarchlab/bobsim/dram/internal/org"
	"github.com/sarchlab/bobsim/hooking"
	"github.com/sarchlab/bobsim/signal"
)

// Builder can build DRAM channels.
type Builder struct {
	cfg    *config.Config
	mapper *addressmapping.Mapper
	ids    signal.IDGenerator
	hooks  []hooking.Hook
}

// MakeBuilder creates a builder with the default configuration.
func MakeBuilder() Builder {
	return Builder{}
}

// WithConfig sets the configuration of the channels.
func (b Builder) WithConfig(cfg *config.Config) Builder {
	b.cfg = cfg
	return b
}

// WithMapper sets the address mapper. By default, the mapper selected by the
// configuration is used.
func (b Builder) WithMapper(m *addressmapping.Mapper) Builder {
	b.mapper = m
	return b
}

// WithIDGenerator sets the generator of the IDs of the transactions that the
// logic layer creates.
func (b Builder) WithIDGenerator(ids signal.IDGenerator) Builder {
	b.ids = ids
	return b
}

// WithAdditionalHooks registers hooks on every channel built.
func (b Builder) WithAdditionalHooks(hooks ...hooking.Hook) Builder {
	b.hooks = append(append([]hooking.Hook(nil), b.hooks...), hooks...)
	return b
}

// Build creates a channel with the given index.
func (b Builder) Build(id int) *Channel {
	cfg := b.cfg
	if cfg == nil {
		cfg = config.MakeBuilder().MustBuild()
	}

	mapper := b.mapper
	if mapper == nil {
		var err error

		mapper, err = cfg.NewMapper()
		if err != nil {
			log.Panic(err)
		}
	}

	ids := b.ids
	if ids == nil {
		ids = signal.NewIDGenerator()
	}

	c := &Channel{
		id:    id,
		cfg:   cfg,
		ids:   ids,
		ctrl:  ctrl.New(id, cfg, mapper),
		logic: logiclayer.New(id, cfg, ids),
	}

	for i := 0; i < cfg.Device.NumRanks; i++ {
		c.ranks = append(c.ranks, org.NewRank(i, cfg))
	}

	for _, h := range b.hooks {
		c.AcceptHook(h)
	}

	return c
}
