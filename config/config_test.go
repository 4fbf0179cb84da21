package config

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/sarchlab/bobsim/addressmapping"
)

var _ = Describe("Builder", func() {
	It("should build the default configuration", func() {
		c, err := MakeBuilder().Build()

		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(c.NumChannels).To(gomega.Equal(8))
		gomega.Expect(c.Device.Name).To(gomega.Equal("DDR3_1333"))
		gomega.Expect(c.MappingScheme).To(gomega.Equal(addressmapping.RwClhBkRkChCllBy))
		gomega.Expect(c.EffectiveRowBits).To(gomega.Equal(16))
	})

	It("should not share state between builds", func() {
		b := MakeBuilder()
		c1 := b.MustBuild()
		c2 := b.WithNumPorts(2).MustBuild()

		gomega.Expect(c1.NumPorts).To(gomega.Equal(4))
		gomega.Expect(c2.NumPorts).To(gomega.Equal(2))
	})

	It("should follow the row count of a new device", func() {
		c := MakeBuilder().WithDevice(DDR3_1600).MustBuild()

		gomega.Expect(c.EffectiveRowBits).To(gomega.Equal(14))
	})

	DescribeTable("should reject invalid configurations",
		func(b Builder, expected error) {
			_, err := b.Build()
			gomega.Expect(err).To(gomega.MatchError(expected))
		},
		Entry("link period not dividing CPU period",
			MakeBuilder().WithLinkBusClockPeriod(0.2), ErrClockMismatch),
		Entry("link period longer than CPU period",
			MakeBuilder().WithLinkBusClockPeriod(0.625), ErrClockMismatch),
		Entry("channel count not matching the links",
			MakeBuilder().WithNumChannels(4), ErrChannelLayout),
		Entry("channels not a power of two",
			MakeBuilder().
				WithNumChannels(6).
				WithNumLinkBuses(3),
			ErrNotPowerOfTwo),
		Entry("ranks not a power of two",
			MakeBuilder().WithNumRanks(3), ErrNotPowerOfTwo),
		Entry("unknown scheme",
			MakeBuilder().WithMappingScheme(addressmapping.Scheme(99)),
			ErrUnknownScheme),
		Entry("unknown port heuristic",
			MakeBuilder().WithPortHeuristic(PortHeuristic(7)),
			ErrInvalidValue),
		Entry("zero-byte read request",
			MakeBuilder().WithPacketOverheads(0, 8, 8, 8), ErrZeroTransit),
		Entry("too many effective row bits",
			MakeBuilder().WithEffectiveRowBits(17), ErrInvalidValue),
		Entry("no effective row bits",
			MakeBuilder().WithEffectiveRowBits(0), ErrInvalidValue),
		Entry("zero port depth",
			MakeBuilder().WithPortQueueDepth(0), ErrInvalidValue),
		Entry("return queue smaller than a transaction",
			MakeBuilder().WithChannelReturnQueueMax(32), ErrInvalidValue),
	)

	It("should panic in MustBuild", func() {
		gomega.Expect(func() {
			MakeBuilder().WithNumChannels(3).MustBuild()
		}).To(gomega.Panic())
	})
})

var _ = Describe("Derived values", func() {
	var c *Config

	BeforeEach(func() {
		c = MakeBuilder().MustBuild()
	})

	It("should compute clock ratios", func() {
		gomega.Expect(c.LinkCPUClockRatio()).To(gomega.Equal(1))
		gomega.Expect(c.DRAMCPUClockRatio()).To(gomega.BeNumerically("~", 4.8, 1e-9))

		cpu, dram := c.DRAMClockFraction()
		gomega.Expect(cpu).To(gomega.Equal(uint64(5)))
		gomega.Expect(dram).To(gomega.Equal(uint64(24)))
	})

	It("should compute DRAM values", func() {
		gomega.Expect(c.TransferCycles()).To(gomega.Equal(4))
		gomega.Expect(c.RefreshCycles()).To(gomega.Equal(5200))
		gomega.Expect(c.PowerMultiplier()).To(gomega.Equal(16))
		gomega.Expect(c.ReturnQueueSlots()).To(gomega.Equal(16))
		gomega.Expect(c.LogicStride()).To(gomega.Equal(uint64(64)))
	})

	It("should compute link transit cycles", func() {
		gomega.Expect(c.RequestTransitCycles(c.ReadRequestBytes())).To(gomega.Equal(4))
		gomega.Expect(c.RequestTransitCycles(c.WriteRequestBytes())).To(gomega.Equal(36))
		gomega.Expect(c.RequestTransitCycles(c.LogicRequestBytes())).To(gomega.Equal(32))
		gomega.Expect(c.ResponseTransitCycles(c.ReadResponseBytes())).To(gomega.Equal(24))
		gomega.Expect(c.ResponseTransitCycles(c.LogicResponseBytes())).To(gomega.Equal(3))
	})

	It("should divide transit by the link clock ratio", func() {
		c = MakeBuilder().
			WithLinkBusClockPeriod(0.15625).
			WithLinkBusUseDDR(false).
			MustBuild()

		gomega.Expect(c.LinkCPUClockRatio()).To(gomega.Equal(2))
		gomega.Expect(c.RequestTransitCycles(c.ReadRequestBytes())).To(gomega.Equal(4))
		gomega.Expect(c.ResponseTransitCycles(c.LogicResponseBytes())).To(gomega.Equal(3))
	})

	It("should derive the mapping widths", func() {
		gomega.Expect(c.AddressWidths()).To(gomega.Equal(addressmapping.Widths{
			Channel:   3,
			Rank:      2,
			Bank:      3,
			Row:       16,
			Column:    11,
			ColumnLow: 3,
			Byte:      3,
		}))

		m, err := c.NewMapper()
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(m.TotalBits()).To(gomega.Equal(38))
	})
})

var _ = Describe("PortHeuristic", func() {
	It("should parse names", func() {
		var h PortHeuristic

		gomega.Expect(h.UnmarshalText([]byte("round_robin"))).To(gomega.Succeed())
		gomega.Expect(h).To(gomega.Equal(RoundRobin))
		gomega.Expect(h.String()).To(gomega.Equal("ROUND_ROBIN"))
		gomega.Expect(h.UnmarshalText([]byte("LOTTERY"))).
			To(gomega.MatchError(ErrInvalidValue))
	})
})

var _ = Describe("Preset", func() {
	It("should find devices by name", func() {
		d, err := Preset("ddr3_1600")

		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(d.TCK).To(gomega.Equal(1.25))
		gomega.Expect(PresetNames()).To(gomega.Equal(
			[]string{"DDR3_1066", "DDR3_1333", "DDR3_1600"}))
	})

	It("should reject unknown devices", func() {
		_, err := Preset("DDR9")
		gomega.Expect(err).To(gomega.MatchError(ErrInvalidValue))
	})
})

var _ = Describe("Load", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		gomega.Expect(os.WriteFile(path, []byte(content), 0o600)).To(gomega.Succeed())

		return path
	}

	It("should overlay YAML onto the defaults", func() {
		path := write("bob.yaml", `
preset: DDR3_1600
num_ports: 2
port_heuristic: PER_CORE
mapping_scheme: RW_BK_RK_CH_CL_BY
device:
  num_ranks: 2
`)

		c, err := Load(path)

		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(c.NumPorts).To(gomega.Equal(2))
		gomega.Expect(c.NumChannels).To(gomega.Equal(8))
		gomega.Expect(c.PortHeuristic).To(gomega.Equal(PerCore))
		gomega.Expect(c.MappingScheme).To(gomega.Equal(addressmapping.RwBkRkChClBy))
		gomega.Expect(c.Device.Name).To(gomega.Equal("DDR3_1600"))
		gomega.Expect(c.Device.NumRanks).To(gomega.Equal(2))
		gomega.Expect(c.Device.TCL).To(gomega.Equal(11))
		gomega.Expect(c.EffectiveRowBits).To(gomega.Equal(14))
	})

	It("should read JSON", func() {
		path := write("bob.json",
			`{"num_channels": 4, "num_link_buses": 2, "effective_row_bits": 12}`)

		c, err := Load(path)

		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(c.NumChannels).To(gomega.Equal(4))
		gomega.Expect(c.EffectiveRowBits).To(gomega.Equal(12))
	})

	It("should validate loaded files", func() {
		path := write("bad.yml", "num_channels: 16\n")

		_, err := Load(path)

		gomega.Expect(err).To(gomega.MatchError(ErrChannelLayout))
	})

	It("should reject unknown extensions", func() {
		path := write("bob.toml", "num_channels = 8\n")

		_, err := Load(path)

		gomega.Expect(err).To(gomega.MatchError(ErrInvalidValue))
	})

	It("should reject unknown presets", func() {
		_, err := Parse([]byte("preset: SDRAM\n"))

		gomega.Expect(err).To(gomega.MatchError(ErrInvalidValue))
	})

	It("should load what it saves", func() {
		c := MakeBuilder().
			WithPortHeuristic(RoundRobin).
			WithEffectiveRowBits(10).
			MustBuild()
		path := filepath.Join(dir, "saved.yaml")

		gomega.Expect(c.Save(path)).To(gomega.Succeed())
		loaded, err := Load(path)

		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(*loaded).To(gomega.Equal(*c))
	})
})
