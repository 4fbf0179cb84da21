package dram

import (
	"math/rand"

	"github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/bobsim/addressmapping"
	"github.com/sarchlab/bobsim/config"
	"github.com/sarchlab/bobsim/hooking"
	"github.com/sarchlab/bobsim/signal"
)

// protocolChecker watches a channel through hooks and remembers every rule
// the channel broke.
type protocolChecker struct {
	cfg *config.Config

	violations   []string
	lastCommand  uint64
	anyCommand   bool
	dataBusFree  uint64
	activates    [][]uint64
	refreshes    [][]uint64
	commandCount int
}

func newProtocolChecker(cfg *config.Config) *protocolChecker {
	return &protocolChecker{
		cfg:       cfg,
		activates: make([][]uint64, cfg.Device.NumRanks),
		refreshes: make([][]uint64, cfg.Device.NumRanks),
	}
}

func (c *protocolChecker) Func(ctx hooking.HookCtx) {
	p := ctx.Item.(*signal.BusPacket)

	switch ctx.Pos {
	case HookPosCommandIssued:
		d := ctx.Detail.(CommandDetail)
		c.checkCommandBus(d.Cycle)
		c.checkBounds(p, d)
	case HookPosRefresh:
		d := ctx.Detail.(CommandDetail)
		c.checkCommandBus(d.Cycle)
		c.refreshes[p.Rank] = append(c.refreshes[p.Rank], d.Cycle)
	case HookPosDataBusStart:
		d := ctx.Detail.(DataDetail)
		if d.Cycle < c.dataBusFree {
			c.violations = append(c.violations, "data bus double booked")
		}

		c.dataBusFree = d.Cycle + uint64(p.BurstLength)
	}
}

func (c *protocolChecker) checkCommandBus(cycle uint64) {
	if c.anyCommand && cycle < c.lastCommand+uint64(c.cfg.Device.TCMDS) {
		c.violations = append(c.violations, "command bus double booked")
	}

	c.anyCommand = true
	c.lastCommand = cycle
	c.commandCount++
}

func (c *protocolChecker) checkBounds(p *signal.BusPacket, d CommandDetail) {
	var bound uint64

	switch p.Kind {
	case signal.PacketActivate:
		bound = d.NextActivate
		c.activates[p.Rank] = append(c.activates[p.Rank], d.Cycle)
	case signal.PacketReadP:
		bound = d.NextRead
	case signal.PacketWriteP:
		bound = d.NextWrite
	}

	if d.Cycle < bound {
		c.violations = append(c.violations, p.String()+" issued early")
	}
}

var _ = ginkgo.Describe("Channel under random traffic", func() {
	const (
		trafficCycles = 20000
		drainCycles   = 5000
		refreshSlack  = 300
	)

	var (
		cfg     *config.Config
		mapper  *addressmapping.Mapper
		channel *Channel
		checker *protocolChecker
		rng     *rand.Rand
		ids     signal.IDGenerator
		reads   uint64
		writes  uint64
	)

	ginkgo.BeforeEach(func() {
		cfg = config.MakeBuilder().
			WithRefreshPeriod(1950).
			MustBuild()
		mapper, _ = cfg.NewMapper()
		ids = signal.NewIDGenerator()
		checker = newProtocolChecker(cfg)
		rng = rand.New(rand.NewSource(42))
		reads, writes = 0, 0

		channel = MakeBuilder().
			WithConfig(cfg).
			WithIDGenerator(ids).
			WithAdditionalHooks(checker).
			Build(0)

		addrMask := uint64(1)<<uint(mapper.TotalBits()) - 1
		align := ^uint64(cfg.TransactionSize - 1)

		for i := 0; i < trafficCycles; i++ {
			if rng.Intn(2) == 0 && channel.CanAccept() {
				kind := signal.TransactionRead
				if rng.Intn(3) == 0 {
					kind = signal.TransactionWrite
				}

				addr := rng.Uint64() & addrMask & align
				t := signal.NewTransaction(ids, kind, cfg.TransactionSize, addr)
				Expect(channel.AddTransaction(t)).To(BeTrue())

				if kind == signal.TransactionRead {
					reads++
				} else {
					writes++
				}
			}

			if i%2 == 0 && channel.PeekReturn() != nil {
				channel.PopReturn()
			}

			channel.Tick()
		}

		for i := 0; i < drainCycles; i++ {
			if channel.PeekReturn() != nil {
				channel.PopReturn()
			}

			channel.Tick()
		}
	})

	ginkgo.It("should issue every command within its timing bounds", func() {
		Expect(checker.violations).To(BeEmpty())
		Expect(checker.commandCount).To(BeNumerically(">", 1000))
	})

	ginkgo.It("should finish every transaction", func() {
		s := channel.Stats()

		Expect(s.Controller.Reads).To(Equal(reads))
		Expect(s.Controller.ReadsDone).To(Equal(reads))
		Expect(s.ReadsReturned).To(Equal(reads))
		Expect(s.WritesDone).To(Equal(writes))
		Expect(channel.WaitingActivates()).To(BeZero())
	})

	ginkgo.It("should keep at most four activates in any tFAW window", func() {
		for _, acts := range checker.activates {
			for i := 4; i < len(acts); i++ {
				Expect(acts[i] - acts[i-4]).
					To(BeNumerically(">=", cfg.Device.TFAW))
			}
		}
	})

	ginkgo.It("should refresh every rank on time", func() {
		period := uint64(cfg.RefreshCycles())
		end := channel.Cycle()

		for r, refs := range checker.refreshes {
			Expect(refs).NotTo(BeEmpty())

			first := uint64(cfg.RefreshCycles()/cfg.Device.NumRanks) *
				uint64(r+1)
			Expect(refs[0]).To(BeNumerically("<=", first+refreshSlack))

			for i := 1; i < len(refs); i++ {
				Expect(refs[i] - refs[i-1]).
					To(BeNumerically("<=", period+refreshSlack))
			}

			Expect(end - refs[len(refs)-1]).
				To(BeNumerically("<=", period+refreshSlack))
		}
	})
})
