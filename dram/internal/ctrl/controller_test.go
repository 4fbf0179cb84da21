package ctrl

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/bobsim/addressmapping"
	"github.com/sarchlab/bobsim/config"
	"github.com/sarchlab/bobsim/dram/internal/org"
	"github.com/sarchlab/bobsim/signal"
)

type issueRecord struct {
	cycle  uint64
	packet *signal.BusPacket
}

var _ = Describe("Controller", func() {
	var (
		cfg    *config.Config
		mapper *addressmapping.Mapper
		ids    signal.IDGenerator
		c      *Controller
	)

	build := func(b config.Builder) {
		var err error

		cfg = b.MustBuild()
		mapper, err = cfg.NewMapper()
		Expect(err).NotTo(HaveOccurred())

		c = New(0, cfg, mapper)
	}

	trans := func(
		kind signal.TransactionKind,
		rank, bank int,
		row uint64,
	) *signal.Transaction {
		addr := mapper.Encode(addressmapping.Location{
			Rank: rank,
			Bank: bank,
			Row:  row,
		})

		return signal.NewTransaction(ids, kind, cfg.TransactionSize, addr)
	}

	run := func(n int, rrqLen int) (cmds, data []issueRecord) {
		for i := 0; i < n; i++ {
			now := c.Cycle()
			issued := c.Tick(rrqLen)

			if issued.Command != nil {
				cmds = append(cmds, issueRecord{now, issued.Command})
			}

			if issued.WriteData != nil {
				data = append(data, issueRecord{now, issued.WriteData})
			}
		}

		return cmds, data
	}

	BeforeEach(func() {
		ids = signal.NewIDGenerator()
		build(config.MakeBuilder())
	})

	It("should split a read into an activate and a read", func() {
		Expect(c.AddTransaction(trans(signal.TransactionRead, 1, 2, 3))).
			To(BeTrue())

		q := c.Queue()
		Expect(q).To(HaveLen(2))
		Expect(q[0].Kind).To(Equal(signal.PacketActivate))
		Expect(q[1].Kind).To(Equal(signal.PacketReadP))
		Expect(q[1].Rank).To(Equal(1))
		Expect(q[1].Bank).To(Equal(2))
		Expect(q[1].Row).To(Equal(uint64(3)))
		Expect(q[1].BurstLength).To(Equal(4))
		Expect(c.WaitingActivates()).To(Equal(1))
	})

	It("should refuse work when the queue is full", func() {
		build(config.MakeBuilder().WithChannelWorkQueueMax(2))

		Expect(c.AddTransaction(trans(signal.TransactionRead, 0, 0, 1))).
			To(BeTrue())
		Expect(c.AddTransaction(trans(signal.TransactionWrite, 0, 1, 1))).
			To(BeTrue())
		Expect(c.AddTransaction(trans(signal.TransactionRead, 0, 2, 1))).
			To(BeFalse())
		Expect(c.QueueLen()).To(Equal(4))
	})

	It("should put logic traffic first", func() {
		c.AddTransaction(trans(signal.TransactionRead, 0, 0, 1))

		logic := trans(signal.TransactionWrite, 0, 1, 1)
		logic.FromLogicOp = true
		c.AddTransaction(logic)

		q := c.Queue()
		Expect(q[0].TransactionID).To(Equal(logic.ID))
		Expect(q[0].Kind).To(Equal(signal.PacketActivate))
		Expect(q[1].Kind).To(Equal(signal.PacketWriteP))
		Expect(q[1].FromLogicOp).To(BeTrue())
	})

	It("should keep arrival order without logic priority", func() {
		build(config.MakeBuilder().WithGiveLogicPriority(false))
		first := trans(signal.TransactionRead, 0, 0, 1)
		c.AddTransaction(first)

		logic := trans(signal.TransactionWrite, 0, 1, 1)
		logic.FromLogicOp = true
		c.AddTransaction(logic)

		Expect(c.Queue()[0].TransactionID).To(Equal(first.ID))
	})

	It("should issue the read tRCD after the activate", func() {
		c.AddTransaction(trans(signal.TransactionRead, 0, 0, 7))

		cmds, _ := run(20, 0)

		Expect(cmds).To(HaveLen(2))
		Expect(cmds[0].packet.Kind).To(Equal(signal.PacketActivate))
		Expect(cmds[0].cycle).To(Equal(uint64(0)))
		Expect(cmds[1].packet.Kind).To(Equal(signal.PacketReadP))
		Expect(cmds[1].cycle).To(Equal(uint64(cfg.Device.TRCD)))
		Expect(c.OutstandingReads()).To(Equal(1))
		Expect(c.WaitingActivates()).To(Equal(0))
	})

	It("should report the bank as it was before the command", func() {
		c.AddTransaction(trans(signal.TransactionRead, 0, 0, 7))

		issued := c.Tick(0)
		Expect(issued.Bank.State).To(Equal(org.BankIdle))

		for issued.Command == nil || issued.Command.Kind != signal.PacketReadP {
			issued = c.Tick(0)
		}

		Expect(issued.Bank.State).To(Equal(org.BankRowActive))
		Expect(issued.Bank.NextRead).To(Equal(uint64(cfg.Device.TRCD)))
		Expect(c.Bank(0, 0).NextRead).To(BeNumerically(">", issued.Bank.NextRead))
	})

	It("should send write data tCWL after the write", func() {
		c.AddTransaction(trans(signal.TransactionWrite, 0, 0, 7))

		cmds, data := run(30, 0)

		Expect(cmds).To(HaveLen(2))
		Expect(cmds[1].packet.Kind).To(Equal(signal.PacketWriteP))
		Expect(data).To(HaveLen(1))
		Expect(data[0].packet.Kind).To(Equal(signal.PacketWriteData))
		Expect(data[0].cycle).
			To(Equal(cmds[1].cycle + uint64(cfg.Device.TCWL)))
		Expect(data[0].packet).NotTo(BeIdenticalTo(cmds[1].packet))
	})

	It("should close the bank after the auto-precharge", func() {
		c.AddTransaction(trans(signal.TransactionRead, 0, 0, 7))
		t := cfg.Device

		run(t.TRCD+1, 0)
		Expect(c.Bank(0, 0).State).To(Equal(org.BankRowActive))

		run(t.TRTP+t.TRP, 0)
		Expect(c.Bank(0, 0).State).To(Equal(org.BankIdle))
	})

	It("should not issue more than four activates per tFAW window", func() {
		for b := 0; b < 5; b++ {
			c.AddTransaction(trans(signal.TransactionRead, 0, b, 1))
		}

		var acts []uint64

		for i := 0; i < 100; i++ {
			now := c.Cycle()
			issued := c.Tick(0)
			Expect(c.ActivatesInWindow(0)).To(BeNumerically("<=", 4))

			if issued.Command != nil &&
				issued.Command.Kind == signal.PacketActivate {
				acts = append(acts, now)
			}
		}

		Expect(acts).To(HaveLen(5))
		Expect(acts[:4]).To(Equal([]uint64{0, 4, 8, 12}))
		Expect(acts[4] - acts[0]).
			To(BeNumerically(">=", cfg.Device.TFAW))
	})

	It("should stall column commands when the return queue is full", func() {
		c.AddTransaction(trans(signal.TransactionRead, 0, 0, 7))

		cmds, _ := run(30, cfg.ReturnQueueSlots())

		Expect(cmds).To(HaveLen(1))
		Expect(cmds[0].packet.Kind).To(Equal(signal.PacketActivate))
		Expect(c.Stats().ReturnQueueFull).To(BeNumerically(">", 0))
	})

	Context("with a short refresh period", func() {
		BeforeEach(func() {
			build(config.MakeBuilder().WithRefreshPeriod(300))
		})

		It("should refresh every rank in turn", func() {
			cmds, _ := run(260, 0)

			Expect(cmds).To(HaveLen(5))

			expected := []struct {
				cycle uint64
				rank  int
			}{{49, 0}, {99, 1}, {149, 2}, {199, 3}, {249, 0}}
			for i, e := range expected {
				Expect(cmds[i].packet.Kind).To(Equal(signal.PacketRefresh))
				Expect(cmds[i].cycle).To(Equal(e.cycle))
				Expect(cmds[i].packet.Rank).To(Equal(e.rank))
			}

			Expect(c.Stats().Refreshes).To(Equal(uint64(5)))
		})

		It("should wait for open banks before refreshing", func() {
			run(45, 0)
			c.AddTransaction(trans(signal.TransactionRead, 0, 0, 7))

			cmds, _ := run(60, 0)

			Expect(cmds[0].packet.Kind).To(Equal(signal.PacketActivate))
			Expect(cmds[0].cycle).To(Equal(uint64(45)))
			Expect(cmds[1].packet.Kind).To(Equal(signal.PacketReadP))
			Expect(cmds[2].packet.Kind).To(Equal(signal.PacketRefresh))
			Expect(cmds[2].cycle).To(Equal(uint64(78)))
		})

		It("should hold activates for a rank that is due", func() {
			run(49, 0)
			Expect(c.RefreshCounter(0)).To(Equal(1))

			// The refresh takes this cycle, and the activate waits for the
			// banks to finish refreshing.
			c.AddTransaction(trans(signal.TransactionRead, 0, 0, 7))
			cmds, _ := run(1, 0)

			Expect(cmds).To(HaveLen(1))
			Expect(cmds[0].packet.Kind).To(Equal(signal.PacketRefresh))

			cmds, _ = run(cfg.Device.TRFC+1, 0)

			var acts []issueRecord
			for _, r := range cmds {
				if r.packet.Kind == signal.PacketActivate {
					acts = append(acts, r)
				}
			}

			Expect(acts).To(HaveLen(1))
			Expect(acts[0].cycle).To(Equal(uint64(49 + cfg.Device.TRFC)))
		})
	})

	It("should account background power", func() {
		run(10, 0)

		t := cfg.Device
		e := c.Stats().Energy[0]
		Expect(e.Background).
			To(Equal(int64(10 * t.IDD2N * cfg.PowerMultiplier())))
		Expect(e.IDD2NCycles).To(Equal(uint64(10)))
		Expect(c.Stats().IdleBanksSum).
			To(Equal(uint64(10 * t.NumRanks * t.NumBanks)))
	})

	It("should panic when more reads return than were issued", func() {
		Expect(func() { c.ReadReturned() }).To(Panic())
	})

	It("should panic on transactions it cannot schedule", func() {
		t := trans(signal.TransactionLogicOp, 0, 0, 0)
		Expect(func() { c.AddTransaction(t) }).To(Panic())
	})
})
