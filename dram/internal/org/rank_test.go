package org

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/bobsim/config"
	"github.com/sarchlab/bobsim/signal"
)

var _ = Describe("Rank", func() {
	var (
		cfg  *config.Config
		t    config.DeviceTiming
		rank *Rank
	)

	tickN := func(n int) {
		for i := 0; i < n; i++ {
			Expect(rank.Tick()).To(BeNil())
		}
	}

	packet := func(kind signal.PacketKind, bank int, row uint64) *signal.BusPacket {
		return &signal.BusPacket{
			Kind:        kind,
			Bank:        bank,
			Row:         row,
			BurstLength: cfg.TransferCycles(),
		}
	}

	BeforeEach(func() {
		cfg = config.MakeBuilder().MustBuild()
		t = cfg.Device
		rank = NewRank(0, cfg)
	})

	It("should open a row on activate", func() {
		rank.Receive(packet(signal.PacketActivate, 2, 77))

		b := rank.Bank(2)
		Expect(b.State).To(Equal(BankRowActive))
		Expect(b.OpenRow).To(Equal(uint64(77)))
		Expect(b.NextRead).To(Equal(uint64(t.TRCD)))
		Expect(b.NextActivate).To(Equal(uint64(t.TRC)))
		Expect(rank.Bank(3).NextActivate).To(Equal(uint64(t.TRRD)))
	})

	It("should return read data after the CAS latency", func() {
		rank.Receive(packet(signal.PacketActivate, 0, 5))
		tickN(t.TRCD)

		read := packet(signal.PacketReadP, 0, 5)
		rank.Receive(read)
		Expect(read.Kind).To(Equal(signal.PacketReadData))
		Expect(rank.PendingReads()).To(Equal(1))

		tickN(t.TCL - 1)
		Expect(rank.Tick()).To(BeIdenticalTo(read))
		Expect(rank.PendingReads()).To(Equal(0))
	})

	It("should close the row after a read with auto-precharge", func() {
		rank.Receive(packet(signal.PacketActivate, 0, 5))
		tickN(t.TRCD)
		rank.Receive(packet(signal.PacketReadP, 0, 5))

		for i := 0; i < t.TRTP+t.TRP; i++ {
			rank.Tick()
		}

		Expect(rank.Bank(0).State).To(Equal(BankIdle))
		Expect(rank.Cycle()).To(BeNumerically(">=", rank.Bank(0).NextActivate))
	})

	It("should accept write data while the row is open", func() {
		rank.Receive(packet(signal.PacketActivate, 1, 9))
		tickN(t.TRCD)
		rank.Receive(packet(signal.PacketWriteP, 1, 9))
		tickN(t.TCWL + cfg.TransferCycles())

		rank.Receive(packet(signal.PacketWriteData, 1, 9))

		Expect(rank.Bank(1).StateChangeCountdown).To(Equal(t.TWR))
		Expect(rank.Bank(1).NextActivate).
			To(Equal(rank.Cycle() + uint64(t.TWR+t.TRP)))
	})

	It("should refresh all banks", func() {
		rank.Receive(packet(signal.PacketRefresh, 0, 0))

		for i := 0; i < t.NumBanks; i++ {
			Expect(rank.Bank(i).State).To(Equal(BankRefreshing))
		}

		tickN(t.TRFC)

		for i := 0; i < t.NumBanks; i++ {
			Expect(rank.Bank(i).State).To(Equal(BankIdle))
		}
	})

	Context("when a command breaks the timing", func() {
		It("should panic on a read before tRCD", func() {
			rank.Receive(packet(signal.PacketActivate, 0, 5))
			tickN(t.TRCD - 1)

			Expect(func() {
				rank.Receive(packet(signal.PacketReadP, 0, 5))
			}).To(Panic())
		})

		It("should panic on a read to a closed row", func() {
			rank.Receive(packet(signal.PacketActivate, 0, 5))
			tickN(t.TRCD)

			Expect(func() {
				rank.Receive(packet(signal.PacketReadP, 0, 6))
			}).To(Panic())
		})

		It("should panic on a second activate to an open bank", func() {
			rank.Receive(packet(signal.PacketActivate, 0, 5))
			tickN(t.TRC)

			Expect(func() {
				rank.Receive(packet(signal.PacketActivate, 0, 6))
			}).To(Panic())
		})

		It("should panic on an activate before tRRD", func() {
			rank.Receive(packet(signal.PacketActivate, 0, 5))

			Expect(func() {
				rank.Receive(packet(signal.PacketActivate, 1, 5))
			}).To(Panic())
		})

		It("should panic on a refresh while a row is open", func() {
			rank.Receive(packet(signal.PacketActivate, 0, 5))
			tickN(t.TRC)

			Expect(func() {
				rank.Receive(packet(signal.PacketRefresh, 0, 0))
			}).To(Panic())
		})

		It("should panic on write data to an idle bank", func() {
			Expect(func() {
				rank.Receive(packet(signal.PacketWriteData, 0, 0))
			}).To(Panic())
		})

		It("should panic on packets it does not handle", func() {
			Expect(func() {
				rank.Receive(packet(signal.PacketPrecharge, 0, 0))
			}).To(Panic())
		})
	})
})
